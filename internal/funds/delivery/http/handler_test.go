package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/engine"
	"github.com/tair/fundwatch/internal/funds/identity"
	"github.com/tair/fundwatch/internal/funds/localcache"
	"github.com/tair/fundwatch/internal/funds/provider"
	"github.com/tair/fundwatch/internal/funds/reconciler"
	"github.com/tair/fundwatch/internal/funds/store"
	"github.com/tair/fundwatch/internal/funds/usecase/command"
	"github.com/tair/fundwatch/internal/funds/usecase/query"
)

type stubFunds struct{}

func (stubFunds) ListFunds(context.Context) provider.Snapshot {
	return provider.Snapshot{Funds: []domain.FundRecord{
		{Code: "A", Name: "Alpha", BasePrice: decimal.NewFromInt(200)},
		{Code: "B", Name: "Beta", BasePrice: decimal.NewFromInt(100)},
	}}
}

func (stubFunds) GetFund(_ context.Context, code string) (*domain.FundDetail, error) {
	if code == "A" {
		return &domain.FundDetail{FundRecord: domain.FundRecord{Code: "A", Name: "Alpha"}}, nil
	}
	return nil, domain.ErrFundNotFound
}

type testServer struct {
	router  *mux.Router
	metrics *Metrics
	reg     *prometheus.Registry
	cookies []*http.Cookie
}

func newTestServer(t *testing.T, durable reconciler.Durable, checks map[string]Check) *testServer {
	t.Helper()

	kv := localcache.NewMemoryKV()
	views := localcache.NewViewStateStore(kv)
	sessions := reconciler.NewRegistry(durable, localcache.NewFavoritesCache(kv), reconciler.SourceWins{}, time.Hour)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, sessions)
	ident := identity.NewProvider(identity.WithIssueHook(metrics.KeyIssued))

	h := NewFundHandler(
		command.NewToggleFavoriteHandler(sessions, nil),
		command.NewSaveViewStateHandler(views),
		query.NewListFundsHandler(stubFunds{}, sessions, views, engine.New(language.English)),
		query.NewGetFundHandler(stubFunds{}, sessions),
		query.NewGetFavoritesHandler(durable),
		query.NewGetSessionHandler(sessions),
		query.NewGetViewStateHandler(views),
		ident,
		metrics,
	)

	router := NewRouter(h, NewHealthChecker("fundwatch", checks), reg, MiddlewareConfig{EnableLogging: true})
	return &testServer{router: router, metrics: metrics, reg: reg}
}

// do sends a request carrying the cookies collected so far
func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if cs := w.Result().Cookies(); len(cs) > 0 {
		s.cookies = cs
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

type fundsData struct {
	Funds []struct {
		Code       string `json:"fundCode"`
		IsFavorite bool   `json:"isFavorite"`
	} `json:"funds"`
	Total           int              `json:"total"`
	View            domain.ViewState `json:"view"`
	FavoritesSource string           `json:"favoritesSource"`
	FallbackData    bool             `json:"fallbackData"`
}

func redisConnector(t *testing.T) (*miniredis.Miniredis, *store.Connector) {
	t.Helper()
	srv := miniredis.RunT(t)
	c := store.NewConnector("redis", store.RedisDialer(store.RedisConfig{Addr: srv.Addr()}), nil)
	t.Cleanup(func() { c.Close() })
	return srv, c
}

func TestFavoritesFlow_Durable(t *testing.T) {
	srv, conn := redisConnector(t)
	s := newTestServer(t, conn, nil)

	w := s.do(t, http.MethodGet, "/api/funds", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.cookies, 1)
	assert.Equal(t, identity.CookieName, s.cookies[0].Name)

	list := decode[envelope[fundsData]](t, w)
	assert.True(t, list.Success)
	assert.Equal(t, 2, list.Data.Total)
	assert.Equal(t, "durable", list.Data.FavoritesSource)

	w = s.do(t, http.MethodPost, "/api/favorites/A/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	toggle := decode[envelope[ToggleResponse]](t, w)
	assert.Equal(t, "success", string(toggle.Data.Outcome))
	assert.True(t, toggle.Data.IsFavorite)
	assert.Empty(t, toggle.Data.Notice)

	members, err := srv.Members("user:" + s.cookies[0].Value + ":favorites")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, members)

	w = s.do(t, http.MethodGet, "/api/favorites", "")
	assert.JSONEq(t, `{"favorites":["A"]}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/funds?favorites_only=true", "")
	list = decode[envelope[fundsData]](t, w)
	require.Len(t, list.Data.Funds, 1)
	assert.Equal(t, "A", list.Data.Funds[0].Code)
	assert.True(t, list.Data.Funds[0].IsFavorite)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.toggleOutcomes.WithLabelValues("success", "durable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.keysIssued))
}

func TestToggle_StoreUnreachable_UsesLocal(t *testing.T) {
	conn := store.NewConnector("none", store.Unconfigured("disabled"), nil)
	s := newTestServer(t, conn, nil)

	w := s.do(t, http.MethodPost, "/api/favorites/A/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	toggle := decode[envelope[ToggleResponse]](t, w)
	assert.Equal(t, reconciler.OutcomeSuccess, toggle.Data.Outcome)
	assert.Equal(t, reconciler.StateLocalFallback, toggle.Data.Source)
	assert.Equal(t, noticeLocalOnly, toggle.Data.Notice)

	// durable-only endpoint knows nothing about local favorites
	w = s.do(t, http.MethodGet, "/api/favorites", "")
	assert.JSONEq(t, `{"favorites":[]}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/session", "")
	sess := decode[envelope[query.SessionResult]](t, w)
	assert.Equal(t, reconciler.StateLocalFallback, sess.Data.State)
	assert.Equal(t, []string{"A"}, sess.Data.Favorites)
	assert.Equal(t, "source-wins", sess.Data.Strategy)
}

func TestToggle_DurableWriteFails_Fallback(t *testing.T) {
	srv, conn := redisConnector(t)
	s := newTestServer(t, conn, nil)

	s.do(t, http.MethodGet, "/api/funds", "")
	srv.SetError("READONLY")

	w := s.do(t, http.MethodPost, "/api/favorites/B/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	toggle := decode[envelope[ToggleResponse]](t, w)
	assert.Equal(t, reconciler.OutcomeFallback, toggle.Data.Outcome)
	assert.Equal(t, noticeFallback, toggle.Data.Notice)
	assert.True(t, toggle.Data.IsFavorite)

	w = s.do(t, http.MethodGet, "/api/favorites", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	fav := decode[FavoritesResponse](t, w)
	assert.Empty(t, fav.Favorites)
	assert.NotEmpty(t, fav.Error)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.toggleOutcomes.WithLabelValues("fallback", "local")))
}

func TestToggle_BlankCode(t *testing.T) {
	_, conn := redisConnector(t)
	s := newTestServer(t, conn, nil)

	w := s.do(t, http.MethodPost, "/api/favorites/%20/toggle", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetFavorites_NoCookieDoesNotQueryStore(t *testing.T) {
	srv, conn := redisConnector(t)
	s := newTestServer(t, conn, nil)
	srv.SetError("should not be called")

	w := s.do(t, http.MethodGet, "/api/favorites", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"favorites":[]}`, w.Body.String())
	assert.Empty(t, w.Result().Cookies())

	w = s.do(t, http.MethodGet, "/health", "")
	assert.Empty(t, w.Result().Cookies())
}

func TestGetFund(t *testing.T) {
	_, conn := redisConnector(t)
	s := newTestServer(t, conn, nil)

	w := s.do(t, http.MethodGet, "/api/funds/A", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isFavorite":false`)

	w = s.do(t, http.MethodGet, "/api/funds/ZZZ", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListFunds_QueryValidation(t *testing.T) {
	_, conn := redisConnector(t)
	s := newTestServer(t, conn, nil)

	for _, q := range []string{"sort=rating", "direction=up", "favorites_only=maybe"} {
		w := s.do(t, http.MethodGet, "/api/funds?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	w := s.do(t, http.MethodGet, "/api/funds?sort=basePrice&direction=asc", "")
	list := decode[envelope[fundsData]](t, w)
	require.Len(t, list.Data.Funds, 2)
	assert.Equal(t, "B", list.Data.Funds[0].Code)
	assert.Equal(t, "A", list.Data.Funds[1].Code)
}

func TestView_SaveAndApply(t *testing.T) {
	_, conn := redisConnector(t)
	s := newTestServer(t, conn, nil)

	w := s.do(t, http.MethodPut, "/api/view", `{"sortField":"rating"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/view", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/view", `{"searchTerm":"bet","sortField":"basePrice","sortDirection":"desc"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/view", "")
	view := decode[envelope[domain.ViewState]](t, w)
	assert.Equal(t, domain.ViewState{SearchTerm: "bet", SortField: domain.SortByBasePrice, SortDirection: domain.Descending}, view.Data)

	w = s.do(t, http.MethodGet, "/api/funds", "")
	list := decode[envelope[fundsData]](t, w)
	require.Len(t, list.Data.Funds, 1)
	assert.Equal(t, "B", list.Data.Funds[0].Code)

	w = s.do(t, http.MethodGet, "/api/funds?search=", "")
	list = decode[envelope[fundsData]](t, w)
	assert.Len(t, list.Data.Funds, 2)
}

func TestHealth_DegradedIsStillOK(t *testing.T) {
	_, conn := redisConnector(t)
	s := newTestServer(t, conn, map[string]Check{
		"favorites_store": func(context.Context) error { return errors.New("dial tcp: refused") },
		"local_cache":     func(context.Context) error { return nil },
	})

	w := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	h := decode[ServiceHealth](t, w)
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "unhealthy", h.Components["favorites_store"].Status)
	assert.Equal(t, "healthy", h.Components["local_cache"].Status)
}

func TestHealth_LatencyInMilliseconds(t *testing.T) {
	h := NewHealthChecker("fundwatch-test", map[string]Check{
		"slow": func(context.Context) error {
			time.Sleep(20 * time.Millisecond)
			return nil
		},
	})

	raw, err := json.Marshal(h.CheckAll(context.Background()))
	require.NoError(t, err)

	var report struct {
		Components map[string]struct {
			LatencyMs float64 `json:"latency_ms"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(raw, &report))
	latency := report.Components["slow"].LatencyMs
	assert.GreaterOrEqual(t, latency, 20.0)
	assert.Less(t, latency, 2000.0)
}

func TestMetricsEndpoint(t *testing.T) {
	_, conn := redisConnector(t)
	s := newTestServer(t, conn, nil)

	s.do(t, http.MethodGet, "/api/session", "")
	w := s.do(t, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `fundwatch_sessions{state="durable"} 1`)
	assert.Contains(t, body, "fundwatch_requests_total")
}
