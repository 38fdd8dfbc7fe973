package funds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/fundwatch/internal/config"
	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/localcache"
	"github.com/tair/fundwatch/internal/funds/reconciler"
	"github.com/tair/fundwatch/internal/funds/usecase/command"
	"github.com/tair/fundwatch/internal/funds/usecase/query"
)

func testConfig(t *testing.T, api string) *config.Config {
	t.Helper()
	return &config.Config{
		ServiceName:       "fundwatch-test",
		HTTPPort:          "0",
		SessionTTL:        time.Minute,
		FundsAPIURL:       api,
		FundsTimeout:      time.Second,
		FundsLocale:       "ja",
		FavoritesBackend:  config.BackendNone,
		ReconcileStrategy: "source-wins",
		DialMaxFailures:   1,
		DialCooldown:      time.Minute,
		LocalCachePath:    filepath.Join(t.TempDir(), "cache.db"),
	}
}

func TestProvideLocalKV(t *testing.T) {
	cfg := testConfig(t, "")

	kv, cleanup := ProvideLocalKV(cfg)
	defer cleanup()
	assert.IsType(t, &localcache.SQLiteKV{}, kv)

	cfg.LocalCachePath = ""
	kv, cleanup = ProvideLocalKV(cfg)
	defer cleanup()
	assert.IsType(t, &localcache.MemoryKV{}, kv)
}

func TestProvidePublisher_NoBrokers(t *testing.T) {
	publisher, cleanup := ProvidePublisher(testConfig(t, ""))
	defer cleanup()
	assert.Nil(t, publisher)
}

func TestProvideStrategy_Invalid(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.ReconcileStrategy = "newest"

	_, _, err := InitializeApp(cfg)
	assert.Error(t, err)
}

func TestInitializeApp_LocalOnly(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"funds":[{"fund_cd":"X1","fund_name":"Xeno","base_price":1000}]}`))
	}))
	defer api.Close()

	app, cleanup, err := InitializeApp(testConfig(t, api.URL))
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	res := app.Toggle.Handle(ctx, command.ToggleFavoriteCommand{User: "u1", Code: "X1"})
	assert.Equal(t, reconciler.OutcomeSuccess, res.Outcome)
	assert.Equal(t, reconciler.StateLocalFallback, res.Source)

	list := app.List.Handle(ctx, query.ListFundsQuery{User: "u1"})
	require.Len(t, list.Funds, 1)
	assert.True(t, list.Funds[0].IsFavorite)
	assert.False(t, list.FallbackData)

	favorites, err := app.Favorites.Handle(ctx, query.GetFavoritesQuery{User: "u1"})
	require.NoError(t, err)
	assert.Empty(t, favorites)

	assert.ErrorIs(t, app.Connector.Ping(ctx), domain.ErrStoreUnavailable)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}
