package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/identity"
	"github.com/tair/fundwatch/internal/funds/reconciler"
	"github.com/tair/fundwatch/internal/funds/usecase/command"
	"github.com/tair/fundwatch/internal/funds/usecase/query"
	"github.com/tair/fundwatch/pkg/logger"
)

// User-facing notices attached to toggle results
const (
	noticeFallback  = "Favorites could not be saved to the server. Changes are kept on this device for this session."
	noticeLocalOnly = "Favorites are stored on this device only."
	noticeError     = "The favorite could not be updated. Please try again."
)

// FundHandler handles HTTP requests for funds and favorites using CQRS pattern
type FundHandler struct {
	// Command handlers
	toggleHandler   *command.ToggleFavoriteHandler
	saveViewHandler *command.SaveViewStateHandler

	// Query handlers
	listHandler      *query.ListFundsHandler
	getFundHandler   *query.GetFundHandler
	favoritesHandler *query.GetFavoritesHandler
	sessionHandler   *query.GetSessionHandler
	viewHandler      *query.GetViewStateHandler

	identity *identity.Provider
	metrics  *Metrics
}

// NewFundHandler creates a new fund handler
func NewFundHandler(
	toggleHandler *command.ToggleFavoriteHandler,
	saveViewHandler *command.SaveViewStateHandler,
	listHandler *query.ListFundsHandler,
	getFundHandler *query.GetFundHandler,
	favoritesHandler *query.GetFavoritesHandler,
	sessionHandler *query.GetSessionHandler,
	viewHandler *query.GetViewStateHandler,
	ident *identity.Provider,
	metrics *Metrics,
) *FundHandler {
	return &FundHandler{
		toggleHandler:    toggleHandler,
		saveViewHandler:  saveViewHandler,
		listHandler:      listHandler,
		getFundHandler:   getFundHandler,
		favoritesHandler: favoritesHandler,
		sessionHandler:   sessionHandler,
		viewHandler:      viewHandler,
		identity:         ident,
		metrics:          metrics,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ToggleResponse is the data of a toggle response
type ToggleResponse struct {
	Outcome    reconciler.Outcome `json:"outcome"`
	Code       string             `json:"code"`
	IsFavorite bool               `json:"isFavorite"`
	Source     reconciler.State   `json:"source"`
	Notice     string             `json:"notice,omitempty"`
}

// FavoritesResponse is the raw body of GET /api/favorites
type FavoritesResponse struct {
	Favorites []string `json:"favorites"`
	Error     string   `json:"error,omitempty"`
}

// NewRouter assembles the API, health and metrics routes behind the
// configured middlewares.
func NewRouter(h *FundHandler, health *HealthChecker, gatherer prometheus.Gatherer, config MiddlewareConfig) *mux.Router {
	router := mux.NewRouter()
	RegisterMiddlewares(router, config)
	h.RegisterRoutes(router)
	router.Handle("/health", health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return router
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *FundHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		h.metrics.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		h.metrics.requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
		h.metrics.requestSummary.WithLabelValues(r.Method, endpoint).Observe(duration)
	}
}

// RegisterRoutes registers the API routes. Every route except GET
// /api/favorites resolves the user key and may issue the cookie.
func (h *FundHandler) RegisterRoutes(router *mux.Router) {
	withUser := func(endpoint string, next http.HandlerFunc) http.HandlerFunc {
		return h.metricsMiddleware(endpoint, h.identity.Middleware(next).ServeHTTP)
	}

	router.HandleFunc("/api/funds", withUser("/api/funds", h.ListFunds)).Methods("GET")
	router.HandleFunc("/api/funds/{code}", withUser("/api/funds/{code}", h.GetFund)).Methods("GET")
	router.HandleFunc("/api/favorites", h.metricsMiddleware("/api/favorites", h.GetFavorites)).Methods("GET")
	router.HandleFunc("/api/favorites/{code}/toggle", withUser("/api/favorites/{code}/toggle", h.ToggleFavorite)).Methods("POST")
	router.HandleFunc("/api/session", withUser("/api/session", h.GetSession)).Methods("GET")
	router.HandleFunc("/api/view", withUser("/api/view", h.GetView)).Methods("GET")
	router.HandleFunc("/api/view", withUser("/api/view", h.SaveView)).Methods("PUT")
}

// user returns the key resolved by the identity middleware, resolving it here
// when the middleware is not installed.
func (h *FundHandler) user(w http.ResponseWriter, r *http.Request) domain.UserKey {
	if key, ok := identity.FromContext(r.Context()); ok {
		return key
	}
	key, _ := h.identity.GetOrCreate(w, r)
	return key
}

// ListFunds handles GET /api/funds
func (h *FundHandler) ListFunds(w http.ResponseWriter, r *http.Request) {
	override, err := parseViewOverride(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	result := h.listHandler.Handle(r.Context(), query.ListFundsQuery{
		User:     h.user(w, r),
		Override: override,
	})

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

func parseViewOverride(r *http.Request) (query.ViewOverride, error) {
	var o query.ViewOverride
	q := r.URL.Query()

	if q.Has("search") {
		search := q.Get("search")
		o.SearchTerm = &search
	}
	if v := q.Get("sort"); v != "" {
		field, err := domain.ParseSortField(v)
		if err != nil {
			return o, err
		}
		o.SortField = &field
	}
	if v := q.Get("direction"); v != "" {
		dir, err := domain.ParseSortDirection(v)
		if err != nil {
			return o, err
		}
		o.SortDirection = &dir
	}
	if v := q.Get("favorites_only"); v != "" {
		only, err := strconv.ParseBool(v)
		if err != nil {
			return o, errors.New("favorites_only must be a boolean")
		}
		o.FavoritesOnly = &only
	}
	return o, nil
}

// GetFund handles GET /api/funds/{code}
func (h *FundHandler) GetFund(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	result, err := h.getFundHandler.Handle(r.Context(), query.GetFundQuery{
		User: h.user(w, r),
		Code: code,
	})
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Failed to get fund"
		switch {
		case errors.Is(err, domain.ErrFundNotFound):
			status, msg = http.StatusNotFound, "Fund not found"
		case errors.Is(err, domain.ErrInvalidFundCode):
			status, msg = http.StatusBadRequest, "Invalid fund code"
		default:
			logger.Error(r.Context()).Err(err).Str("fund_code", code).Msg("Failed to get fund")
		}
		respondJSON(w, status, Response{
			Success: false,
			Error:   msg,
		})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// GetFavorites handles GET /api/favorites. It reads the durable store only and
// never issues a cookie.
func (h *FundHandler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	user, _ := h.identity.Lookup(r)

	favorites, err := h.favoritesHandler.Handle(r.Context(), query.GetFavoritesQuery{User: user})
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to list favorites")
		respondJSON(w, http.StatusInternalServerError, FavoritesResponse{
			Favorites: []string{},
			Error:     "Failed to fetch favorites",
		})
		return
	}

	respondJSON(w, http.StatusOK, FavoritesResponse{Favorites: favorites})
}

// ToggleFavorite handles POST /api/favorites/{code}/toggle
func (h *FundHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(mux.Vars(r)["code"])
	if code == "" {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid fund code",
		})
		return
	}

	res := h.toggleHandler.Handle(r.Context(), command.ToggleFavoriteCommand{
		User: h.user(w, r),
		Code: code,
	})
	h.metrics.observeToggle(res)

	data := ToggleResponse{
		Outcome:    res.Outcome,
		Code:       code,
		IsFavorite: res.IsFavorite,
		Source:     res.Source,
		Notice:     toggleNotice(res),
	}

	if res.Outcome == reconciler.OutcomeError {
		respondJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Data:    data,
			Error:   "Failed to update favorite",
		})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func toggleNotice(res reconciler.ToggleResult) string {
	switch {
	case res.Outcome == reconciler.OutcomeError:
		return noticeError
	case res.Outcome == reconciler.OutcomeFallback:
		return noticeFallback
	case res.Source == reconciler.StateLocalFallback:
		return noticeLocalOnly
	}
	return ""
}

// GetSession handles GET /api/session
func (h *FundHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	result := h.sessionHandler.Handle(r.Context(), query.GetSessionQuery{User: h.user(w, r)})
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// GetView handles GET /api/view
func (h *FundHandler) GetView(w http.ResponseWriter, r *http.Request) {
	view := h.viewHandler.Handle(r.Context(), query.GetViewStateQuery{User: h.user(w, r)})
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    view,
	})
}

// SaveView handles PUT /api/view
func (h *FundHandler) SaveView(w http.ResponseWriter, r *http.Request) {
	var view domain.ViewState
	if err := json.NewDecoder(r.Body).Decode(&view); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	saved, err := h.saveViewHandler.Handle(r.Context(), command.SaveViewStateCommand{
		User: h.user(w, r),
		View: view,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidView) {
			status = http.StatusBadRequest
		} else {
			logger.Error(r.Context()).Err(err).Msg("Failed to save view state")
		}
		respondJSON(w, status, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "View saved",
		Data:    saved,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}
