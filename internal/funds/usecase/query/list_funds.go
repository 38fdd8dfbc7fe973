package query

import (
	"context"
	"time"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/engine"
	"github.com/tair/fundwatch/internal/funds/reconciler"
)

// ViewOverride replaces individual persisted view settings for one request
type ViewOverride struct {
	SearchTerm    *string
	SortField     *domain.SortField
	SortDirection *domain.SortDirection
	FavoritesOnly *bool
}

// Apply returns view with the set fields replaced
func (o ViewOverride) Apply(view domain.ViewState) domain.ViewState {
	if o.SearchTerm != nil {
		view.SearchTerm = *o.SearchTerm
	}
	if o.SortField != nil {
		view.SortField = *o.SortField
	}
	if o.SortDirection != nil {
		view.SortDirection = *o.SortDirection
	}
	if o.FavoritesOnly != nil {
		view.FavoritesOnly = *o.FavoritesOnly
	}
	return view
}

// ListFundsQuery represents the query to list the funds a user sees
type ListFundsQuery struct {
	User     domain.UserKey
	Override ViewOverride
}

// FundItem is a fund row with the user's favorite flag
type FundItem struct {
	domain.FundRecord
	IsFavorite bool `json:"isFavorite"`
}

// ListFundsResult is the computed fund list
type ListFundsResult struct {
	Funds           []FundItem       `json:"funds"`
	Total           int              `json:"total"`
	Available       int              `json:"available"`
	View            domain.ViewState `json:"view"`
	FavoritesSource reconciler.State `json:"favoritesSource"`
	FallbackData    bool             `json:"fallbackData"`
	FetchedAt       time.Time        `json:"fetchedAt"`
}

// ListFundsHandler handles list funds query
type ListFundsHandler struct {
	funds    FundSource
	sessions *reconciler.Registry
	views    ViewStore
	engine   engine.Engine
}

// NewListFundsHandler creates a new list funds handler
func NewListFundsHandler(funds FundSource, sessions *reconciler.Registry, views ViewStore, eng engine.Engine) *ListFundsHandler {
	return &ListFundsHandler{funds: funds, sessions: sessions, views: views, engine: eng}
}

// Handle executes the list funds query
func (h *ListFundsHandler) Handle(ctx context.Context, query ListFundsQuery) ListFundsResult {
	snap := h.funds.ListFunds(ctx)

	var (
		favorites domain.FavoriteSet
		source    reconciler.State
	)
	h.sessions.Get(query.User).Do(func(r *reconciler.Reconciler) {
		favorites = r.Load(ctx)
		source = r.State()
	})

	view := query.Override.Apply(h.views.Load(ctx, query.User)).Normalize()
	rows := h.engine.ComputeView(snap.Funds, favorites, view)

	items := make([]FundItem, len(rows))
	for i, rec := range rows {
		items[i] = FundItem{FundRecord: rec, IsFavorite: favorites.Has(rec.Code)}
	}

	return ListFundsResult{
		Funds:           items,
		Total:           len(items),
		Available:       len(snap.Funds),
		View:            view,
		FavoritesSource: source,
		FallbackData:    snap.Fallback,
		FetchedAt:       snap.FetchedAt,
	}
}
