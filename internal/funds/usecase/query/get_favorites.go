package query

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/reconciler"
	"github.com/tair/fundwatch/pkg/logger"
)

// GetFavoritesQuery represents the query to read favorites straight from the durable store
type GetFavoritesQuery struct {
	User domain.UserKey
}

// GetFavoritesHandler handles get favorites query. It bypasses the session
// and the local cache.
type GetFavoritesHandler struct {
	durable reconciler.Durable
}

// NewGetFavoritesHandler creates a new get favorites handler
func NewGetFavoritesHandler(durable reconciler.Durable) *GetFavoritesHandler {
	return &GetFavoritesHandler{durable: durable}
}

// Handle executes the get favorites query. A missing user or an unreachable
// store yields an empty list; only a failed read of a reachable store errors.
func (h *GetFavoritesHandler) Handle(ctx context.Context, query GetFavoritesQuery) ([]string, error) {
	if query.User == "" {
		return []string{}, nil
	}

	store, err := h.durable.Connect(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			logger.Debug(ctx).Err(err).Msg("Favorites requested while store unavailable")
			return []string{}, nil
		}
		return nil, err
	}

	codes, err := store.List(ctx, query.User)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	if codes == nil {
		codes = []string{}
	}
	sort.Strings(codes)
	return codes, nil
}
