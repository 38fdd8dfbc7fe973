package localcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/pkg/logger"
)

// Persisted key names
const (
	FavoritesKey       = "fundFavorites"
	SearchTermKey      = "fundSearchTerm"
	FilterFavoritesKey = "fundFilterFavorites"
	SortFieldKey       = "fundSortField"
	SortDirectionKey   = "fundSortDirection"
)

// FavoritesCache stores a user's favorite codes as a JSON array
type FavoritesCache struct {
	kv KV
}

// NewFavoritesCache wraps kv
func NewFavoritesCache(kv KV) *FavoritesCache {
	return &FavoritesCache{kv: kv}
}

// Load returns the cached set. Missing, unreadable and corrupt data all read as empty.
func (c *FavoritesCache) Load(ctx context.Context, user domain.UserKey) domain.FavoriteSet {
	raw, ok, err := c.kv.Get(ctx, string(user), FavoritesKey)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("user_key", string(user)).Msg("Local favorites unreadable, treating as empty")
		return domain.NewFavoriteSet()
	}
	if !ok {
		return domain.NewFavoriteSet()
	}

	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		logger.Warn(ctx).Err(err).Str("user_key", string(user)).Msg("Local favorites corrupt, treating as empty")
		return domain.NewFavoriteSet()
	}
	return domain.NewFavoriteSet(codes...)
}

// Save overwrites the cached set
func (c *FavoritesCache) Save(ctx context.Context, user domain.UserKey, set domain.FavoriteSet) error {
	raw, err := json.Marshal(set.Sorted())
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	if err := c.kv.Put(ctx, string(user), FavoritesKey, string(raw)); err != nil {
		return fmt.Errorf("failed to save local favorites: %w", err)
	}
	return nil
}
