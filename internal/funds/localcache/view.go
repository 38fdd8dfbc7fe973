package localcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/pkg/logger"
)

// ViewStateStore persists the list settings field by field, so one corrupt
// entry only resets that field.
type ViewStateStore struct {
	kv KV
}

// NewViewStateStore wraps kv
func NewViewStateStore(kv KV) *ViewStateStore {
	return &ViewStateStore{kv: kv}
}

// Load returns the stored view state, defaulting every missing or corrupt field
func (s *ViewStateStore) Load(ctx context.Context, user domain.UserKey) domain.ViewState {
	view := domain.DefaultViewState()

	var search string
	if s.read(ctx, user, SearchTermKey, &search) {
		view.SearchTerm = search
	}
	var onlyFavorites bool
	if s.read(ctx, user, FilterFavoritesKey, &onlyFavorites) {
		view.FavoritesOnly = onlyFavorites
	}
	var field string
	if s.read(ctx, user, SortFieldKey, &field) {
		if f, err := domain.ParseSortField(field); err == nil {
			view.SortField = f
		}
	}
	var direction string
	if s.read(ctx, user, SortDirectionKey, &direction) {
		if d, err := domain.ParseSortDirection(direction); err == nil {
			view.SortDirection = d
		}
	}

	return view
}

// Save writes every field of view in one batch, so a failed save leaves the
// previous settings whole.
func (s *ViewStateStore) Save(ctx context.Context, user domain.UserKey, view domain.ViewState) error {
	view = view.Normalize()
	fields := map[string]any{
		SearchTermKey:      view.SearchTerm,
		FilterFavoritesKey: view.FavoritesOnly,
		SortFieldKey:       string(view.SortField),
		SortDirectionKey:   string(view.SortDirection),
	}

	values := make(map[string]string, len(fields))
	for name, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		values[name] = string(raw)
	}
	if err := s.kv.PutAll(ctx, string(user), values); err != nil {
		return fmt.Errorf("failed to save view state: %w", err)
	}
	return nil
}

func (s *ViewStateStore) read(ctx context.Context, user domain.UserKey, name string, dst any) bool {
	raw, ok, err := s.kv.Get(ctx, string(user), name)
	if err != nil || !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		logger.Debug(ctx).Err(err).Str("key", name).Msg("Ignoring corrupt view setting")
		return false
	}
	return true
}
