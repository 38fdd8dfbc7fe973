package reconciler

import (
	"context"
	"fmt"

	"github.com/tair/fundwatch/internal/funds/domain"
)

// Strategy decides the initial source of a session whose durable store is
// reachable. Which of the two sets is more recent cannot be known, so the
// choice is a configuration option rather than a guess.
type Strategy interface {
	Name() string
	Reconcile(ctx context.Context, user domain.UserKey, store domain.FavoriteStore, durable, local domain.FavoriteSet) (State, domain.FavoriteSet, error)
}

// ParseStrategy maps a configuration value to a strategy
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "source-wins":
		return SourceWins{}, nil
	case "union":
		return Union{}, nil
	}
	return nil, fmt.Errorf("unknown reconcile strategy %q", name)
}

// SourceWins keeps the durable set, except that an empty durable set with a
// non-empty local cache means the last session ran on the local cache, and the
// local set is used for this session too.
type SourceWins struct{}

func (SourceWins) Name() string { return "source-wins" }

func (SourceWins) Reconcile(_ context.Context, _ domain.UserKey, _ domain.FavoriteStore, durable, local domain.FavoriteSet) (State, domain.FavoriteSet, error) {
	if len(durable) == 0 && len(local) > 0 {
		return StateLocalFallback, local, nil
	}
	return StateDurableActive, durable, nil
}

// Union merges both sets and writes local-only codes back to the durable
// store. Codes removed on one side but still present on the other come back.
type Union struct{}

func (Union) Name() string { return "union" }

func (Union) Reconcile(ctx context.Context, user domain.UserKey, store domain.FavoriteStore, durable, local domain.FavoriteSet) (State, domain.FavoriteSet, error) {
	merged := durable.Union(local)
	for _, code := range local.Difference(durable).Sorted() {
		if err := store.Add(ctx, user, code); err != nil {
			return StateLocalFallback, merged, fmt.Errorf("failed to push local favorite %s: %w", code, err)
		}
	}
	return StateDurableActive, merged, nil
}
