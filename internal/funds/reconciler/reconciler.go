// Package reconciler decides, per session, whether the durable store or the
// local cache is the authoritative source of a user's favorites.
//
// A session starts in StateUnknown. The first Load moves it to
// StateDurableActive or StateLocalFallback. LocalFallback is terminal: once a
// session has fallen back it never contacts the durable store again, so the
// data source cannot flip back and forth mid-session.
//
// A Reconciler does no locking of its own; Session provides the mutex callers
// must hold.
package reconciler

import (
	"context"
	"fmt"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/pkg/logger"
)

// State of a session's favorites source
type State int

const (
	StateUnknown State = iota
	StateDurableActive
	StateLocalFallback
)

func (s State) String() string {
	switch s {
	case StateDurableActive:
		return "durable"
	case StateLocalFallback:
		return "local"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "durable":
		*s = StateDurableActive
	case "local":
		*s = StateLocalFallback
	case "unknown", "":
		*s = StateUnknown
	default:
		return fmt.Errorf("unknown favorites state %q", b)
	}
	return nil
}

// Outcome of a toggle
type Outcome string

const (
	// OutcomeSuccess: membership flipped in the current source
	OutcomeSuccess Outcome = "success"
	// OutcomeFallback: the durable store failed, membership flipped in the local cache instead
	OutcomeFallback Outcome = "fallback"
	// OutcomeError: nothing changed
	OutcomeError Outcome = "error"
)

// ToggleResult describes what a toggle did
type ToggleResult struct {
	Outcome    Outcome
	Code       string
	IsFavorite bool
	Source     State
	Err        error
}

// Durable hands out the shared durable store
type Durable interface {
	Connect(ctx context.Context) (domain.FavoriteStore, error)
}

// Local is the node-local favorites cache
type Local interface {
	Load(ctx context.Context, user domain.UserKey) domain.FavoriteSet
	Save(ctx context.Context, user domain.UserKey, set domain.FavoriteSet) error
}

// Reconciler owns one session's favorite set
type Reconciler struct {
	user     domain.UserKey
	durable  Durable
	local    Local
	strategy Strategy

	state     State
	favorites domain.FavoriteSet
}

// New creates a reconciler in StateUnknown
func New(user domain.UserKey, durable Durable, local Local, strategy Strategy) *Reconciler {
	return &Reconciler{
		user:      user,
		durable:   durable,
		local:     local,
		strategy:  strategy,
		favorites: domain.NewFavoriteSet(),
	}
}

// State returns the current source
func (r *Reconciler) State() State {
	return r.state
}

// Favorites returns a copy of the current set
func (r *Reconciler) Favorites() domain.FavoriteSet {
	return r.favorites.Clone()
}

// Load resolves the session's source on first use and returns the favorite set
func (r *Reconciler) Load(ctx context.Context) domain.FavoriteSet {
	if r.state == StateUnknown {
		r.resolve(ctx)
	}
	return r.Favorites()
}

func (r *Reconciler) resolve(ctx context.Context) {
	log := logger.WithContext(ctx).With().Str("user_key", string(r.user)).Logger()

	local := r.local.Load(ctx, r.user)

	store, err := r.durable.Connect(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Durable favorites unreachable, using local cache")
		r.fallBack(local)
		return
	}

	codes, err := store.List(ctx, r.user)
	if err != nil {
		log.Warn().Err(err).Msg("Listing durable favorites failed, using local cache")
		r.fallBack(local)
		return
	}
	durable := domain.NewFavoriteSet(codes...)

	state, set, err := r.strategy.Reconcile(ctx, r.user, store, durable, local)
	if err != nil {
		log.Warn().Err(err).Msg("Reconciling favorites failed, using local cache")
	}

	if state == StateLocalFallback {
		r.fallBack(set)
		if err := r.local.Save(ctx, r.user, set); err != nil {
			log.Warn().Err(err).Msg("Seeding local favorites failed")
		}
		return
	}

	r.state = StateDurableActive
	r.favorites = set
	if len(local) > 0 {
		r.retireLocal(ctx)
	}
}

// retireLocal empties the local cache once the durable store has taken over.
// The cache only ever holds favorites written while falling back, so a stale
// copy would be mistaken for them if the durable set is emptied later.
func (r *Reconciler) retireLocal(ctx context.Context) {
	if err := r.local.Save(ctx, r.user, domain.NewFavoriteSet()); err != nil {
		logger.Warn(ctx).Err(err).Str("user_key", string(r.user)).Msg("Clearing local favorites failed")
	}
}

func (r *Reconciler) fallBack(set domain.FavoriteSet) {
	r.state = StateLocalFallback
	r.favorites = set.Clone()
}

// Toggle flips code's membership. It either fully succeeds (in the durable
// store, or in the local cache after falling back) or changes nothing.
func (r *Reconciler) Toggle(ctx context.Context, code string) ToggleResult {
	if code == "" {
		return ToggleResult{Outcome: OutcomeError, Source: r.state, Err: domain.ErrInvalidFundCode}
	}
	if r.state == StateUnknown {
		r.resolve(ctx)
	}

	next := r.favorites.Toggled(code)
	adding := next.Has(code)

	if r.state == StateLocalFallback {
		return r.toggleLocal(ctx, code, next, OutcomeSuccess, nil)
	}

	err := r.toggleDurable(ctx, code, adding)
	if err == nil {
		r.favorites = next
		return ToggleResult{Outcome: OutcomeSuccess, Code: code, IsFavorite: adding, Source: r.state}
	}

	logger.Warn(ctx).Err(err).
		Str("user_key", string(r.user)).
		Str("fund_code", code).
		Msg("Durable favorites write failed, falling back to local cache for this session")

	r.state = StateLocalFallback
	return r.toggleLocal(ctx, code, next, OutcomeFallback, err)
}

func (r *Reconciler) toggleDurable(ctx context.Context, code string, adding bool) error {
	store, err := r.durable.Connect(ctx)
	if err != nil {
		return err
	}
	if adding {
		err = store.Add(ctx, r.user, code)
	} else {
		err = store.Remove(ctx, r.user, code)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Reconciler) toggleLocal(ctx context.Context, code string, next domain.FavoriteSet, outcome Outcome, cause error) ToggleResult {
	if err := r.local.Save(ctx, r.user, next); err != nil {
		return ToggleResult{
			Outcome:    OutcomeError,
			Code:       code,
			IsFavorite: r.favorites.Has(code),
			Source:     r.state,
			Err:        err,
		}
	}
	r.favorites = next
	return ToggleResult{
		Outcome:    outcome,
		Code:       code,
		IsFavorite: next.Has(code),
		Source:     r.state,
		Err:        cause,
	}
}
