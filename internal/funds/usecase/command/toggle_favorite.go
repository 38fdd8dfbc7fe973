package command

import (
	"context"
	"errors"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/reconciler"
	"github.com/tair/fundwatch/kafka"
	"github.com/tair/fundwatch/pkg/logger"
)

var errUserRequired = errors.New("user key is required")

// EventPublisher publishes favorite change events
type EventPublisher interface {
	PublishFavoriteToggled(ctx context.Context, event kafka.FavoriteToggledEvent) error
}

// ToggleFavoriteCommand represents the command to flip a fund's favorite flag
type ToggleFavoriteCommand struct {
	User domain.UserKey
	Code string
}

// ToggleFavoriteHandler handles toggle favorite command
type ToggleFavoriteHandler struct {
	sessions  *reconciler.Registry
	publisher EventPublisher
}

// NewToggleFavoriteHandler creates a new toggle favorite handler. publisher may be nil.
func NewToggleFavoriteHandler(sessions *reconciler.Registry, publisher EventPublisher) *ToggleFavoriteHandler {
	return &ToggleFavoriteHandler{sessions: sessions, publisher: publisher}
}

// Handle executes the toggle favorite command. The result is always
// structured; an OutcomeError result leaves the favorites unchanged.
func (h *ToggleFavoriteHandler) Handle(ctx context.Context, cmd ToggleFavoriteCommand) reconciler.ToggleResult {
	if cmd.User == "" {
		return reconciler.ToggleResult{Outcome: reconciler.OutcomeError, Code: cmd.Code, Err: errUserRequired}
	}

	var res reconciler.ToggleResult
	h.sessions.Get(cmd.User).Do(func(r *reconciler.Reconciler) {
		res = r.Toggle(ctx, cmd.Code)
	})

	log := logger.Info(ctx)
	if res.Outcome == reconciler.OutcomeError {
		log = logger.Warn(ctx).Err(res.Err)
	}
	log.Str("user_key", string(cmd.User)).
		Str("fund_code", cmd.Code).
		Str("outcome", string(res.Outcome)).
		Stringer("source", res.Source).
		Bool("is_favorite", res.IsFavorite).
		Msg("Favorite toggled")

	if res.Outcome != reconciler.OutcomeError {
		h.publish(ctx, cmd.User, res)
	}
	return res
}

func (h *ToggleFavoriteHandler) publish(ctx context.Context, user domain.UserKey, res reconciler.ToggleResult) {
	if h.publisher == nil {
		return
	}
	err := h.publisher.PublishFavoriteToggled(ctx, kafka.FavoriteToggledEvent{
		UserKey:    string(user),
		FundCode:   res.Code,
		IsFavorite: res.IsFavorite,
		Source:     res.Source.String(),
		Outcome:    string(res.Outcome),
	})
	if err != nil {
		logger.Warn(ctx).Err(err).Str("fund_code", res.Code).Msg("Favorite event not published")
	}
}
