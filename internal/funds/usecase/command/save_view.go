package command

import (
	"context"
	"fmt"

	"github.com/tair/fundwatch/internal/funds/domain"
)

// ViewStore persists a user's list settings
type ViewStore interface {
	Save(ctx context.Context, user domain.UserKey, view domain.ViewState) error
}

// SaveViewStateCommand represents the command to persist list settings
type SaveViewStateCommand struct {
	User domain.UserKey
	View domain.ViewState
}

// SaveViewStateHandler handles save view state command
type SaveViewStateHandler struct {
	views ViewStore
}

// NewSaveViewStateHandler creates a new save view state handler
func NewSaveViewStateHandler(views ViewStore) *SaveViewStateHandler {
	return &SaveViewStateHandler{views: views}
}

// Handle executes the save view state command
func (h *SaveViewStateHandler) Handle(ctx context.Context, cmd SaveViewStateCommand) (domain.ViewState, error) {
	view := cmd.View
	if view.SortField == "" {
		view.SortField = domain.SortByName
	}
	if view.SortDirection == "" {
		view.SortDirection = domain.Ascending
	}
	if _, err := domain.ParseSortField(string(view.SortField)); err != nil {
		return domain.ViewState{}, err
	}
	if _, err := domain.ParseSortDirection(string(view.SortDirection)); err != nil {
		return domain.ViewState{}, err
	}

	if err := h.views.Save(ctx, cmd.User, view); err != nil {
		return domain.ViewState{}, fmt.Errorf("failed to save view state: %w", err)
	}
	return view, nil
}
