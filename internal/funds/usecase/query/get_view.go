package query

import (
	"context"

	"github.com/tair/fundwatch/internal/funds/domain"
)

// GetViewStateQuery represents the query to read persisted list settings
type GetViewStateQuery struct {
	User domain.UserKey
}

// GetViewStateHandler handles get view state query
type GetViewStateHandler struct {
	views ViewStore
}

// NewGetViewStateHandler creates a new get view state handler
func NewGetViewStateHandler(views ViewStore) *GetViewStateHandler {
	return &GetViewStateHandler{views: views}
}

// Handle executes the get view state query
func (h *GetViewStateHandler) Handle(ctx context.Context, query GetViewStateQuery) domain.ViewState {
	return h.views.Load(ctx, query.User)
}
