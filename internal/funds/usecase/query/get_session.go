package query

import (
	"context"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/reconciler"
)

// GetSessionQuery represents the query to describe a user's session
type GetSessionQuery struct {
	User domain.UserKey
}

// SessionResult describes where a session's favorites come from
type SessionResult struct {
	State     reconciler.State `json:"state"`
	Favorites []string         `json:"favorites"`
	Strategy  string           `json:"strategy"`
}

// GetSessionHandler handles get session query
type GetSessionHandler struct {
	sessions *reconciler.Registry
}

// NewGetSessionHandler creates a new get session handler
func NewGetSessionHandler(sessions *reconciler.Registry) *GetSessionHandler {
	return &GetSessionHandler{sessions: sessions}
}

// Handle executes the get session query
func (h *GetSessionHandler) Handle(ctx context.Context, query GetSessionQuery) SessionResult {
	res := SessionResult{Strategy: h.sessions.Strategy().Name()}
	h.sessions.Get(query.User).Do(func(r *reconciler.Reconciler) {
		res.Favorites = r.Load(ctx).Sorted()
		res.State = r.State()
	})
	return res
}
