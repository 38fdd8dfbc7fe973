package query

import (
	"context"
	"fmt"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/reconciler"
)

// GetFundQuery represents the query to get one fund's detail
type GetFundQuery struct {
	User domain.UserKey
	Code string
}

// FundDetailResult is a fund detail with the user's favorite flag
type FundDetailResult struct {
	*domain.FundDetail
	IsFavorite bool `json:"isFavorite"`
}

// GetFundHandler handles get fund query
type GetFundHandler struct {
	funds    FundSource
	sessions *reconciler.Registry
}

// NewGetFundHandler creates a new get fund handler
func NewGetFundHandler(funds FundSource, sessions *reconciler.Registry) *GetFundHandler {
	return &GetFundHandler{funds: funds, sessions: sessions}
}

// Handle executes the get fund query
func (h *GetFundHandler) Handle(ctx context.Context, query GetFundQuery) (*FundDetailResult, error) {
	if query.Code == "" {
		return nil, domain.ErrInvalidFundCode
	}

	detail, err := h.funds.GetFund(ctx, query.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to get fund: %w", err)
	}

	var favorite bool
	h.sessions.Get(query.User).Do(func(r *reconciler.Reconciler) {
		favorite = r.Load(ctx).Has(detail.Code)
	})

	return &FundDetailResult{FundDetail: detail, IsFavorite: favorite}, nil
}
