package query

import (
	"context"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/provider"
)

// FundSource supplies fund data
type FundSource interface {
	ListFunds(ctx context.Context) provider.Snapshot
	GetFund(ctx context.Context, code string) (*domain.FundDetail, error)
}

// ViewStore loads a user's persisted list settings
type ViewStore interface {
	Load(ctx context.Context, user domain.UserKey) domain.ViewState
}
