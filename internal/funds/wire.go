//go:build wireinject
// +build wireinject

package funds

import (
	"github.com/google/wire"

	"github.com/tair/fundwatch/internal/config"
	httpDelivery "github.com/tair/fundwatch/internal/funds/delivery/http"
	"github.com/tair/fundwatch/internal/funds/localcache"
	"github.com/tair/fundwatch/internal/funds/provider"
	"github.com/tair/fundwatch/internal/funds/usecase/command"
	"github.com/tair/fundwatch/internal/funds/usecase/query"
)

// Wire sets
var StorageSet = wire.NewSet(
	ProvideConnector,
	ProvideDurable,
	ProvideLocalKV,
	localcache.NewFavoritesCache,
	localcache.NewViewStateStore,
	wire.Bind(new(query.ViewStore), new(*localcache.ViewStateStore)),
	wire.Bind(new(command.ViewStore), new(*localcache.ViewStateStore)),
	ProvideStrategy,
	ProvideRegistry,
)

var SourceSet = wire.NewSet(
	ProvideFundClient,
	wire.Bind(new(query.FundSource), new(*provider.Client)),
	ProvideEngine,
	ProvidePublisher,
)

var CommandHandlerSet = wire.NewSet(
	command.NewToggleFavoriteHandler,
	command.NewSaveViewStateHandler,
)

var QueryHandlerSet = wire.NewSet(
	query.NewListFundsHandler,
	query.NewGetFundHandler,
	query.NewGetFavoritesHandler,
	query.NewGetSessionHandler,
	query.NewGetViewStateHandler,
)

var DeliverySet = wire.NewSet(
	ProvidePrometheusRegistry,
	ProvideMetrics,
	ProvideIdentity,
	ProvideHealthChecker,
	httpDelivery.NewFundHandler,
	ProvideRouter,
)

// InitializeApp wires the whole service from configuration
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		StorageSet,
		SourceSet,
		CommandHandlerSet,
		QueryHandlerSet,
		DeliverySet,
		NewApp,
	)
	return nil, nil, nil
}
