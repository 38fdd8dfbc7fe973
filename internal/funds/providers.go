// Package funds assembles the fund list service from its parts.
package funds

import (
	"context"
	"database/sql"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tair/fundwatch/internal/config"
	httpDelivery "github.com/tair/fundwatch/internal/funds/delivery/http"
	"github.com/tair/fundwatch/internal/funds/engine"
	"github.com/tair/fundwatch/internal/funds/identity"
	"github.com/tair/fundwatch/internal/funds/localcache"
	"github.com/tair/fundwatch/internal/funds/provider"
	"github.com/tair/fundwatch/internal/funds/reconciler"
	"github.com/tair/fundwatch/internal/funds/store"
	"github.com/tair/fundwatch/internal/funds/usecase/command"
	"github.com/tair/fundwatch/internal/funds/usecase/query"
	"github.com/tair/fundwatch/kafka"
	"github.com/tair/fundwatch/pkg/database"
	"github.com/tair/fundwatch/pkg/logger"
)

// App is the assembled service
type App struct {
	Router    *mux.Router
	Connector *store.Connector
	Sessions  *reconciler.Registry

	Toggle    *command.ToggleFavoriteHandler
	List      *query.ListFundsHandler
	GetFund   *query.GetFundHandler
	Favorites *query.GetFavoritesHandler
	Session   *query.GetSessionHandler
}

// NewApp bundles the pieces a caller needs
func NewApp(
	router *mux.Router,
	connector *store.Connector,
	sessions *reconciler.Registry,
	toggle *command.ToggleFavoriteHandler,
	list *query.ListFundsHandler,
	getFund *query.GetFundHandler,
	favorites *query.GetFavoritesHandler,
	session *query.GetSessionHandler,
) *App {
	return &App{
		Router:    router,
		Connector: connector,
		Sessions:  sessions,
		Toggle:    toggle,
		List:      list,
		GetFund:   getFund,
		Favorites: favorites,
		Session:   session,
	}
}

// ProvideConnector selects the durable favorites backend
func ProvideConnector(cfg *config.Config) (*store.Connector, func()) {
	breaker := store.NewCircuitBreaker(cfg.FavoritesBackend, cfg.DialMaxFailures, cfg.DialCooldown)

	var dial store.Dialer
	switch cfg.FavoritesBackend {
	case config.BackendRedis:
		dial = store.RedisDialer(store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case config.BackendPostgres:
		dial = store.PostgresDialer(cfg.Postgres)
	default:
		dial = store.Unconfigured("durable favorites store disabled")
	}

	connector := store.NewConnector(cfg.FavoritesBackend, dial, breaker)
	return connector, func() {
		if err := connector.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("Failed to close favorites store")
		}
	}
}

// ProvideDurable exposes the connector to the reconciler
func ProvideDurable(c *store.Connector) reconciler.Durable {
	return c
}

// ProvideLocalKV opens the SQLite cache, or keeps values in memory when no
// path is set or the file cannot be opened.
func ProvideLocalKV(cfg *config.Config) (localcache.KV, func()) {
	if cfg.LocalCachePath == "" {
		logger.Logger.Info().Msg("Local cache kept in memory")
		return localcache.NewMemoryKV(), func() {}
	}

	db, err := database.OpenSQLite(cfg.LocalCachePath)
	if err == nil {
		var kv *localcache.SQLiteKV
		if kv, err = localcache.NewSQLiteKV(db); err == nil {
			logger.Logger.Info().Str("path", cfg.LocalCachePath).Msg("Local cache opened")
			return kv, closeDB(db)
		}
		db.Close()
	}

	logger.Logger.Warn().
		Err(err).
		Str("path", cfg.LocalCachePath).
		Msg("Local cache unavailable, keeping values in memory")
	return localcache.NewMemoryKV(), func() {}
}

func closeDB(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("Failed to close local cache")
		}
	}
}

// ProvideStrategy parses the configured reconcile strategy
func ProvideStrategy(cfg *config.Config) (reconciler.Strategy, error) {
	return reconciler.ParseStrategy(cfg.ReconcileStrategy)
}

// ProvideRegistry creates the per-user session registry
func ProvideRegistry(cfg *config.Config, durable reconciler.Durable, local *localcache.FavoritesCache, strategy reconciler.Strategy) *reconciler.Registry {
	return reconciler.NewRegistry(durable, local, strategy, cfg.SessionTTL)
}

// ProvideFundClient creates the upstream API client
func ProvideFundClient(cfg *config.Config) *provider.Client {
	return provider.New(provider.Config{
		BaseURL:  cfg.FundsAPIURL,
		Timeout:  cfg.FundsTimeout,
		RetryMax: cfg.FundsRetryMax,
	})
}

// ProvideEngine creates the view engine for the configured locale
func ProvideEngine(cfg *config.Config) engine.Engine {
	return engine.New(engine.ParseLocale(cfg.FundsLocale))
}

// ProvidePublisher connects to Kafka when brokers are configured. Without
// brokers, or when the producer cannot start, toggles are not published.
func ProvidePublisher(cfg *config.Config) (command.EventPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, func() {}
	}

	publisher, err := kafka.NewPublisher(cfg.KafkaBrokers)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Kafka unavailable, favorite events will not be published")
		return nil, func() {}
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("Failed to close Kafka publisher")
		}
	}
}

// ProvidePrometheusRegistry creates the registry served on /metrics
func ProvidePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics registers the service collectors
func ProvideMetrics(reg *prometheus.Registry, sessions *reconciler.Registry) *httpDelivery.Metrics {
	return httpDelivery.NewMetrics(reg, sessions)
}

// ProvideIdentity creates the cookie identity provider
func ProvideIdentity(cfg *config.Config, metrics *httpDelivery.Metrics) *identity.Provider {
	return identity.NewProvider(
		identity.WithSecureCookie(cfg.CookieSecure),
		identity.WithIssueHook(metrics.KeyIssued),
	)
}

// ProvideHealthChecker checks the durable store and the local cache
func ProvideHealthChecker(cfg *config.Config, connector *store.Connector, kv localcache.KV) *httpDelivery.HealthChecker {
	return httpDelivery.NewHealthChecker(cfg.ServiceName, map[string]httpDelivery.Check{
		"favorites_store": connector.Ping,
		"local_cache": func(ctx context.Context) error {
			_, _, err := kv.Get(ctx, "health", "ping")
			return err
		},
	})
}

// ProvideRouter builds the HTTP router
func ProvideRouter(cfg *config.Config, h *httpDelivery.FundHandler, health *httpDelivery.HealthChecker, reg *prometheus.Registry) *mux.Router {
	return httpDelivery.NewRouter(h, health, reg, httpDelivery.MiddlewareConfig{
		EnableLogging: true,
		EnableTracing: cfg.TracingOn,
	})
}
