// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tablewise/server/internal/application/devicestate"
	importerapp "github.com/tablewise/server/internal/application/importer"
	plannerapp "github.com/tablewise/server/internal/application/planner"
	recipeapp "github.com/tablewise/server/internal/application/recipe"
	"github.com/tablewise/server/internal/infrastructure/ai"
	"github.com/tablewise/server/internal/infrastructure/ai/gemini"
	"github.com/tablewise/server/internal/infrastructure/ai/openai"
	"github.com/tablewise/server/internal/infrastructure/clipper"
	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/internal/infrastructure/http/apiserver"
	"github.com/tablewise/server/internal/infrastructure/http/handlers"
	"github.com/tablewise/server/internal/infrastructure/http/middleware"
	"github.com/tablewise/server/internal/infrastructure/http/validation"
	"github.com/tablewise/server/internal/infrastructure/messaging"
	"github.com/tablewise/server/internal/infrastructure/monitoring"
	gormstore "github.com/tablewise/server/internal/infrastructure/persistence/gorm"
	"github.com/tablewise/server/internal/infrastructure/persistence/memory"
	"github.com/tablewise/server/internal/infrastructure/persistence/migrations"
	"github.com/tablewise/server/internal/infrastructure/persistence/postgres"
	"github.com/tablewise/server/internal/infrastructure/persistence/redis"
	"github.com/tablewise/server/internal/infrastructure/persistence/sqlite"
	"github.com/tablewise/server/internal/ports/inbound"
	"github.com/tablewise/server/internal/ports/outbound"
	"github.com/tablewise/server/pkg/healthcheck"
	"github.com/tablewise/server/pkg/logger"
)

// ConfigPath is the config file the application starts from; empty searches
// the default locations
type ConfigPath string

// New returns the application graph for the given config file
func New(configPath string) fx.Option {
	return fx.Options(
		fx.Supply(ConfigPath(configPath)),
		Module,
	)
}

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	StateModule,
	MonitoringModule,

	// Adapters
	EventModule,
	AIModule,

	// Service modules
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides the hot-reloadable configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Watcher, error) {
		return config.NewWatcher(string(path))
	},
	func(w *config.Watcher) (*config.Config, error) {
		cfg := w.Current()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*logger.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
	func(l *logger.Logger) *zap.Logger {
		return l.Logger
	},
)

// DatabaseModule provides the relational store and its repositories
var DatabaseModule = fx.Provide(
	newDatabase,
	fx.Annotate(
		gormstore.NewRecipeRepository,
		fx.As(new(outbound.RecipeRepository)),
	),
)

// CacheModule provides Redis when enabled and the recipe cache
var CacheModule = fx.Provide(
	newRedisClient,
	newCache,
)

// StateModule provides the device-scoped key/value store
var StateModule = fx.Provide(
	newStateBackend,
	devicestate.NewStore,
)

// MonitoringModule provides metrics and tracing
var MonitoringModule = fx.Provide(
	monitoring.NewMetrics,
	newTracing,
)

// EventModule provides the in-process event bus
var EventModule = fx.Provide(
	fx.Annotate(
		messaging.NewEventDispatcher,
		fx.As(new(outbound.MessageBus)),
	),
)

// AIModule provides transcription, structuring and page clipping
var AIModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) *openai.Client {
		return openai.NewClient(cfg.AI, log)
	},
	newTranscriber,
	newStructurer,
	fx.Annotate(
		func(cfg *config.Config, log *zap.Logger) *clipper.Fetcher {
			return clipper.NewFetcher(cfg.Importer, log)
		},
		fx.As(new(outbound.PageFetcher)),
	),
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	fx.Annotate(
		func(
			repo outbound.RecipeRepository,
			cache outbound.CacheRepository,
			bus outbound.MessageBus,
			cfg *config.Config,
			log *zap.Logger,
		) *recipeapp.RecipeService {
			return recipeapp.NewRecipeService(repo, cache, bus, log, recipeapp.WithCacheTTL(cfg.Cache.TTL))
		},
		fx.As(new(inbound.RecipeService)),
	),

	plannerapp.NewService,
	func(s *plannerapp.Service) inbound.PlannerService { return s },
	func(s *plannerapp.Service) inbound.UserMetaService { return s },

	fx.Annotate(
		importerapp.NewService,
		fx.As(new(inbound.ImportService)),
	),
)

// HTTPModule provides the handlers and the API server
var HTTPModule = fx.Provide(
	validation.New,
	func(cfg *config.Config, log *zap.Logger) *handlers.Responder {
		return handlers.NewResponder(log, cfg.Server.MaxBodyBytes)
	},
	handlers.NewRecipeHandlers,
	handlers.NewImportHandlers,
	handlers.NewPlannerHandlers,
	handlers.NewUserMetaHandlers,
	newHealthCheck,
	newRateLimiter,
	newServer,
)

// LifecycleModule wires event subscriptions and lifecycle hooks
var LifecycleModule = fx.Invoke(
	subscribeEventHandlers,
	RegisterLifecycleHooks,
)

func newDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err = postgres.Open(context.Background(), cfg.Database, log)
		if err == nil && cfg.Database.AutoMigrate {
			err = migrate(db, cfg.Database.Database, log)
		}
	default:
		db, err = sqlite.Open(cfg.Database, log)
	}
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

func migrate(db *gorm.DB, name string, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	m, err := migrations.New(sqlDB, name, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// newRedisClient returns nil when Redis is disabled
func newRedisClient(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (goredis.UniversalClient, error) {
	if !cfg.Redis.Enabled {
		if cfg.State.Backend == config.StateBackendRedis {
			return nil, fmt.Errorf("state backend %q requires redis.enabled", config.StateBackendRedis)
		}
		return nil, nil
	}

	client, err := redis.NewClient(context.Background(), cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newCache(lc fx.Lifecycle, cfg *config.Config, client goredis.UniversalClient, log *zap.Logger) outbound.CacheRepository {
	if client != nil {
		log.Info("Using Redis recipe cache")
		return redis.NewCacheRepository(client, cfg.Redis.KeyPrefix, log)
	}

	cache := memory.NewCacheRepository(cfg.Cache.MaxEntries)
	if cfg.Cache.SweepEvery > 0 {
		runInBackground(lc, func(ctx context.Context) { cache.Run(ctx, cfg.Cache.SweepEvery) })
	}
	log.Info("Using in-memory recipe cache", zap.Int("max_entries", cfg.Cache.MaxEntries))
	return cache
}

func newStateBackend(cfg *config.Config, db *gorm.DB, client goredis.UniversalClient) (outbound.StateStore, error) {
	switch cfg.State.Backend {
	case config.StateBackendMemory:
		return memory.NewStateStore(), nil
	case config.StateBackendRedis:
		if client == nil {
			return nil, fmt.Errorf("state backend %q requires redis.enabled", config.StateBackendRedis)
		}
		return redis.NewStateStore(client, cfg.Redis.KeyPrefix), nil
	default:
		return gormstore.NewStateStore(db), nil
	}
}

func newTracing(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
	tracing, err := monitoring.NewTracingProvider(context.Background(), monitoring.TracingConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		Endpoint:       cfg.Monitoring.OTLPEndpoint,
		Insecure:       cfg.Monitoring.OTLPInsecure,
		SamplingRate:   cfg.Monitoring.SamplingRate,
		Enabled:        cfg.Monitoring.EnableTracing,
	}, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: tracing.Shutdown})
	return tracing, nil
}

func newTranscriber(client *openai.Client, metrics *monitoring.Metrics, tracing *monitoring.TracingProvider) outbound.Transcriber {
	return monitoring.InstrumentTranscriber(client, "openai", metrics, tracing)
}

func newStructurer(
	lc fx.Lifecycle,
	cfg *config.Config,
	client *openai.Client,
	metrics *monitoring.Metrics,
	tracing *monitoring.TracingProvider,
	log *zap.Logger,
) (outbound.RecipeStructurer, error) {
	if cfg.AI.Structurer != config.StructurerGemini {
		return monitoring.InstrumentStructurer(client, config.StructurerOpenAI, metrics, tracing), nil
	}

	structurer, err := gemini.NewStructurer(context.Background(), cfg.AI, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return structurer.Close()
		},
	})
	return monitoring.InstrumentStructurer(structurer, config.StructurerGemini, metrics, tracing), nil
}

func newHealthCheck(
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	client goredis.UniversalClient,
	openaiClient *openai.Client,
) (*healthcheck.HealthCheck, error) {
	health := healthcheck.New(cfg.App.Version, log.Named("health"))

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	health.Register("database", healthcheck.NewDatabaseChecker(sqlDB))
	if client != nil {
		health.Register("redis", healthcheck.NewRedisChecker(client))
	}
	structurer := cfg.AI.Structurer
	if structurer == "" {
		structurer = config.StructurerOpenAI
	}
	health.Register("ai", ai.NewHealthChecker(openaiClient, structurer, log))
	return health, nil
}

// newRateLimiter returns nil when rate limiting is disabled
func newRateLimiter(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *middleware.RateLimiter {
	if !cfg.RateLimit.Enable {
		return nil
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit, log)
	runInBackground(lc, limiter.Run)
	return limiter
}

func newServer(
	cfg *config.Config,
	log *zap.Logger,
	recipes *handlers.RecipeHandlers,
	imports *handlers.ImportHandlers,
	planner *handlers.PlannerHandlers,
	meta *handlers.UserMetaHandlers,
	health *healthcheck.HealthCheck,
	metrics *monitoring.Metrics,
	validator *validation.Validator,
	limiter *middleware.RateLimiter,
	tracing *monitoring.TracingProvider,
) *apiserver.Server {
	opts := []apiserver.Option{apiserver.WithTracing(tracing.Enabled())}
	if limiter != nil {
		opts = append(opts, apiserver.WithRateLimiter(limiter))
	}
	return apiserver.NewServer(cfg, log, apiserver.Handlers{
		Recipes:  recipes,
		Imports:  imports,
		Planner:  planner,
		UserMeta: meta,
	}, health, metrics, validator, opts...)
}

// subscribeEventHandlers registers the recipe deletion cascade
func subscribeEventHandlers(bus outbound.MessageBus, planner *plannerapp.Service) error {
	return planner.Subscribe(context.Background(), bus)
}

// runInBackground runs fn from start until stop
func runInBackground(lc fx.Lifecycle, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go fn(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// RegisterLifecycleHooks starts the HTTP server, applies config reloads and
// shuts everything down in order
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	watcher *config.Watcher,
	log *logger.Logger,
	server *apiserver.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Tablewise server",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
				zap.String("state_backend", cfg.State.Backend),
			)

			watcher.OnChange(func(old, updated *config.Config) {
				if old.App.LogLevel != updated.App.LogLevel {
					log.SetLevel(updated.App.LogLevel)
					log.Info("Log level changed", zap.String("level", updated.App.LogLevel))
				}
			})
			watcher.OnError(func(err error) {
				log.Warn("Ignoring invalid configuration change", zap.Error(err))
			})
			watcher.Start()

			go func() {
				if err := server.Start(); err != nil {
					log.Error("HTTP server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Tablewise server")

			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}
			_ = log.Sync()
			return nil
		},
	})
}
