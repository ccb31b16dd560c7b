package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"stableguard/internal/alerting"
	"stableguard/internal/asset"
	"stableguard/internal/collector"
	"stableguard/internal/config"
	"stableguard/internal/execution"
	"stableguard/internal/feature"
	"stableguard/internal/metrics"
	"stableguard/internal/model"
	"stableguard/internal/risk"
	"stableguard/internal/scheduler"
	"stableguard/internal/service"
	"stableguard/internal/storage"
	"stableguard/internal/strategy"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newRegistry() *asset.Registry {
	return asset.DefaultRegistry()
}

func (a *App) newCollector(registry *asset.Registry) *collector.Collector {
	ds := a.Config.Datasource

	prices := collector.NewCoinGecko(collector.CoinGeckoOptions{
		BaseURL:        ds.PriceAPIBaseURL,
		Timeout:        ds.PriceAPITimeout,
		RequestsPerMin: ds.PriceAPIRateLimit,
		UserAgent:      ds.UserAgent,
	}, a.Logger)

	var chain collector.ChainSource = collector.NopChain{}
	if ds.ChainRPCURL != "" {
		chain = collector.NewChain(collector.ChainOptions{
			RPCURL:  ds.ChainRPCURL,
			ChainID: asset.ChainEthereum,
			Timeout: ds.ChainRPCTimeout,
		}, registry, a.Logger)
	}

	return collector.New(registry, prices, chain, collector.Options{
		CacheTTL: ds.CacheTTL,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// openStore returns the configured Postgres store, or nil when no DSN is
// set. Callers fall back to an in-memory store in that case.
func (a *App) openStore(ctx context.Context) (*storage.Postgres, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewPostgres(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newGuard wires the five pipeline stages into a guard service.
func (a *App) newGuard(ctx context.Context) (*service.Guard, *execution.Executor, func(), error) {
	pg, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	var kv storage.KV
	var samples storage.SampleStore
	if pg != nil {
		kv = pg
		samples = pg
	} else {
		a.Logger.Warn().Msg("database.dsn not configured; state is kept in memory only")
		kv = storage.NewMemory()
	}

	registry := a.newRegistry()
	executor := execution.NewExecutor(execution.Options{
		Registry: registry,
		Store:    kv,
	}, a.Logger)

	guard := service.NewGuard(service.Options{
		Registry:      registry,
		Collector:     a.newCollector(registry),
		Engine:        feature.NewEngine(registry, feature.Options{}, a.Logger),
		Analyzer:      risk.NewAnalyzer(a.Logger),
		Generator:     strategy.NewGenerator(a.Logger),
		Executor:      executor,
		Store:         kv,
		Samples:       samples,
		Notifier:      a.newNotifier(),
		AlertCooldown: a.Config.Alerting.Cooldown,
		Guard:         a.Config.Guard,
	}, a.Logger)

	cleanup := func() {
		if closeStore != nil {
			closeStore()
		}
	}
	return guard, executor, cleanup, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	guard, _, cleanup, err := a.newGuard(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := guard.LoadConfig(ctx); err != nil {
		return err
	}

	if a.Config.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, a.Config.Metrics.ListenAddr, a.Logger); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("metrics listener terminated")
			}
		}()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:   guard.Config().UpdateInterval(),
		RunAtStart: true,
	}, a.Logger)

	a.Logger.Info().
		Dur("interval", guard.Config().UpdateInterval()).
		Strs("assets", guard.Config().MonitoredAssets).
		Msg("starting risk monitoring service")

	err = sched.Run(ctx, func(tickCtx context.Context, _ time.Time) error {
		_, tickErr := guard.PerformAssessment(tickCtx, model.TriggerScheduled)
		return tickErr
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("risk monitoring service stopped")
	return nil
}

// EvaluateOptions hold the pending-transaction parameters for evaluate.
type EvaluateOptions struct {
	From    string
	To      string
	Value   string
	Data    string
	ChainID int64
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Asset string
}

// RecordsOptions configure the records command.
type RecordsOptions struct {
	Limit  int
	Events bool
}

// ExportOptions hold parameters for exporting historical samples.
type ExportOptions struct {
	Asset     string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
