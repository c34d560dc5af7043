package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/tally/internal/api"
	"github.com/tutu-network/tally/internal/app/engagement"
	"github.com/tutu-network/tally/internal/app/ledger"
	"github.com/tutu-network/tally/internal/domain"
	"github.com/tutu-network/tally/internal/health"
	"github.com/tutu-network/tally/internal/infra/logging"
	"github.com/tutu-network/tally/internal/infra/postgres"
	"github.com/tutu-network/tally/internal/infra/sqlite"
)

// Daemon is the tally runtime. It wires together all services.
type Daemon struct {
	Config Config
	Log    *zap.Logger
	Store  domain.Store
	Engine *engagement.Engine
	Ledger *ledger.Service
	Health *health.Checker
	Server *api.Server
	cancel context.CancelFunc
}

// New loads the configuration and creates a Daemon.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, dataDir, err := openStore(cfg.Storage)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}

	eng := engagement.New(store, engagement.Options{
		Logger:          log,
		BonusCategories: cfg.Scoring.BonusCategories,
		Policy:          cfg.Notifications,
	})
	led := ledger.NewService(store)
	hc := health.NewChecker(store, led, dataDir, log)

	srv := api.NewServer(eng, led, hc, log)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	if cfg.API.RateLimit > 0 {
		srv.SetRateLimit(cfg.API.RateLimit, cfg.API.RateBurst)
	}
	srv.SetCORSOrigins(cfg.API.CORS)

	log.Debug("daemon initialized",
		zap.String("driver", cfg.Storage.Driver),
		zap.Strings("bonus_categories", cfg.Scoring.BonusCategories),
	)

	return &Daemon{
		Config: cfg,
		Log:    log,
		Store:  store,
		Engine: eng,
		Ledger: led,
		Health: hc,
		Server: srv,
	}, nil
}

// openStore opens the configured store. dataDir is empty for postgres.
func openStore(cfg StorageConfig) (domain.Store, string, error) {
	switch cfg.Driver {
	case DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		return store, "", err
	default:
		db, err := sqlite.Open(cfg.Dir)
		return db, cfg.Dir, err
	}
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		signal.Stop(sigCh)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			d.Log.Warn("http shutdown", zap.Error(err))
		}
		cancel()
	}()

	d.Log.Info("serving", zap.String("addr", addr), zap.Bool("metrics", d.Config.Telemetry.Prometheus))
	fmt.Printf("tally serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Log.Warn("close store", zap.Error(err))
		}
	}
	if d.Log != nil {
		_ = d.Log.Sync()
	}
}
