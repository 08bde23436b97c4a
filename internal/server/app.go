// Package server initializes and runs the GophGuard server.
// It wires storage, notification delivery, rate limiting and metrics into
// the access service, serves it over gRPC and shuts everything down on
// SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/dmitrijs2005/gophguard/internal/server/config"
	"github.com/dmitrijs2005/gophguard/internal/server/metrics"
	"github.com/dmitrijs2005/gophguard/internal/server/notify"
	"github.com/dmitrijs2005/gophguard/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophguard/internal/server/services"
	"github.com/dmitrijs2005/gophguard/internal/timex"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/gophguard/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	notifier *notify.Dispatcher
	limiter  ratelimit.Limiter
	redis    *redis.Client
	metrics  *metrics.Metrics
	access   *services.AccessService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger, metrics: metrics.New()}

	if err := app.initRepositories(ctx); err != nil {
		return nil, err
	}

	clock := timex.SystemClock{}

	app.notifier, err = notify.New(ctx, c, clock, logger)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("notifier init error: %w", err)
	}

	app.initLimiter()

	app.access, err = services.NewAccessService(app.repos, c, services.Dependencies{
		Notifier: app.notifier,
		Clock:    clock,
		Logger:   logger,
		Metrics:  app.metrics,
	})
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("access service init error: %w", err)
	}

	return app, nil
}

func (app *App) initRepositories(ctx context.Context) error {
	if app.config.DatabaseDSN == config.MemoryDSN {
		app.logger.Warn(ctx, "using in-memory storage, data is lost on restart")
		app.repos = repomanager.NewMemoryRepositoryManager()
		return nil
	}

	m, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return fmt.Errorf("db migration error: %w", err)
	}
	app.repos = m
	return nil
}

func (app *App) initLimiter() {
	switch {
	case app.config.RateLimitPerMinute <= 0:
		return
	case app.config.RedisAddr != "":
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.config.RedisAddr,
			Password: app.config.RedisPassword,
		})
		app.limiter = ratelimit.NewRedisLimiter(app.redis, app.config.RateLimitPerMinute, time.Minute, app.logger)
	default:
		app.limiter = ratelimit.NewMemoryLimiter(app.config.RateLimitPerMinute)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.access, app.limiter, app.metrics)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())

	srv := &http.Server{
		Addr:              app.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", app.config.MetricsAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if app.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startMetricsServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

// close releases what NewApp opened. It tolerates a partially built App.
func (app *App) close(ctx context.Context) {
	if app.access != nil {
		app.access.Wait()
	}
	if app.notifier != nil {
		if err := app.notifier.Close(); err != nil {
			app.logger.Error(ctx, "notifier close error", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close error", "error", err)
		}
	}
	if app.repos != nil {
		if err := app.repos.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}
}
