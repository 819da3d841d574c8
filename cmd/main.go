package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/okian/coach/internal/adapters/backend"
	"github.com/okian/coach/internal/adapters/http/api"
	"github.com/okian/coach/internal/adapters/http/site"
	"github.com/okian/coach/internal/adapters/http/swagger"
	service "github.com/okian/coach/internal/app"
	"github.com/okian/coach/internal/config"
	"github.com/okian/coach/internal/render"
	"github.com/okian/coach/pkg/logger"
	"github.com/okian/coach/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	writeTimeoutSlack      = 10 * time.Second
	minShutdownTimeout     = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.Stderr.WriteString("failed to read .env: " + err.Error() + "\n")
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "coach web stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run starts the service and the HTTP server and blocks until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	metrics.Configure(metricsOptions(cfg)...)

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	if cfg.StartupProbe {
		go func() { _, _ = svc.Probe(ctx) }()
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	mux, err := newMux(ctx, svc, log)
	if err != nil {
		return err
	}

	srv := newHTTPServer(cfg, mux)
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("backend", cfg.BackendURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

func newService(cfg *config.Config, log logger.Logger) *service.Service {
	client := backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.RequestTimeout()),
		backend.WithHealthTimeout(cfg.HealthTimeout()),
		backend.WithLogger(log),
	)
	return service.New(
		service.WithAnalyzer(client),
		service.WithMaxInFlight(cfg.MaxInFlight),
		service.WithSessionTTL(cfg.SessionTTL()),
		service.WithLogger(log),
	)
}

func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithInstance(cfg.MetricsInstance),
		metrics.WithEnabled(cfg.MetricsEnabled),
	}
}

func newMux(ctx context.Context, svc *service.Service, log logger.Logger) (*http.ServeMux, error) {
	renderer, err := render.New()
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	api.NewServer(svc, renderer, log).Register(mux)
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	return mux, nil
}

// newHTTPServer leaves room in WriteTimeout for a full analysis round trip.
func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.RequestTimeout() + writeTimeoutSlack,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// shutdownTimeout lets a request that is waiting on an analysis finish
// before the service below it is stopped.
func shutdownTimeout(cfg *config.Config) time.Duration {
	return max(cfg.RequestTimeout()+writeTimeoutSlack, minShutdownTimeout)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes the gauges that mirror service state.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.GetStats(ctx)
	if n, ok := stats["inFlight"].(int64); ok {
		metrics.UpdateInFlight(n)
	}
	if n, ok := stats["sessions"].(int); ok {
		metrics.UpdateSessionCount(n)
	}
}
