// Package server assembles the ingestor from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/JakeFAU/realtime-job-ingestor/internal/api"
	"github.com/JakeFAU/realtime-job-ingestor/internal/config"
	"github.com/JakeFAU/realtime-job-ingestor/internal/dedup"
	collyfetcher "github.com/JakeFAU/realtime-job-ingestor/internal/fetcher/colly"
	"github.com/JakeFAU/realtime-job-ingestor/internal/id/uuid"
	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/orchestrator"
	"github.com/JakeFAU/realtime-job-ingestor/internal/policy/ratelimit"
	"github.com/JakeFAU/realtime-job-ingestor/internal/progress"
	progresssinks "github.com/JakeFAU/realtime-job-ingestor/internal/progress/sinks"
	memorypublisher "github.com/JakeFAU/realtime-job-ingestor/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/realtime-job-ingestor/internal/publisher/pubsub"
	"github.com/JakeFAU/realtime-job-ingestor/internal/record"
	"github.com/JakeFAU/realtime-job-ingestor/internal/sources"
	gcssink "github.com/JakeFAU/realtime-job-ingestor/internal/storage/gcs"
	memorysink "github.com/JakeFAU/realtime-job-ingestor/internal/storage/memory"
	pgsink "github.com/JakeFAU/realtime-job-ingestor/internal/storage/postgres"
	redissink "github.com/JakeFAU/realtime-job-ingestor/internal/storage/redis"
	sheetssink "github.com/JakeFAU/realtime-job-ingestor/internal/storage/sheets"
	"github.com/JakeFAU/realtime-job-ingestor/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	registry     *prometheus.Registry
	sink         ingest.Sink
	publisher    ingest.Publisher
	closers      []func() error
	progressHub  *progress.Hub
	orchestrator *orchestrator.Orchestrator
	apiServer    *api.Server
}

// Build creates the application's dependencies. Sinks and publishers that
// dial remote services connect here, so Build fails fast on bad credentials.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	logger.Info("building application",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Strings("sources", cfg.EnabledSources()),
	)

	var err error
	if app.sink, err = setupSink(ctx, app); err != nil {
		return nil, err
	}
	if app.publisher, err = setupPublisher(ctx, app); err != nil {
		app.closeAll()
		return nil, err
	}
	emitter, err := setupProgress(ctx, app)
	if err != nil {
		app.closeAll()
		return nil, err
	}
	if app.orchestrator, err = setupOrchestrator(app, emitter); err != nil {
		app.closeAll()
		return nil, err
	}
	if cfg.Server.Enabled {
		app.apiServer, err = api.NewServer(app.orchestrator, api.Options{
			APIKey:   cfg.Server.APIKey,
			Registry: app.registry,
		}, logger.Named("api"))
		if err != nil {
			app.closeAll()
			return nil, fmt.Errorf("api init failed: %w", err)
		}
	}
	return app, nil
}

// Orchestrator exposes the orchestrator driving the workers.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	return a.orchestrator
}

// Run starts the workers and, when enabled, the operator HTTP server. It
// blocks until ctx is canceled or the process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if a.apiServer != nil {
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
			Handler:           a.apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http server error", zap.Error(err))
				stop()
			}
		}()
	}

	runErr := a.orchestrator.Run(ctx)
	if runErr != nil {
		a.logger.Error("orchestrator failed", zap.Error(runErr))
	}
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
	}
	if err := a.Close(shutdownCtx); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// RunOnce runs a single cycle for every enabled source and closes the app.
func (a *App) RunOnce(ctx context.Context) (map[string]ingest.CycleCounters, error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, runErr := a.orchestrator.RunOnce(ctx)
	for name, c := range results {
		a.logger.Info("cycle finished",
			zap.String("source", name),
			zap.Int("pages", c.Pages),
			zap.Int("stored", c.Stored),
			zap.Int("duplicates", c.Duplicates),
			zap.Int("skipped", c.Skipped),
			zap.Int("failed", c.Failed),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(shutdownCtx); err != nil {
		return results, errors.Join(runErr, err)
	}
	return results, runErr
}

// Close flushes progress events and releases the sink and publisher.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close progress hub: %w", err))
		}
		a.progressHub = nil
	}
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func setupSink(ctx context.Context, app *App) (ingest.Sink, error) {
	cfg := app.cfg.Storage
	var (
		sink ingest.Sink
		err  error
	)
	switch cfg.Backend {
	case config.BackendPostgres:
		sink, err = pgsink.NewSink(ctx, pgsink.Config{
			DSN:             cfg.Postgres.DSN,
			Table:           cfg.Postgres.Table,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.MaxConnLifetime,
			CreateTable:     cfg.Postgres.CreateTable,
		})
	case config.BackendGCS:
		var client *storage.Client
		client, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		sink, err = gcssink.New(client, gcssink.Config{Bucket: cfg.GCS.Bucket, Prefix: cfg.GCS.Prefix})
		if err != nil {
			_ = client.Close()
		}
	case config.BackendSheets:
		var opts []option.ClientOption
		if cfg.Sheets.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Sheets.CredentialsFile))
		}
		var svc *sheets.Service
		svc, err = sheets.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("sheets service init failed: %w", err)
		}
		sink, err = sheetssink.New(ctx, svc, sheetssink.Config{
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			Worksheet:     cfg.Sheets.Worksheet,
		})
	case config.BackendRedis:
		sink, err = redissink.Dial(ctx, redissink.Config{URL: cfg.Redis.URL, Prefix: cfg.Redis.Prefix})
	default:
		sink = memorysink.NewSink()
	}
	if err != nil {
		return nil, fmt.Errorf("%s sink init failed: %w", cfg.Backend, err)
	}
	app.closers = append(app.closers, sink.Close)
	app.logger.Info("storage sink ready", zap.String("backend", cfg.Backend))
	return sink, nil
}

func setupPublisher(ctx context.Context, app *App) (ingest.Publisher, error) {
	cfg := app.cfg.PubSub
	if cfg.Topic == "" {
		app.logger.Info("no notification topic configured, publishing disabled")
		return nil, nil
	}
	if cfg.ProjectID == "" {
		app.logger.Warn("no Pub/Sub project configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	pub, err := gcppublisher.Dial(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.closers = append(app.closers, pub.Close)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", cfg.ProjectID),
		zap.String("topic", cfg.Topic),
	)
	return pub, nil
}

func setupProgress(ctx context.Context, app *App) (progress.Emitter, error) {
	promSink, err := progresssinks.NewPrometheusSink(app.registry)
	if err != nil {
		return nil, fmt.Errorf("progress metrics init failed: %w", err)
	}
	sinkList := []progress.Sink{promSink}
	if app.cfg.Progress.LogEvents {
		sinkList = append(sinkList, progresssinks.NewLogSink(app.logger.Named("progress_log")))
	}
	hubCfg := progress.Config{
		BufferSize:     app.cfg.Progress.BufferSize,
		MaxBatchEvents: app.cfg.Progress.MaxBatchEvents,
		MaxBatchWait:   app.cfg.Progress.MaxBatchWait,
		BaseContext:    context.WithoutCancel(ctx),
		Logger:         app.logger.Named("progress_hub"),
	}
	hub := progress.NewHub(hubCfg, sinkList...)
	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "ingest_progress_events_dropped_total",
		Help: "Progress events discarded because the hub buffer was full.",
	}, func() float64 { return float64(hub.Dropped()) })
	if err := app.registry.Register(dropped); err != nil {
		_ = hub.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("progress drop metric init failed: %w", err)
	}
	app.progressHub = hub
	return hub, nil
}

func setupOrchestrator(app *App, emitter progress.Emitter) (*orchestrator.Orchestrator, error) {
	cfg := app.cfg
	fetcher, err := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
		ProxyURL:  cfg.HTTP.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("fetcher init failed: %w", err)
	}

	index := dedup.New()
	governor := ratelimit.NewGovernor(map[string]ratelimit.Budget{
		ratelimit.ClassRead:  {Limit: cfg.Budgets.Read.Limit, Window: cfg.Budgets.Read.Window},
		ratelimit.ClassWrite: {Limit: cfg.Budgets.Write.Limit, Window: cfg.Budgets.Write.Window},
		ratelimit.ClassTotal: {Limit: cfg.Budgets.Total.Limit, Window: cfg.Budgets.Total.Window},
	})
	pacer := ratelimit.NewPacer()
	builder := record.NewBuilder(uuid.New())

	var workers []*worker.Worker
	for _, key := range cfg.EnabledSources() {
		src := cfg.Sources[key]
		name, ok := sources.DisplayName(key)
		if !ok {
			name = key
		}
		factory := sources.Factory(key, fetcher, sources.Options{
			BaseURL:     src.BaseURL,
			UserAgent:   cfg.HTTP.UserAgent,
			PageSize:    src.PageSize,
			CountryCode: src.CountryCode,
		})
		workerCfg := worker.Config{
			Interval:    src.Interval,
			Timeout:     cfg.HTTP.Timeout,
			PageDelay:   src.PageDelay,
			DetailDelay: src.DetailDelay,
			MaxPages:    src.MaxPages,
			Topic:       cfg.PubSub.Topic,
		}
		app.logger.Info("worker configured",
			zap.String("source", name),
			zap.Duration("interval", workerCfg.Interval),
			zap.Int("max_pages", workerCfg.MaxPages),
			zap.Duration("page_delay", workerCfg.PageDelay),
			zap.Duration("detail_delay", workerCfg.DetailDelay),
		)
		workers = append(workers, worker.New(
			name,
			factory,
			index,
			governor,
			pacer,
			app.sink,
			builder,
			app.publisher,
			nil,
			emitter,
			workerCfg,
			app.logger,
		))
	}
	return orchestrator.New(app.sink, index, governor, workers, app.logger), nil
}
