package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"research-graph/backend/internal/agent"
	"research-graph/backend/internal/api"
	"research-graph/backend/internal/constants"
	"research-graph/backend/internal/knowledge"
	"research-graph/backend/internal/metrics"
	"research-graph/backend/internal/report"
	"research-graph/backend/internal/services"
	"research-graph/backend/internal/tools"
	"research-graph/backend/internal/validation"
	"research-graph/backend/pkg/config"
	"research-graph/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	log := logger.Get()
	log.Info("Starting research loop...",
		zap.String("seed_topic", cfg.SeedTopic),
		zap.String("store", cfg.StoreBackend),
	)

	if err := run(cfg, log); err != nil {
		log.Error("Research loop exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	log.Info("Research loop exited")
	logger.Sync()
}

// run owns every resource of the process and releases it before returning
func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Spans get real IDs so trace context reaches NATS consumers
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() { _ = tp.Shutdown(context.Background()) }()

	sm := services.NewServiceManager(cfg, log)
	defer sm.Shutdown()

	app, err := newApp(ctx, cfg, sm)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	apiAddr := ""
	if cfg.APIEnabled {
		apiAddr = ":" + cfg.Port
	}
	return runLoop(ctx, app, apiAddr, log)
}

// runLoop runs the research loop until ctx is cancelled, serving the API on
// apiAddr alongside it when set. An API failure is logged and leaves the
// loop running.
func runLoop(ctx context.Context, a *app, apiAddr string, log *zap.Logger) error {
	var g errgroup.Group
	g.Go(func() error {
		return a.orchestrator.Run(ctx)
	})
	if apiAddr != "" {
		g.Go(func() error {
			if err := api.Serve(ctx, apiAddr, a.router); err != nil {
				log.Error("API server stopped, research loop continues", zap.String("addr", apiAddr), zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type app struct {
	orchestrator *agent.Orchestrator
	router       *gin.Engine
	metrics      *metrics.Collector
}

// newApp wires the research loop and its read-only API against cfg
func newApp(ctx context.Context, cfg *config.Config, sm *services.ServiceManager) (*app, error) {
	store, err := sm.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	guard := knowledge.NewGuard(store)
	m := metrics.NewCollector("research")

	web := tools.NewWebClient(tools.WebConfig{
		CallTimeout: cfg.CallTimeout,
		Rate:        cfg.SearchRate,
		Burst:       cfg.SearchBurst,
		MaxResults:  constants.MaxSearchResults,
	})

	orch := agent.NewOrchestrator(agent.Dependencies{
		Guard:     guard,
		Search:    web.Search,
		Fetch:     web.Fetch,
		Validator: validation.NewValidator(cfg.ValidationConcurrency),
		Writer:    report.NewWriter(cfg.OutputDir),
		Describer: sm.Describer(),
		Notifiers: sm.Notifiers(),
		Metrics:   m,
	}, agent.Options{
		SeedTopic:       cfg.SeedTopic,
		CycleDelay:      cfg.CycleDelay,
		RetryDelay:      cfg.RetryDelay,
		MaxTopicRetries: cfg.MaxTopicRetries,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Guard:   guard,
		Status:  orch,
		Metrics: m,
		Logger:  logger.Named("api"),
	})

	return &app{orchestrator: orch, router: router, metrics: m}, nil
}
