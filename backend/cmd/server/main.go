package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"research-graph/backend/internal/api"
	"research-graph/backend/internal/knowledge"
	"research-graph/backend/internal/metrics"
	"research-graph/backend/internal/services"
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
	log.Info("Starting HTTP API server...", zap.String("store", cfg.StoreBackend))

	if err := run(cfg, log); err != nil {
		log.Error("Server error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// run serves the API until a signal arrives, closing the store before returning
func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sm := services.NewServiceManager(cfg, log)
	defer sm.Shutdown()

	router, err := newRouter(ctx, cfg, sm)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// Cycles run in another process; follow them when they are announced
	if err := sm.WatchCycles(); err != nil {
		log.Warn("Not following research cycles", zap.Error(err))
	}

	return api.Serve(ctx, ":"+cfg.Port, router)
}

// newRouter serves the configured store read-only. There is no research
// loop in this process, so /api/status reports it as unavailable.
func newRouter(ctx context.Context, cfg *config.Config, sm *services.ServiceManager) (*gin.Engine, error) {
	store, err := sm.OpenStore(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(api.Deps{
		Guard:   knowledge.NewGuard(store),
		Metrics: metrics.NewCollector("research_api"),
		Logger:  logger.Named("api"),
	}), nil
}
