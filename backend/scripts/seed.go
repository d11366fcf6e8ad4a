package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"research-graph/backend/internal/knowledge"
	"research-graph/backend/internal/services"
	"research-graph/backend/pkg/config"
	"research-graph/backend/pkg/logger"
)

type seedOptions struct {
	importPath  string
	reset       bool
	skipConfirm bool
}

func main() {
	var opts seedOptions
	flag.StringVar(&opts.importPath, "import", "", "Graph JSON file to merge into the configured store")
	flag.BoolVar(&opts.reset, "reset", false, "Delete every concept and relationship before importing")
	flag.BoolVar(&opts.skipConfirm, "y", false, "Skip confirmation prompt")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	log := logger.Get()
	log.Info("Starting knowledge store seeding...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load configuration", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	if opts.reset && !opts.skipConfirm {
		log.Warn("⚠️  WARNING: This will DELETE ALL DATA from the knowledge store!", zap.String("store", cfg.StoreBackend))
		log.Warn("This action cannot be undone.")
		// Use fmt.Print for user input prompt (needs to go to stdout)
		fmt.Print("Are you sure you want to continue? (yes/no): ")
		var response string
		fmt.Scanln(&response)
		if response != "yes" && response != "y" {
			log.Info("Aborted.")
			logger.Sync()
			return
		}
	}

	// seed closes the store before main exits
	if err := seed(context.Background(), cfg, log, opts); err != nil {
		log.Error("Seeding failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	log.Info("✅ Seeding completed successfully!")
	logger.Sync()
}

func seed(ctx context.Context, cfg *config.Config, log *zap.Logger, opts seedOptions) error {
	sm := services.NewServiceManager(cfg, log)
	defer sm.Shutdown()

	// Opening the store also creates the Neo4j constraints
	log.Info("Step 1: Opening store and applying schema...")
	store, err := sm.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	if opts.reset {
		log.Info("Step 2: Deleting all data...")
		resetter, ok := store.(knowledge.Resetter)
		if !ok {
			return fmt.Errorf("store %s cannot be reset", store.Name())
		}
		if err := resetter.Reset(ctx); err != nil {
			return fmt.Errorf("reset store: %w", err)
		}
		log.Info("All data deleted successfully")
	}

	if opts.importPath != "" {
		log.Info("Step 3: Importing graph", zap.String("path", opts.importPath))
		added, err := importGraph(ctx, knowledge.NewGuard(store), opts.importPath)
		if err != nil {
			return fmt.Errorf("import graph: %w", err)
		}
		log.Info("Graph imported",
			zap.Int("concepts_added", added.nodes),
			zap.Int("relationships_added", added.edges),
			zap.Int("relationships_skipped", added.skipped),
		)
	}
	return nil
}

type importCounts struct {
	nodes   int
	edges   int
	skipped int
}

// importGraph merges the graph file at path into the store behind guard.
// Known concepts and relationship pairs are left as they are. Only validated
// relationships between known concepts are imported; the rest are counted as
// skipped.
func importGraph(ctx context.Context, guard *knowledge.Guard, path string) (importCounts, error) {
	if _, err := os.Stat(path); err != nil {
		return importCounts{}, fmt.Errorf("graph file: %w", err)
	}
	source, err := knowledge.NewFileStore(path).Load(ctx)
	if err != nil {
		return importCounts{}, err
	}

	var counts importCounts
	_, err = guard.Update(ctx, func(g *knowledge.Graph) error {
		counts.nodes = g.AddConcepts(source.Nodes)

		ids := g.NodeIDs()
		edges := make([]knowledge.Relationship, 0, len(source.Edges))
		for _, e := range source.Edges {
			_, hasSource := ids[e.Source]
			_, hasTarget := ids[e.Target]
			if !e.Validated || !hasSource || !hasTarget {
				counts.skipped++
				continue
			}
			edges = append(edges, e)
		}
		counts.edges = g.AddRelationships(edges)
		return nil
	})
	return counts, err
}
