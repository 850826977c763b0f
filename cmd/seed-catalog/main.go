// seed-catalog creates the schema, loads the default car and tyre catalog into an
// empty database and, with -index, pushes every catalog record into Qdrant.
//
// Usage:
//
//	DB_DRIVER=sqlite go run ./cmd/seed-catalog
//	DB_USER=... DB_PASSWORD=... GEMINI_API_KEY=... go run ./cmd/seed-catalog -index
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/llm"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/retrieval"
	"github.com/sirupsen/logrus"
)

func main() {
	index := flag.Bool("index", false, "Also embed the catalog and upsert it into Qdrant")
	skipMigrate := flag.Bool("skip-migrate", false, "Do not run AutoMigrate first")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		os.Exit(1)
	}

	if !*skipMigrate {
		if err := models.MigrateTable(db); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	seeded, err := models.SeedDefaultCatalog(ctx, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	if seeded {
		fmt.Println("seeded default catalog")
	} else {
		fmt.Println("catalog already present; nothing seeded")
	}

	if !*index {
		return
	}

	client, err := llm.NewClient(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "llm client: %v\n", err)
		os.Exit(1)
	}
	records, err := models.NewInventoryReadService(db).CatalogIndexRecords(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
		os.Exit(1)
	}
	qdrant := retrieval.NewQdrantSearcher(retrieval.QdrantOptions{
		BaseURL: cfg.QdrantURL,
		APIKey:  cfg.QdrantAPIKey,
		Timeout: cfg.LLMTimeout(),
	}, client, logger)
	n, err := qdrant.IndexRecords(ctx, records, cfg.EmbeddingDimension)
	if err != nil {
		config.LogError(logger, "seed-catalog", "main", "index records", len(records), err)
		os.Exit(1)
	}
	logger.WithFields(logrus.Fields{
		"field":  "seed-catalog",
		"points": n,
	}).Info("catalog indexed")
}
