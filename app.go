package main

import (
	"context"
	"fmt"

	"github.com/bsm/redislock"
	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/dialog"
	"github.com/matraxtyres/tyre_assistant/llm"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/retrieval"
	"github.com/matraxtyres/tyre_assistant/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	retrieverQdrant = "qdrant"
	retrieverMemory = "memory"
)

// TurnHandler answers one chat message given the session history.
type TurnHandler interface {
	HandleTurn(ctx context.Context, message string, history models.History) (dialog.Reply, error)
}

// App carries the dependencies the HTTP handlers share.
type App struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Inventory *models.InventoryReadService
	Orders    *workflow.OrderWorkflow
	Dialog    TurnHandler
	TurnLocks *workflow.TurnLocker
}

// NewApp wires the dialog pipeline: LLM client, retriever, fusion, composer and router.
func NewApp(ctx context.Context, cfg *config.Config, db *gorm.DB, locks *redislock.Client, logger *logrus.Logger) (*App, error) {
	client, err := llm.NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	searcher, err := newSearcher(ctx, cfg, db, client, logger)
	if err != nil {
		return nil, err
	}

	inventory := models.NewInventoryReadService(db)
	orders := workflow.NewOrderWorkflow(db, logger)
	fusion := retrieval.NewFusion(searcher, models.DefaultCollections, logger)
	router := dialog.NewRouter(
		llm.NewClassifier(client),
		fusion,
		inventory,
		orders,
		dialog.NewComposer(client, fusion.Collections()),
		logger,
		dialog.RouterOptions{RetrievalLimit: cfg.RetrievalLimit},
	)

	return &App{
		DB:        db,
		Logger:    logger,
		Inventory: inventory,
		Orders:    orders,
		Dialog:    router,
		TurnLocks: workflow.NewTurnLocker(locks, logger),
	}, nil
}

func newSearcher(ctx context.Context, cfg *config.Config, db *gorm.DB, embedder llm.Embedder, logger *logrus.Logger) (retrieval.Searcher, error) {
	switch cfg.Retriever {
	case retrieverQdrant, "":
		return retrieval.NewQdrantSearcher(retrieval.QdrantOptions{
			BaseURL: cfg.QdrantURL,
			APIKey:  cfg.QdrantAPIKey,
			Timeout: cfg.LLMTimeout(),
		}, embedder, logger), nil
	case retrieverMemory:
		records, err := models.NewInventoryReadService(db).CatalogIndexRecords(ctx)
		if err != nil {
			return nil, fmt.Errorf("load catalog for memory index: %w", err)
		}
		searcher := retrieval.NewMemorySearcher(retrieval.KeywordEmbedder{})
		n, err := searcher.IndexRecords(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("index catalog: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"field":  "retrieval",
			"points": n,
		}).Info("in-memory catalog index ready")
		return searcher, nil
	default:
		return nil, fmt.Errorf("unknown RETRIEVER %q", cfg.Retriever)
	}
}
