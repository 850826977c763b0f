package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/metrics"
	"github.com/matraxtyres/tyre_assistant/middlewares"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/workflow"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	redisConnectTimeout = 30 * time.Second
	shutdownTimeout     = 30 * time.Second
)

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	corsConfig := cors.DefaultConfig()
	// In production only the configured origins are allowed; none when unset.
	if cfg.IsProduction() {
		corsConfig.AllowOrigins = cfg.CorsAllowedOrigins
		if corsConfig.AllowOrigins == nil {
			corsConfig.AllowOrigins = []string{}
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", middlewares.CorrelationIdHeader, idempotencyKeyHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationIdHeader)
	return corsConfig
}

// newRouter registers every route. rdb may be nil, which disables rate limiting.
func newRouter(app *App, cfg *config.Config, rdb *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationIdMiddleware())
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(metrics.PrometheusMiddleware())
	if cfg.RateLimitEnabled && rdb != nil {
		r.Use(NewRateLimiter(rdb, cfg.RateLimitMaxRequests, cfg.RateLimitWindow(), app.Logger).RateLimitMiddleware)
	}
	r.Use(customErrorLogger(app.Logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/chat", chatHandler(app))
	api.GET("/chat/sessions", listChatSessionsHandler(app))
	api.GET("/chat/sessions/:id/messages", listChatMessagesHandler(app))

	api.GET("/orders", listOrdersHandler(app))
	api.GET("/orders/:id", getOrderHandler(app))
	api.POST("/orders", createOrderHandler(app))

	api.GET("/inventory/size", tyresBySizeHandler(app))
	api.GET("/inventory/tyres/:id", getTyreHandler(app))
	api.GET("/inventory/low-stock", lowStockHandler(app))
	api.GET("/inventory/low-stock/export", lowStockExportHandler(app))

	api.GET("/dashboard/stats", dashboardStatsHandler(app))

	ops := r.Group("/internal/ops")
	ops.PUT("/orders/:id/status", updateOrderStatusHandler(app))
	ops.GET("/orders/:id/events", orderEventsHandler(app))
	ops.POST("/outbox/:id/replay", outboxReplayHandler(app))

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithFields(logrus.Fields{"field": "config"}).Fatal(err.Error())
	}
	logger := config.NewLogger(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cloud Run sends SIGTERM on revision shutdown.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Listen before dependencies are up; everything but /healthz is 503 until ready.
	var engine atomic.Pointer[gin.Engine]
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			ready := engine.Load()
			if ready == nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			ready.ServeHTTP(w, r)
		}),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	db, err := config.OpenDatabaseWithRetry(sigCtx, cfg, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Fatal(err.Error())
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// AutoMigrate can hold table locks; production runs it as a separate job.
	if !cfg.SkipMigrations {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}
	if cfg.DBDriver == "sqlite" {
		if seeded, err := models.SeedDefaultCatalog(sigCtx, db); err != nil {
			config.LogError(logger, "server.go", "main", "seed catalog", nil, err)
		} else if seeded {
			logger.WithFields(logrus.Fields{"field": "seed"}).Info("seeded default catalog")
		}
	}

	// Redis backs rate limiting and turn locks, both optional.
	redisCtx, cancelRedis := context.WithTimeout(sigCtx, redisConnectTimeout)
	rdb, locks, err := config.ConnectRedisWithRetry(redisCtx, cfg, logger)
	cancelRedis()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "redis"}).Warn("redis not ready; running without rate limiting and turn locks: " + err.Error())
	} else {
		defer rdb.Close()
	}

	app, err := NewApp(sigCtx, cfg, db, locks, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "app"}).Fatal(err.Error())
	}

	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if cfg.OutboxEnabled {
		publisher, err := config.NewPubSubPublisher(sigCtx, cfg, logger)
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "pubsub"}).Fatal(err.Error())
		}
		defer publisher.Close()
		go workflow.NewOutboxDispatcher(db, publisher, logger).Run(dispatcherCtx)
	}

	engine.Store(newRouter(app, cfg, rdb))
	logger.WithFields(logrus.Fields{
		"field": "http",
		"port":  cfg.Port,
	}).Info("tyre assistant ready")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers before draining requests.
	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
