package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"vitalsight/internal/analytics"
	"vitalsight/internal/config"
	"vitalsight/internal/db"
	"vitalsight/internal/etl"
	"vitalsight/internal/http/handlers"
	"vitalsight/internal/scheduler"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}

	runner := etl.NewRunner(sqlDB, logger, cfg.ArtifactDir)
	aggregator := analytics.NewAggregator(sqlDB, logger)
	classifier := analytics.NewClassifier(sqlDB, logger, cfg.TrendWindowHours, cfg.TrendMinPoints)

	scheduler.StartETLWorker(runner, cfg, logger)
	scheduler.StartAnalyticsWorker(aggregator, classifier, cfg, logger)

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	// Stage triggers for the external scheduler.
	r.POST("/v1/etl/run", handlers.RunETL(runner, cfg, logger))
	r.POST("/v1/readings", handlers.IngestReadings(runner, logger))
	r.POST("/v1/aggregate/run", handlers.RunAggregation(aggregator, logger))
	r.POST("/v1/trends/run", handlers.RunTrends(classifier, logger))

	// Read surface over the persisted tables.
	r.GET("/v1/patients", handlers.ListPatients(sqlDB))
	r.GET("/v1/patients/{id}/readings", handlers.PatientReadings(sqlDB))
	r.GET("/v1/summaries", handlers.ListSummaries(sqlDB))
	r.GET("/v1/trends", handlers.ListTrends(sqlDB))
	r.GET("/v1/rejected", handlers.ListRejected(sqlDB))

	r.GET("/v1/stats", handlers.PipelineStats())
	r.GET("/metrics", handlers.PrometheusMetrics())

	handler := handlers.RequestLogger(logger, r.Handler)

	logger.Info("vitalsight listening", zap.String("addr", cfg.ListenAddr))
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
