package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/stickynet/sticky-net/cmd/mainconfig"
	"github.com/stickynet/sticky-net/internal/api"
	appconfig "github.com/stickynet/sticky-net/internal/config"
	"github.com/stickynet/sticky-net/internal/detection"
	"github.com/stickynet/sticky-net/internal/engagement"
	"github.com/stickynet/sticky-net/internal/engine"
	"github.com/stickynet/sticky-net/internal/intel"
	"github.com/stickynet/sticky-net/internal/observability/metrics"
	"github.com/stickynet/sticky-net/internal/policy"
	"github.com/stickynet/sticky-net/internal/report"
	"github.com/stickynet/sticky-net/internal/session"
	"github.com/stickynet/sticky-net/pkg/logging"
)

// Confidence boost applied per matched signal category when fusing the
// external classification with local evidence.
const (
	categoryBoost    = 0.05
	maxCategoryBoost = 0.15
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sticky-net API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Model cascade: Bedrock first, Gemini as fallback. Canned replies are the
	// engine's last tier, so at least one real backend must be configured.
	var variants []engagement.Variant
	if cfg.BedrockModelID != "" {
		bedrockClient := engagement.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
		variants = append(variants, engagement.Variant{
			Name:    "bedrock",
			Model:   cfg.BedrockModelID,
			Client:  bedrockClient,
			Timeout: cfg.EngagementTimeout,
		})
	}
	if cfg.GeminiAPIKey != "" {
		geminiClient, gerr := engagement.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if gerr != nil {
			logger.Error("failed to create gemini client", "error", gerr)
			os.Exit(1)
		}
		variants = append(variants, engagement.Variant{
			Name:    "gemini",
			Model:   cfg.GeminiModelID,
			Client:  geminiClient,
			Timeout: cfg.EngagementTimeout,
		})
	}
	if len(variants) == 0 {
		logger.Error("no LLM backend configured, set BEDROCK_MODEL_ID or GEMINI_API_KEY")
		os.Exit(1)
	}
	cascade := engagement.NewCascade(variants, logger)

	classifier := detection.NewLLMClassifier(cascade, logger)
	fusion := detection.NewFusion(detection.FusionConfig{
		FastPathThreshold:  cfg.FastPathThreshold,
		FallbackConfidence: cfg.FallbackConfidence,
		EngageThreshold:    cfg.CautiousThreshold,
		CategoryBoost:      categoryBoost,
		MaxBoost:           maxCategoryBoost,
		ClassifierTimeout:  cfg.ClassifierTimeout,
	}, classifier, logger)

	requiredKinds := make([]intel.Kind, 0, len(cfg.RequiredKinds))
	for _, k := range cfg.RequiredKinds {
		requiredKinds = append(requiredKinds, intel.Kind(k))
	}
	pol := policy.New(policy.Config{
		CautiousThreshold:   cfg.CautiousThreshold,
		AggressiveThreshold: cfg.AggressiveThreshold,
		MaxTurns:            cfg.MaxTurns,
		MaxDuration:         cfg.MaxDuration,
		StaleTurnLimit:      cfg.StaleTurnLimit,
		ExitPriority:        cfg.ExitPriority,
		RequiredKinds:       requiredKinds,
	})

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	snapshots := session.NewRedisSnapshots(redisClient, nil, cfg.SessionTTL)
	sessions := session.NewStore(snapshots, logger)

	reg := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(reg)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var publisher *report.Publisher
	var dispatchWorker *report.Worker
	if cfg.UseMemoryQueue || cfg.ReportQueueURL == "" {
		queue := report.NewMemoryQueue(128)
		publisher = report.NewPublisher(queue, logger)
		dispatchWorker = report.NewWorker(queue, buildSink(ctx, cfg, logger), logger,
			report.WithWorkerCount(cfg.WorkerCount))
	} else {
		queue := report.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ReportQueueURL, logger)
		publisher = report.NewPublisher(queue, logger)
		dispatchWorker = report.NewWorker(queue, buildSink(ctx, cfg, logger), logger,
			report.WithWorkerCount(cfg.WorkerCount))
	}
	dispatchWorker.Start(workerCtx)

	eng := engine.New(
		engine.Config{
			EngagementTimeout: cfg.EngagementTimeout,
			RequiredKinds:     requiredKinds,
		},
		sessions,
		fusion,
		pol,
		intel.NewExtractor(logger),
		engagement.NewAgent(cascade, logger),
		publisher,
		engineMetrics,
		logger,
	)

	router := api.NewRouter(api.RouterConfig{
		Handler:        api.NewHandler(eng, logger),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	stopWorkers()
	dispatchWorker.Wait()

	logger.Info("server stopped")
}

// buildSink picks where dispatched reports land: Postgres when configured,
// otherwise the log.
func buildSink(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) report.Sink {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, final reports will only be logged")
		return logSink{logger: logger.Component("report_sink")}
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	store := report.NewPostgresStore(db)
	if err := store.Init(ctx); err != nil {
		logger.Error("failed to initialize report store", "error", err)
		os.Exit(1)
	}
	return store
}

type logSink struct {
	logger *logging.Logger
}

func (s logSink) Insert(_ context.Context, r report.FinalReport) error {
	entityCount := 0
	if r.ExtractedEntities != nil {
		entityCount = r.ExtractedEntities.Count()
	}
	s.logger.Info("final report",
		"conversation_id", r.ConversationID,
		"threat_type", r.ThreatType,
		"confidence", r.Confidence,
		"turn_count", r.TurnCount,
		"exit_reason", r.ExitReason,
		"entity_count", entityCount,
	)
	return nil
}
