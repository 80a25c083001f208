package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/healthtwin/platform/pkg/api"
	"github.com/healthtwin/platform/pkg/audit"
	"github.com/healthtwin/platform/pkg/common/config"
	"github.com/healthtwin/platform/pkg/common/database"
	"github.com/healthtwin/platform/pkg/common/kafka"
	"github.com/healthtwin/platform/pkg/common/llm"
	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/dlp"
	"github.com/healthtwin/platform/pkg/gateway/auth"
	"github.com/healthtwin/platform/pkg/gateway/httpclient"
	"github.com/healthtwin/platform/pkg/ocr"
	"github.com/healthtwin/platform/pkg/recommend"
	"github.com/healthtwin/platform/pkg/risk"
	"github.com/healthtwin/platform/pkg/upload"
)

const serviceName = "healthtwin-api"

func main() {
	logger.Init()
	cfg := config.Load()
	httpc := httpclient.New(cfg.OutboundTimeout)

	store, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to prepare upload directory")
	}
	guard := upload.NewGuard("file", cfg.AllowedExtensions)

	events, closeEvents := newPublisher(cfg)
	defer closeEvents()

	ocrService := ocr.NewService(store, newRecognizer(cfg, httpc), ocr.NewRuleExtractor(), events)
	riskService := risk.NewService(newScorer(cfg, httpc), events)
	recommendService := recommend.NewService(newGenerator(cfg, httpc), events)

	opts := api.Options{
		MaxRequestBody: cfg.MaxRequestBody,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	if cfg.OIDCIssuer != "" {
		oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCTokenCacheTTL, httpc)
		if err != nil {
			logger.Log.WithError(err).Warn("OIDC authentication not configured, running without auth")
		} else {
			opts.Auth = oidcAuth
		}
	}

	router := api.NewRouter(opts,
		ocr.NewHTTPHandler(ocrService, guard),
		risk.NewHTTPHandler(riskService),
		recommend.NewHTTPHandler(recommendService),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":        cfg.ServerHost,
			"port":        cfg.ServerPort,
			"ocr_engine":  cfg.OCREngine,
			"risk_scorer": cfg.RiskScorer,
			"recommender": cfg.Recommender,
		}).Info("HealthTwin API started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down HealthTwin API...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("HealthTwin API stopped")
}

func newRecognizer(cfg *config.Config, httpc *http.Client) ocr.TextRecognizer {
	switch cfg.OCREngine {
	case "remote":
		return ocr.NewRemoteRecognizer(cfg.OCRServiceURL, httpc)
	case "gemini":
		return ocr.NewGeminiRecognizer(cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		logger.Log.WithField("ocr_engine", cfg.OCREngine).Warn("Unknown OCR engine, prescriptions will fail")
		return nil
	}
}

func newScorer(cfg *config.Config, httpc *http.Client) risk.Scorer {
	if cfg.RiskScorer == "remote" {
		return risk.NewRemoteScorer(cfg.RiskServingURL, httpc)
	}
	return risk.NewArtifactScorer(cfg.RiskModelDir, cfg.RiskModelName)
}

func newGenerator(cfg *config.Config, httpc *http.Client) recommend.Generator {
	var gen recommend.Generator
	switch cfg.Recommender {
	case "openai":
		gen = recommend.NewChatGenerator(llm.NewChatClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, httpc))
	case "gemini":
		gen = recommend.NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		gen = recommend.NewRulesGenerator()
	}

	if !cfg.RedisEnabled {
		return gen
	}
	client, err := database.NewRedis(context.Background(), cfg)
	if err != nil {
		logger.Log.WithError(err).Warn("Recommendation cache disabled")
		return gen
	}
	return recommend.NewCachedGenerator(gen, recommend.NewRedisCache(client), cfg.RecommendationCacheTTL)
}

// newPublisher returns a Kafka backed audit publisher when brokers are
// configured, and a no-op publisher otherwise.
func newPublisher(cfg *config.Config) (audit.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return audit.Nop{}, func() {}
	}

	rules, err := dlp.LoadRules(cfg.DLPRulesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to load DLP rules, using defaults")
		rules = dlp.DefaultRules()
	}
	detector, err := dlp.NewDetector(rules)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to compile DLP rules")
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
	publisher := audit.NewBusPublisher(producer, serviceName, detector)
	closeFn := func() {
		publisher.Close()
		if err := producer.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close Kafka producer")
		}
	}
	return publisher, closeFn
}
