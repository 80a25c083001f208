package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/healthtwin/platform/pkg/audit"
	"github.com/healthtwin/platform/pkg/common/config"
	"github.com/healthtwin/platform/pkg/common/database"
	"github.com/healthtwin/platform/pkg/common/kafka"
	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/common/models"
	"github.com/healthtwin/platform/pkg/common/respond"
)

const auditorPort = "8091"

type AuditorService struct {
	repo     *audit.Repository
	consumer *kafka.Consumer
}

func main() {
	logger.Init()
	cfg := config.Load()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Log.Fatal("KAFKA_BROKERS is required")
	}

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	service := &AuditorService{repo: audit.NewRepository(db)}
	if err := service.repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate audit schema")
	}

	service.consumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaAuditTopic, cfg.KafkaGroupID)
	defer service.consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := service.consumer.Consume(ctx, service.processEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Fatal("Consumer error")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/audit/events", service.handleRecent).Methods(http.MethodGet)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, auditorPort),
		Handler: router,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":  cfg.ServerHost,
			"port":  auditorPort,
			"topic": cfg.KafkaAuditTopic,
		}).Info("Event Auditor started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Event Auditor...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Event Auditor stopped")
}

func (s *AuditorService) processEvent(ctx context.Context, event models.Event) error {
	logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Debug("Storing audit event")

	return s.repo.Save(ctx, event)
}

func (s *AuditorService) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.repo.Recent(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list audit events")
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, records)
}
