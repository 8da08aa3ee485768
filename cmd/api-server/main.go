package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/apiserver"
	"github.com/loanflow/loanflow/pkg/application"
	"github.com/loanflow/loanflow/pkg/auth"
	"github.com/loanflow/loanflow/pkg/capacity"
	"github.com/loanflow/loanflow/pkg/cloud"
	"github.com/loanflow/loanflow/pkg/config"
	"github.com/loanflow/loanflow/pkg/identity"
	"github.com/loanflow/loanflow/pkg/loantype"
	"github.com/loanflow/loanflow/pkg/logging"
	"github.com/loanflow/loanflow/pkg/messaging"
	"github.com/loanflow/loanflow/pkg/publisher"
	"github.com/loanflow/loanflow/pkg/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	clients, err := cloud.NewClients(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal("failed to load aws configuration", zap.Error(err))
	}

	decisions, closeDecisions := decisionSender(cfg, clients)
	defer closeDecisions()

	loanTypes := postgres.NewLoanTypeRepository(db.DB())
	service := application.NewService(application.Dependencies{
		Applications: postgres.NewApplicationRepository(db.DB()),
		LoanTypes:    loanTypes,
		Users:        identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.Timeout, logger),
		Capacity:     capacity.NewOrchestrator(messaging.NewSQSQueue(clients.SQS, cfg.Queues.CapacityRequests), logger),
		Decisions:    publisher.NewDecisionPublisher(decisions, logger),
		Reports:      publisher.NewReportsPublisher(messaging.NewSQSQueue(clients.SQS, cfg.Queues.Reports), logger),
	}, logger)

	tokens := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	server := apiserver.NewServer(service, loantype.NewService(loanTypes, logger), tokens, cfg, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting api server",
			zap.Int("port", cfg.Server.HTTPPort),
			zap.String("decision_channel", cfg.Notifier.Channel),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}

// decisionSender returns the ordered channel decision events are published
// on, and a func releasing it.
func decisionSender(cfg *config.Config, clients *cloud.Clients) (messaging.Sender, func()) {
	switch cfg.Notifier.Channel {
	case "sns":
		return messaging.NewSNSTopic(clients.SNS, cfg.Notifier.DecisionTopicARN), func() {}
	case "kafka":
		sender := messaging.NewKafkaSender(messaging.KafkaSenderConfig{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
			Topic:    cfg.Kafka.DecisionTopic,
		})
		return sender, func() { _ = sender.Close() }
	default:
		return messaging.NewSQSQueue(clients.SQS, cfg.Queues.Decisions), func() {}
	}
}
