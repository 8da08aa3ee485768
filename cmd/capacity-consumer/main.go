package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/application"
	"github.com/loanflow/loanflow/pkg/capacity"
	"github.com/loanflow/loanflow/pkg/cloud"
	"github.com/loanflow/loanflow/pkg/config"
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

	clients, err := cloud.NewClients(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal("failed to load aws configuration", zap.Error(err))
	}

	// Automatic decisions only touch storage and the reports channel.
	service := application.NewService(application.Dependencies{
		Applications: postgres.NewApplicationRepository(db.DB()),
		LoanTypes:    postgres.NewLoanTypeRepository(db.DB()),
		Reports:      publisher.NewReportsPublisher(messaging.NewSQSQueue(clients.SQS, cfg.Queues.Reports), logger),
	}, logger)

	var deadLetter messaging.Sender
	if cfg.Queues.CapacityResultsDLQ != "" {
		deadLetter = messaging.NewSQSQueue(clients.SQS, cfg.Queues.CapacityResultsDLQ)
	}

	poller := messaging.NewPoller(
		messaging.NewSQSQueue(clients.SQS, cfg.Queues.CapacityResults),
		deadLetter,
		capacity.NewConsumer(service, logger).Handle,
		messaging.PollerConfig{
			Queue:        "capacity-results",
			PollInterval: cfg.Consumer.PollInterval,
			WaitTime:     cfg.Consumer.WaitTime,
			BatchSize:    cfg.Consumer.BatchSize,
			Concurrency:  cfg.Consumer.Concurrency,
			MaxReceives:  cfg.Consumer.MaxReceives,
		},
		logger,
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("capacity consumer stopped with error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("capacity consumer shutting down")
	// In-flight handlers finish before the deferred closes run.
	cancel()
	<-done
	logger.Info("capacity consumer stopped")
}
