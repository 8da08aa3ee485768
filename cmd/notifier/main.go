package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/cloud"
	"github.com/loanflow/loanflow/pkg/config"
	"github.com/loanflow/loanflow/pkg/eventbus"
	"github.com/loanflow/loanflow/pkg/logging"
	"github.com/loanflow/loanflow/pkg/messaging"
	"github.com/loanflow/loanflow/pkg/notifier"
	redisclient "github.com/loanflow/loanflow/pkg/store/redis"
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

	clients, err := cloud.NewClients(ctx, cfg.AWS)
	if err != nil {
		logger.Fatal("failed to load aws configuration", zap.Error(err))
	}

	var deduper eventbus.Deduper
	if len(cfg.Redis.Addresses) > 0 {
		rdb, err := redisclient.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		deduper = eventbus.NewRedisDeduper(rdb, cfg.Notifier.DedupTTL)
	} else {
		logger.Warn("redis not configured, deduplicating in memory")
		deduper = eventbus.NewMemoryDeduper(cfg.Notifier.DedupTTL)
	}

	var topic messaging.Sender
	if cfg.Notifier.TopicARN != "" {
		topic = messaging.NewSNSTopic(clients.SNS, cfg.Notifier.TopicARN)
	}
	relay := notifier.NewRelay(topic, clients.SES, deduper, notifier.Config{MailFrom: cfg.Notifier.MailFrom}, logger)

	var deadLetter messaging.Sender
	if cfg.Queues.DecisionsDLQ != "" {
		deadLetter = messaging.NewSQSQueue(clients.SQS, cfg.Queues.DecisionsDLQ)
	}

	poller := messaging.NewPoller(
		messaging.NewSQSQueue(clients.SQS, cfg.Queues.Decisions),
		deadLetter,
		relay.Handle,
		messaging.PollerConfig{
			Queue:        "decisions",
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
			logger.Fatal("notifier stopped with error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("notifier shutting down")
	// In-flight handlers finish before the deferred closes run.
	cancel()
	<-done
	logger.Info("notifier stopped")
}
