package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/loanflow/loanflow/pkg/metrics"
)

type PollerConfig struct {
	Queue        string
	PollInterval time.Duration
	WaitTime     time.Duration
	BatchSize    int
	Concurrency  int
	// MaxReceives bounds redeliveries before a failing message is forwarded
	// to the dead-letter sender. Zero leaves dead-lettering to the queue.
	MaxReceives int
}

// Poller drains a queue on a fixed interval. Handled messages are deleted;
// failed ones stay on the queue and reappear after the visibility timeout.
type Poller struct {
	source     Receiver
	deadLetter Sender
	handler    Handler
	logger     *zap.Logger
	cfg        PollerConfig
}

type DeadLetter struct {
	Queue        string    `json:"queue"`
	MessageID    string    `json:"message_id"`
	GroupID      string    `json:"group_id,omitempty"`
	ReceiveCount int       `json:"receive_count"`
	Body         string    `json:"body"`
	Error        string    `json:"error"`
	FailedAt     time.Time `json:"failed_at"`
}

func NewPoller(source Receiver, deadLetter Sender, handler Handler, cfg PollerConfig, logger *zap.Logger) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.WaitTime < 0 {
		cfg.WaitTime = 0
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > 10 {
		cfg.BatchSize = 5
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Poller{
		source:     source,
		deadLetter: deadLetter,
		handler:    handler,
		logger:     logger.With(zap.String("queue", cfg.Queue)),
		cfg:        cfg,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller starting",
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Duration("wait_time", p.cfg.WaitTime),
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Int("concurrency", p.cfg.Concurrency),
	)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller shutting down")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	messages, err := p.source.Receive(ctx, p.cfg.BatchSize, p.cfg.WaitTime)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("failed to receive messages", zap.Error(err))
		}
		return
	}
	if len(messages) == 0 {
		return
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, msg := range messages {
		msg := msg
		g.Go(func() error {
			p.process(gctx, msg)
			return nil
		})
	}
	_ = g.Wait()
	metrics.PollDuration.WithLabelValues(p.cfg.Queue).Observe(time.Since(start).Seconds())
}

func (p *Poller) process(ctx context.Context, msg Message) {
	logger := p.logger.With(zap.String("message_id", msg.ID), zap.Int("receive_count", msg.ReceiveCount))

	handlerErr := p.handler(ctx, msg)
	switch {
	case handlerErr == nil:
		p.ack(ctx, logger, msg)
	case errors.Is(handlerErr, ErrPoisonMessage):
		logger.Warn("discarding unprocessable message", zap.Error(handlerErr))
		p.ack(ctx, logger, msg)
	case p.exhausted(msg):
		if err := p.publishDeadLetter(ctx, msg, handlerErr); err != nil {
			logger.Error("failed to dead-letter message", zap.Error(err))
			return
		}
		logger.Warn("message dead-lettered", zap.Error(handlerErr))
		metrics.MessagesDeadLettered.WithLabelValues(p.cfg.Queue).Inc()
		p.ack(ctx, logger, msg)
	default:
		logger.Warn("message left for redelivery", zap.Error(handlerErr))
	}
}

func (p *Poller) exhausted(msg Message) bool {
	return p.deadLetter != nil && p.cfg.MaxReceives > 0 && msg.ReceiveCount > p.cfg.MaxReceives
}

func (p *Poller) ack(ctx context.Context, logger *zap.Logger, msg Message) {
	if err := p.source.Delete(ctx, msg); err != nil {
		logger.Warn("failed to delete message", zap.Error(err))
	}
}

func (p *Poller) publishDeadLetter(ctx context.Context, msg Message, handlerErr error) error {
	payload, err := json.Marshal(DeadLetter{
		Queue:        p.cfg.Queue,
		MessageID:    msg.ID,
		GroupID:      msg.GroupID,
		ReceiveCount: msg.ReceiveCount,
		Body:         string(msg.Body),
		Error:        handlerErr.Error(),
		FailedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	groupID := msg.GroupID
	if groupID == "" {
		groupID = p.cfg.Queue
	}
	return p.deadLetter.Send(ctx, Envelope{Body: payload, GroupID: groupID, DedupID: msg.ID})
}
