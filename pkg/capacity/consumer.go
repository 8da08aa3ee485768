package capacity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/application"
	"github.com/loanflow/loanflow/pkg/messaging"
	"github.com/loanflow/loanflow/pkg/metrics"
	"github.com/loanflow/loanflow/pkg/model"
)

type AutoDecider interface {
	ApplyAutoDecision(ctx context.Context, result model.CapacityResultEvent) (*model.Application, error)
}

// Consumer turns capacity results into application status changes.
type Consumer struct {
	decider AutoDecider
	logger  *zap.Logger
}

func NewConsumer(decider AutoDecider, logger *zap.Logger) *Consumer {
	return &Consumer{decider: decider, logger: logger}
}

// Handle is a messaging.Handler. Payloads that fail the result schema or do
// not decode are reported as poison; every other failure leaves the message
// on the queue.
func (c *Consumer) Handle(ctx context.Context, msg messaging.Message) error {
	if err := validateResult(msg.Body); err != nil {
		metrics.CapacityResultsTotal.WithLabelValues("malformed").Inc()
		return fmt.Errorf("capacity result %s: %v: %w", msg.ID, err, messaging.ErrPoisonMessage)
	}

	var result model.CapacityResultEvent
	if err := json.Unmarshal(msg.Body, &result); err != nil {
		metrics.CapacityResultsTotal.WithLabelValues("malformed").Inc()
		return fmt.Errorf("decode capacity result %s: %v: %w", msg.ID, err, messaging.ErrPoisonMessage)
	}

	logger := c.logger.With(
		zap.String("message_id", msg.ID),
		zap.String("event_id", result.EventID),
		zap.String("correlation_id", result.CorrelationID),
		zap.Int64("application_id", result.ApplicationID),
		zap.String("decision", result.Decision),
	)

	app, err := c.decider.ApplyAutoDecision(ctx, result)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrAlreadyProcessed):
			metrics.CapacityResultsTotal.WithLabelValues("stale").Inc()
			logger.Info("ignoring capacity result for finalized application")
		case errors.Is(err, application.ErrNotFound):
			metrics.CapacityResultsTotal.WithLabelValues("not_found").Inc()
			logger.Warn("capacity result for unknown application")
		default:
			metrics.CapacityResultsTotal.WithLabelValues("failed").Inc()
			logger.Error("failed to apply capacity result", zap.Error(err))
		}
		return err
	}

	metrics.CapacityResultsTotal.WithLabelValues("applied").Inc()
	logger.Info("capacity result applied", zap.String("status", string(app.Status)))
	return nil
}
