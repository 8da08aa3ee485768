package capacity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/messaging"
	"github.com/loanflow/loanflow/pkg/metrics"
	"github.com/loanflow/loanflow/pkg/model"
)

var hundred = decimal.NewFromInt(100)

// Orchestrator hands applications to the external capacity evaluator.
type Orchestrator struct {
	sender messaging.Sender
	logger *zap.Logger
}

func NewOrchestrator(sender messaging.Sender, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{sender: sender, logger: logger}
}

// RequestEvaluation publishes a single evaluation request. There is no retry;
// a publish failure is returned to the caller.
func (o *Orchestrator) RequestEvaluation(ctx context.Context, app *model.Application, loanType *model.LoanType, user *model.User) error {
	event := model.CapacityRequestEvent{
		EventID:            uuid.NewString(),
		CorrelationID:      uuid.NewString(),
		ApplicationID:      app.ID,
		UserID:             app.UserID,
		Email:              app.Email,
		LoanTypeID:         loanType.ID,
		Amount:             app.Amount,
		Term:               app.Term,
		MonthlyRate:        NormalizeRate(loanType.InterestRate),
		UserBaseSalary:     user.BaseSalary,
		CurrentMonthlyDebt: decimal.Zero,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode capacity request: %w", err)
	}

	err = o.sender.Send(ctx, messaging.Envelope{
		Body:    body,
		GroupID: fmt.Sprintf("application-%d", app.ID),
		DedupID: event.EventID,
	})
	if err != nil {
		metrics.ChannelPublishFailures.WithLabelValues("capacity_requests").Inc()
		return err
	}

	metrics.CapacityRequestsTotal.Inc()
	o.logger.Info("capacity evaluation requested",
		zap.Int64("application_id", app.ID),
		zap.String("event_id", event.EventID),
		zap.String("correlation_id", event.CorrelationID),
		zap.String("monthly_rate", event.MonthlyRate.String()),
	)
	return nil
}

// NormalizeRate reads rates of 1 or more as percentages.
func NormalizeRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return rate.Div(hundred)
	}
	return rate
}
