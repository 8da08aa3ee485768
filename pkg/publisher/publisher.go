package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/messaging"
	"github.com/loanflow/loanflow/pkg/metrics"
	"github.com/loanflow/loanflow/pkg/model"
)

const (
	ChannelDecisions = "decisions"
	ChannelReports   = "reports"
)

// GroupID is the ordering key shared by every event of one application.
func GroupID(applicationID int64) string {
	return "application-" + strconv.FormatInt(applicationID, 10)
}

type DecisionPublisher struct {
	sender messaging.Sender
	logger *zap.Logger
}

func NewDecisionPublisher(sender messaging.Sender, logger *zap.Logger) *DecisionPublisher {
	return &DecisionPublisher{sender: sender, logger: logger}
}

func (p *DecisionPublisher) PublishDecision(ctx context.Context, event model.ApplicationDecisionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode decision event: %w", err)
	}

	env := messaging.Envelope{
		Body:    body,
		Subject: fmt.Sprintf("Application %d %s", event.ApplicationID, event.Decision),
		GroupID: GroupID(event.ApplicationID),
		DedupID: event.EventID,
		Attributes: map[string]string{
			"eventType": "ApplicationDecision",
		},
	}
	if err := p.sender.Send(ctx, env); err != nil {
		metrics.ChannelPublishFailures.WithLabelValues(ChannelDecisions).Inc()
		return err
	}

	p.logger.Debug("decision event published",
		zap.String("event_id", event.EventID),
		zap.Int64("application_id", event.ApplicationID),
	)
	return nil
}

type ReportsPublisher struct {
	sender messaging.Sender
	logger *zap.Logger
}

func NewReportsPublisher(sender messaging.Sender, logger *zap.Logger) *ReportsPublisher {
	return &ReportsPublisher{sender: sender, logger: logger}
}

func (p *ReportsPublisher) PublishApproved(ctx context.Context, event model.ReportEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode report event: %w", err)
	}

	env := messaging.Envelope{
		Body:    body,
		GroupID: "loan-" + event.LoanID,
		DedupID: "approved-" + event.LoanID,
	}
	if err := p.sender.Send(ctx, env); err != nil {
		metrics.ChannelPublishFailures.WithLabelValues(ChannelReports).Inc()
		return err
	}

	p.logger.Debug("approval report published", zap.String("loan_id", event.LoanID))
	return nil
}
