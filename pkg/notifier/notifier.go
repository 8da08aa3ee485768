package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/eventbus"
	"github.com/loanflow/loanflow/pkg/messaging"
	"github.com/loanflow/loanflow/pkg/metrics"
	"github.com/loanflow/loanflow/pkg/model"
	"github.com/loanflow/loanflow/pkg/publisher"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type Config struct {
	// MailFrom is the verified SES sender. Email delivery is skipped when empty.
	MailFrom string
}

// Relay fans decision events out to the applicant: a plain-text message on
// the notification topic and an email to the address on the event.
type Relay struct {
	topic   messaging.Sender
	mail    SESAPI
	deduper eventbus.Deduper
	cfg     Config
	logger  *zap.Logger
}

func NewRelay(topic messaging.Sender, mail SESAPI, deduper eventbus.Deduper, cfg Config, logger *zap.Logger) *Relay {
	return &Relay{topic: topic, mail: mail, deduper: deduper, cfg: cfg, logger: logger}
}

// Handle is a messaging.Handler for the decision notification queue. An event
// id that was already relayed is acknowledged without sending anything.
func (r *Relay) Handle(ctx context.Context, msg messaging.Message) error {
	event, err := decodeDecision(msg.Body)
	if err != nil {
		return fmt.Errorf("decode decision event %s: %v: %w", msg.ID, err, messaging.ErrPoisonMessage)
	}

	logger := r.logger.With(
		zap.String("message_id", msg.ID),
		zap.String("event_id", event.EventID),
		zap.Int64("application_id", event.ApplicationID),
		zap.String("correlation_id", event.CorrelationID),
	)

	seen, err := r.deduper.Seen(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("check event %s: %w", event.EventID, err)
	}
	if seen {
		logger.Info("duplicate decision event skipped")
		return nil
	}

	subject := Subject(event)
	text := Body(event)

	if r.topic != nil {
		err := r.topic.Send(ctx, messaging.Envelope{
			Body:    []byte(text),
			Subject: subject,
			GroupID: publisher.GroupID(event.ApplicationID),
			DedupID: event.EventID,
		})
		if err != nil {
			return fmt.Errorf("publish notification: %w", err)
		}
		metrics.NotificationsSent.WithLabelValues("sns").Inc()
	}

	if r.mail != nil && r.cfg.MailFrom != "" && event.Email != "" {
		_, err := r.mail.SendEmail(ctx, &ses.SendEmailInput{
			Source:      aws.String(r.cfg.MailFrom),
			Destination: &types.Destination{ToAddresses: []string{event.Email}},
			Message: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body:    &types.Body{Text: &types.Content{Data: aws.String(text)}},
			},
		})
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		metrics.NotificationsSent.WithLabelValues("email").Inc()
	}

	if err := r.deduper.MarkSeen(ctx, event.EventID); err != nil {
		logger.Warn("failed to record relayed event", zap.Error(err))
	}
	logger.Info("decision notification relayed", zap.String("decision", event.Decision))
	return nil
}

// snsNotification is the envelope SNS wraps around a message delivered to a
// subscribed queue without raw message delivery.
type snsNotification struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

func decodeDecision(body []byte) (model.ApplicationDecisionEvent, error) {
	var envelope snsNotification
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Type == "Notification" {
		body = []byte(envelope.Message)
	}

	var event model.ApplicationDecisionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, err
	}
	if event.EventID == "" {
		return event, errors.New("missing eventId")
	}
	if event.ApplicationID <= 0 {
		return event, errors.New("missing idApplication")
	}
	return event, nil
}

func Subject(event model.ApplicationDecisionEvent) string {
	return fmt.Sprintf("Application %d %s", event.ApplicationID, event.Decision)
}

func Body(event model.ApplicationDecisionEvent) string {
	lines := []string{
		"Hello,",
		"",
		fmt.Sprintf("Your application #%d was %s.", event.ApplicationID, event.Decision),
	}
	if obs := strings.TrimSpace(event.Observations); obs != "" {
		lines = append(lines, "Observations: "+obs)
	}
	lines = append(lines, "", "Thank you.")
	return strings.Join(lines, "\n")
}
