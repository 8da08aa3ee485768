package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/loanflow/loanflow/pkg/metrics"
	"github.com/loanflow/loanflow/pkg/model"
)

type DecisionCommand struct {
	ApplicationID int64
	Decision      model.ApplicationStatus
	Credential    string
	CorrelationID string
	Observations  string
}

// Decide applies a reviewer's decision. The notification event is published
// for every decision; approvals are additionally sent to reporting.
func (s *Service) Decide(ctx context.Context, cmd DecisionCommand) (*model.Application, error) {
	logger := s.logger.With(
		zap.Int64("application_id", cmd.ApplicationID),
		zap.String("decision", string(cmd.Decision)),
		zap.String("correlation_id", cmd.CorrelationID),
	)

	if cmd.Decision != model.StatusApproved && cmd.Decision != model.StatusRejected {
		return nil, validationError(msgDecisionAllowed)
	}

	app, err := s.findApplication(ctx, cmd.ApplicationID)
	if err != nil {
		logger.Warn("decision rejected", zap.Error(err))
		return nil, err
	}
	if !model.CanApply(app.Status, cmd.Decision) {
		logger.Warn("decision on finalized application", zap.String("status", string(app.Status)))
		return nil, ErrAlreadyProcessed
	}

	var (
		user     *model.User
		loanType *model.LoanType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.GetUserByID(gctx, app.UserID, cmd.Credential)
		return err
	})
	g.Go(func() error {
		var err error
		loanType, err = s.findLoanType(gctx, app.LoanTypeID)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Warn("failed to resolve decision context", zap.Error(err))
		return nil, err
	}

	app.Status = cmd.Decision
	saved, err := s.save(ctx, app)
	if err != nil {
		logger.Error("failed to save decision", zap.Error(err))
		return nil, err
	}

	event := model.ApplicationDecisionEvent{
		EventID:       uuid.NewString(),
		ApplicationID: saved.ID,
		UserID:        saved.UserID,
		Email:         saved.Email,
		LoanTypeID:    saved.LoanTypeID,
		Decision:      string(cmd.Decision),
		Observations:  cmd.Observations,
		CorrelationID: cmd.CorrelationID,
		DecidedAt:     s.now().UTC(),
	}
	if err := s.decisions.PublishDecision(ctx, event); err != nil {
		logger.Error("failed to publish decision event", zap.String("event_id", event.EventID), zap.Error(err))
		return nil, channelFailure("decisions", err)
	}

	if cmd.Decision == model.StatusApproved {
		if err := s.publishReport(ctx, saved); err != nil {
			logger.Error("failed to publish approval report", zap.Error(err))
			return nil, err
		}
	}

	metrics.DecisionsTotal.WithLabelValues(metrics.PathManual, string(cmd.Decision)).Inc()
	logger.Info("decision applied",
		zap.Int64("requester_id", user.ID),
		zap.String("loan_type", loanType.Name),
		zap.String("event_id", event.EventID),
	)
	return saved, nil
}

// ApplyAutoDecision applies an evaluator outcome. A result for an application
// that is already final returns ErrAlreadyProcessed and leaves it untouched.
func (s *Service) ApplyAutoDecision(ctx context.Context, result model.CapacityResultEvent) (*model.Application, error) {
	logger := s.logger.With(
		zap.Int64("application_id", result.ApplicationID),
		zap.String("event_id", result.EventID),
		zap.String("correlation_id", result.CorrelationID),
	)

	status, err := model.ParseEvaluatorDecision(result.Decision)
	if err != nil {
		return nil, &Error{Code: CodeValidation, Message: "invalid automatic decision " + result.Decision, Err: err}
	}

	app, err := s.findApplication(ctx, result.ApplicationID)
	if err != nil {
		return nil, err
	}
	if !model.CanApply(app.Status, status) {
		logger.Info("ignoring automatic decision for finalized application", zap.String("status", string(app.Status)))
		return nil, ErrAlreadyProcessed
	}

	app.Status = status
	saved, err := s.save(ctx, app)
	if err != nil {
		return nil, err
	}

	if status == model.StatusApproved {
		if err := s.publishReport(ctx, saved); err != nil {
			return nil, err
		}
	}

	metrics.DecisionsTotal.WithLabelValues(metrics.PathAutomatic, string(status)).Inc()
	logger.Info("automatic decision applied", zap.String("status", string(status)))
	return saved, nil
}
