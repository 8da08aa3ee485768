package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/model"
)

func (f *fixture) service() *Service {
	svc := NewService(Dependencies{
		Applications: f.apps,
		LoanTypes:    f.loanTypes(),
		Users:        f.users,
		Capacity:     f.capacity,
		Decisions:    f.decisions,
		Reports:      f.reports,
	}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func createRequest(amount string, loanTypeID int64) CreateRequest {
	value := decimal.RequireFromString(amount)
	term := 12
	return CreateRequest{
		Amount:     &value,
		Term:       &term,
		Email:      "ana@example.com",
		UserID:     requesterID,
		LoanTypeID: &loanTypeID,
	}
}

func TestCreateWithAutomaticValidation(t *testing.T) {
	f := newFixture()
	svc := f.service()

	app, err := svc.Create(context.Background(), createRequest("5000", autoLoanID), "token")
	require.NoError(t, err)

	assert.Equal(t, model.StatusPendingReview, app.Status)
	assert.NotZero(t, app.ID)
	assert.Equal(t, 1, f.apps.saves)
	require.Len(t, f.capacity.calls, 1)
	assert.Equal(t, app.ID, f.capacity.calls[0].app.ID)
	assert.Equal(t, requesterID, f.capacity.calls[0].user.ID)
	assert.Empty(t, f.decisions.events)
}

func TestCreateWithoutAutomaticValidation(t *testing.T) {
	f := newFixture()
	svc := f.service()

	app, err := svc.Create(context.Background(), createRequest("20000", manualLoan), "token")
	require.NoError(t, err)

	assert.Equal(t, model.StatusPendingReview, app.Status)
	assert.Empty(t, f.capacity.calls)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		want   error
	}{
		{"missing amount", func(r *CreateRequest) { r.Amount = nil }, ErrMissingMandatoryFields},
		{"missing term", func(r *CreateRequest) { r.Term = nil }, ErrMissingMandatoryFields},
		{"missing email", func(r *CreateRequest) { r.Email = "" }, ErrMissingMandatoryFields},
		{"missing loan type", func(r *CreateRequest) { r.LoanTypeID = nil }, ErrLoanTypeRequired},
		{"non positive term", func(r *CreateRequest) { zero := 0; r.Term = &zero }, ErrValidation},
		{"unknown email", func(r *CreateRequest) { r.Email = "ghost@example.com" }, ErrEmailNotFound},
		{"unknown loan type", func(r *CreateRequest) { id := int64(99); r.LoanTypeID = &id }, ErrLoanTypeNotFound},
		{"below minimum", func(r *CreateRequest) { v := decimal.RequireFromString("999.99"); r.Amount = &v }, ErrAmountOutOfRange},
		{"above maximum", func(r *CreateRequest) { v := decimal.NewFromInt(50001); r.Amount = &v }, ErrAmountOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := createRequest("5000", autoLoanID)
			tt.mutate(&req)

			_, err := f.service().Create(context.Background(), req, "token")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.apps.saves)
			assert.Empty(t, f.capacity.calls)
		})
	}
}

func TestCreateAcceptsRangeBounds(t *testing.T) {
	for _, amount := range []string{"1000", "50000"} {
		f := newFixture()
		_, err := f.service().Create(context.Background(), createRequest(amount, autoLoanID), "token")
		require.NoError(t, err, amount)
	}
}

func TestCreatePropagatesIdentityFailure(t *testing.T) {
	f := newFixture()
	f.users.err = errIdentityDown

	_, err := f.service().Create(context.Background(), createRequest("5000", autoLoanID), "token")
	assert.ErrorIs(t, err, errIdentityDown)
	assert.Equal(t, Code(""), CodeOf(err))
	assert.Zero(t, f.apps.saves)
}

func TestCreateCapacityPublishFailureKeepsRecord(t *testing.T) {
	f := newFixture()
	f.capacity.err = errors.New("queue unavailable")

	_, err := f.service().Create(context.Background(), createRequest("5000", autoLoanID), "token")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChannelFailure)
	assert.Equal(t, 1, f.apps.saves)
	assert.Equal(t, model.StatusPendingReview, f.apps.get(101).Status)
}

func TestDecideApprovePublishesNotificationAndReport(t *testing.T) {
	f := newFixture(pendingApplication(5, model.StatusPendingReview))
	svc := f.service()

	app, err := svc.Decide(context.Background(), DecisionCommand{
		ApplicationID: 5,
		Decision:      model.StatusApproved,
		Credential:    "token",
		CorrelationID: "corr-1",
		Observations:  "stable income",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, app.Status)
	assert.Equal(t, model.StatusApproved, f.apps.get(5).Status)

	require.Len(t, f.decisions.events, 1)
	event := f.decisions.events[0]
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, int64(5), event.ApplicationID)
	assert.Equal(t, "APPROVED", event.Decision)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, "ana@example.com", event.Email)
	assert.Equal(t, "stable income", event.Observations)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), event.DecidedAt)

	require.Len(t, f.reports.events, 1)
	assert.Equal(t, model.ReportEvent{
		LoanID: "5",
		Email:  "ana@example.com",
		Amount: decimal.NewFromInt(5000),
		Term:   12,
	}, f.reports.events[0])
}

func TestDecideRejectPublishesNotificationOnly(t *testing.T) {
	f := newFixture(pendingApplication(5, model.StatusManualReview))

	app, err := f.service().Decide(context.Background(), DecisionCommand{
		ApplicationID: 5,
		Decision:      model.StatusRejected,
		Credential:    "token",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusRejected, app.Status)
	assert.Len(t, f.decisions.events, 1)
	assert.Empty(t, f.reports.events)
}

func TestDecideOnFinalizedApplication(t *testing.T) {
	for _, status := range []model.ApplicationStatus{model.StatusApproved, model.StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(pendingApplication(5, status))

			_, err := f.service().Decide(context.Background(), DecisionCommand{
				ApplicationID: 5,
				Decision:      model.StatusRejected,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAlreadyProcessed)
			assert.ErrorIs(t, err, ErrValidation)

			assert.Zero(t, f.apps.saves)
			assert.Equal(t, status, f.apps.get(5).Status)
			assert.Empty(t, f.decisions.events)
			assert.Empty(t, f.reports.events)
		})
	}
}

func TestDecideRejectsNonFinalDecision(t *testing.T) {
	f := newFixture(pendingApplication(5, model.StatusPendingReview))

	_, err := f.service().Decide(context.Background(), DecisionCommand{
		ApplicationID: 5,
		Decision:      model.StatusManualReview,
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrAlreadyProcessed)
	assert.Zero(t, f.apps.saves)
}

func TestDecideMissingApplication(t *testing.T) {
	f := newFixture()

	_, err := f.service().Decide(context.Background(), DecisionCommand{
		ApplicationID: 404,
		Decision:      model.StatusApproved,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestDecideLostRaceIsConflict(t *testing.T) {
	f := newFixture(pendingApplication(5, model.StatusPendingReview))
	f.apps.conflict = true

	_, err := f.service().Decide(context.Background(), DecisionCommand{
		ApplicationID: 5,
		Decision:      model.StatusApproved,
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, f.decisions.events)
}

func TestDecideIdentityFailureLeavesApplicationUntouched(t *testing.T) {
	f := newFixture(pendingApplication(5, model.StatusPendingReview))
	f.users.err = errIdentityDown

	_, err := f.service().Decide(context.Background(), DecisionCommand{
		ApplicationID: 5,
		Decision:      model.StatusApproved,
	})
	assert.ErrorIs(t, err, errIdentityDown)
	assert.Zero(t, f.apps.saves)
	assert.Equal(t, model.StatusPendingReview, f.apps.get(5).Status)
}

func TestDecidePublishFailureIsChannelFailure(t *testing.T) {
	f := newFixture(pendingApplication(5, model.StatusPendingReview))
	f.decisions.err = errors.New("fifo queue throttled")

	_, err := f.service().Decide(context.Background(), DecisionCommand{
		ApplicationID: 5,
		Decision:      model.StatusApproved,
	})
	assert.ErrorIs(t, err, ErrChannelFailure)
	assert.Empty(t, f.reports.events)
}

func TestApplyAutoDecision(t *testing.T) {
	tests := []struct {
		decision string
		want     model.ApplicationStatus
		reports  int
	}{
		{model.EvaluatorApproved, model.StatusApproved, 1},
		{model.EvaluatorManualReview, model.StatusManualReview, 0},
		{model.EvaluatorRejected, model.StatusRejected, 0},
	}

	for _, tt := range tests {
		t.Run(tt.decision, func(t *testing.T) {
			f := newFixture(pendingApplication(9, model.StatusPendingReview))

			app, err := f.service().ApplyAutoDecision(context.Background(), model.CapacityResultEvent{
				EventID:       "evt-1",
				ApplicationID: 9,
				Decision:      tt.decision,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, app.Status)
			assert.Equal(t, tt.want, f.apps.get(9).Status)
			assert.Len(t, f.reports.events, tt.reports)
			assert.Empty(t, f.decisions.events)
		})
	}
}

func TestApplyAutoDecisionRedeliveryIsIdempotent(t *testing.T) {
	f := newFixture(pendingApplication(9, model.StatusPendingReview))
	svc := f.service()
	result := model.CapacityResultEvent{EventID: "evt-1", ApplicationID: 9, Decision: model.EvaluatorApproved}

	_, err := svc.ApplyAutoDecision(context.Background(), result)
	require.NoError(t, err)
	saved := f.apps.get(9)

	_, err = svc.ApplyAutoDecision(context.Background(), result)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	assert.Equal(t, 1, f.apps.saves)
	assert.Equal(t, saved, f.apps.get(9))
	assert.Len(t, f.reports.events, 1)
}

func TestApplyAutoDecisionErrors(t *testing.T) {
	f := newFixture(pendingApplication(9, model.StatusPendingReview))
	svc := f.service()

	_, err := svc.ApplyAutoDecision(context.Background(), model.CapacityResultEvent{ApplicationID: 9, Decision: "MAYBE"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, model.ErrUnknownDecision)

	_, err = svc.ApplyAutoDecision(context.Background(), model.CapacityResultEvent{ApplicationID: 77, Decision: model.EvaluatorRejected})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, f.apps.saves)
}

func TestApplyAutoDecisionReportFailure(t *testing.T) {
	f := newFixture(pendingApplication(9, model.StatusPendingReview))
	f.reports.err = errors.New("reports queue down")

	_, err := f.service().ApplyAutoDecision(context.Background(), model.CapacityResultEvent{
		ApplicationID: 9,
		Decision:      model.EvaluatorApproved,
	})
	assert.ErrorIs(t, err, ErrChannelFailure)
}

func TestListByStatus(t *testing.T) {
	f := newFixture(
		pendingApplication(1, model.StatusPendingReview),
		pendingApplication(2, model.StatusApproved),
		pendingApplication(3, model.StatusPendingReview),
	)

	apps, err := f.service().ListByStatus(context.Background(), model.StatusPendingReview, 50, 0)
	require.NoError(t, err)
	assert.Len(t, apps, 2)
}

func TestErrorMatching(t *testing.T) {
	err := newError(CodeAmountOutOfRange, msgAmountOutOfRange)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
	assert.NotErrorIs(t, err, ErrValidation)

	wrapped := channelFailure("decisions", errors.New("boom"))
	assert.Equal(t, CodeChannelFailure, CodeOf(wrapped))
	assert.Contains(t, wrapped.Error(), "publish to decisions failed")

	passthrough := channelFailure("reports", ErrAlreadyProcessed)
	assert.Same(t, ErrAlreadyProcessed, passthrough)
}
