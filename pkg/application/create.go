package application

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/metrics"
	"github.com/loanflow/loanflow/pkg/model"
)

// CreateRequest is a raw application as submitted by a requester. Pointer
// fields distinguish an absent value from a zero one.
type CreateRequest struct {
	Amount     *decimal.Decimal
	Term       *int
	Email      string
	UserID     int64
	LoanTypeID *int64
}

// Create validates the request, persists the application in PENDING_REVIEW
// and, for loan types with automatic validation, publishes a capacity
// evaluation request. The evaluation itself is not awaited.
func (s *Service) Create(ctx context.Context, req CreateRequest, credential string) (*model.Application, error) {
	logger := s.logger.With(zap.String("email", req.Email), zap.Int64("user_id", req.UserID))
	logger.Info("creating application")

	if req.Amount == nil || req.Term == nil || req.Email == "" {
		return nil, newError(CodeMissingMandatoryFields, msgMandatoryFields)
	}
	if req.LoanTypeID == nil {
		return nil, newError(CodeLoanTypeRequired, msgLoanTypeRequired)
	}
	if *req.Term <= 0 {
		return nil, validationError(msgTermInvalid)
	}

	user, err := s.users.GetUserByID(ctx, req.UserID, credential)
	if err != nil {
		logger.Warn("requester lookup failed", zap.Error(err))
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email, credential)
	if err != nil {
		logger.Warn("email lookup failed", zap.Error(err))
		return nil, err
	}
	if !exists {
		return nil, newError(CodeEmailNotFound, msgEmailNotFound)
	}

	loanType, err := s.findLoanType(ctx, *req.LoanTypeID)
	if err != nil {
		return nil, err
	}

	if !loanType.AmountInRange(*req.Amount) {
		return nil, newError(CodeAmountOutOfRange, msgAmountOutOfRange)
	}

	app := &model.Application{
		Amount:     *req.Amount,
		Term:       *req.Term,
		Email:      req.Email,
		UserID:     req.UserID,
		LoanTypeID: loanType.ID,
		Status:     model.StatusPendingReview,
	}

	saved, err := s.save(ctx, app)
	if err != nil {
		logger.Error("failed to save application", zap.Error(err))
		return nil, err
	}
	metrics.ApplicationsCreated.WithLabelValues(strconv.FormatBool(loanType.AutomaticValidation)).Inc()

	if loanType.AutomaticValidation && !saved.Status.IsTerminal() {
		if err := s.capacity.RequestEvaluation(ctx, saved, loanType, user); err != nil {
			logger.Error("failed to request capacity evaluation",
				zap.Int64("application_id", saved.ID),
				zap.Error(err),
			)
			return nil, channelFailure("capacity requests", err)
		}
	}

	logger.Info("application created", zap.Int64("application_id", saved.ID))
	return saved, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
