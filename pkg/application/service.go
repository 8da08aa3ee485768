package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/model"
	"github.com/loanflow/loanflow/pkg/store"
)

type Repository interface {
	Save(ctx context.Context, app *model.Application) (*model.Application, error)
	FindByID(ctx context.Context, id int64) (*model.Application, error)
	ListByStatus(ctx context.Context, status model.ApplicationStatus, limit, offset int) ([]model.Application, error)
}

type LoanTypeRepository interface {
	FindByID(ctx context.Context, id int64) (*model.LoanType, error)
}

// UserDirectory resolves requesters against the identity service on behalf of
// the caller's credential.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id int64, credential string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email, credential string) (bool, error)
}

// CapacityRequester routes a freshly created application to automatic
// evaluation.
type CapacityRequester interface {
	RequestEvaluation(ctx context.Context, app *model.Application, loanType *model.LoanType, user *model.User) error
}

type DecisionPublisher interface {
	PublishDecision(ctx context.Context, event model.ApplicationDecisionEvent) error
}

type ReportsPublisher interface {
	PublishApproved(ctx context.Context, event model.ReportEvent) error
}

type Service struct {
	apps      Repository
	loanTypes LoanTypeRepository
	users     UserDirectory
	capacity  CapacityRequester
	decisions DecisionPublisher
	reports   ReportsPublisher
	logger    *zap.Logger
	now       func() time.Time
}

type Dependencies struct {
	Applications Repository
	LoanTypes    LoanTypeRepository
	Users        UserDirectory
	Capacity     CapacityRequester
	Decisions    DecisionPublisher
	Reports      ReportsPublisher
}

func NewService(deps Dependencies, logger *zap.Logger) *Service {
	return &Service{
		apps:      deps.Applications,
		loanTypes: deps.LoanTypes,
		users:     deps.Users,
		capacity:  deps.Capacity,
		decisions: deps.Decisions,
		reports:   deps.Reports,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Application, error) {
	return s.findApplication(ctx, id)
}

func (s *Service) ListByStatus(ctx context.Context, status model.ApplicationStatus, limit, offset int) ([]model.Application, error) {
	return s.apps.ListByStatus(ctx, status, limit, offset)
}

func (s *Service) findApplication(ctx context.Context, id int64) (*model.Application, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(CodeNotFound, msgApplicationNotFound)
		}
		return nil, err
	}
	return app, nil
}

func (s *Service) findLoanType(ctx context.Context, id int64) (*model.LoanType, error) {
	loanType, err := s.loanTypes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(CodeLoanTypeNotFound, msgLoanTypeNotFound)
		}
		return nil, err
	}
	return loanType, nil
}

func (s *Service) save(ctx context.Context, app *model.Application) (*model.Application, error) {
	saved, err := s.apps.Save(ctx, app)
	if err != nil {
		if errors.Is(err, store.ErrConcurrentUpdate) {
			return nil, &Error{Code: CodeConflict, Message: msgConcurrentUpdate, Err: err}
		}
		return nil, err
	}
	return saved, nil
}

func (s *Service) publishReport(ctx context.Context, app *model.Application) error {
	event := model.ReportEvent{
		LoanID: formatID(app.ID),
		Email:  app.Email,
		Amount: app.Amount,
		Term:   app.Term,
	}
	if err := s.reports.PublishApproved(ctx, event); err != nil {
		return channelFailure("reports", err)
	}
	return nil
}
