package loantype

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/model"
	"github.com/loanflow/loanflow/pkg/store"
)

var (
	ErrInvalid   = errors.New("invalid loan type")
	ErrDuplicate = errors.New("loan type name already exists")
	ErrNotFound  = errors.New("loan type not found")
)

type Repository interface {
	Create(ctx context.Context, loanType *model.LoanType) error
	FindByID(ctx context.Context, id int64) (*model.LoanType, error)
	List(ctx context.Context) ([]model.LoanType, error)
}

// Service manages the loan type catalogue that bounds application amounts.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

type CreateRequest struct {
	Name                string
	MinimumAmount       decimal.Decimal
	MaximumAmount       decimal.Decimal
	InterestRate        decimal.Decimal
	AutomaticValidation bool
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.LoanType, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	case req.MinimumAmount.IsNegative():
		return nil, fmt.Errorf("%w: minimum amount must not be negative", ErrInvalid)
	case req.MaximumAmount.LessThan(req.MinimumAmount):
		return nil, fmt.Errorf("%w: maximum amount is below minimum amount", ErrInvalid)
	case req.InterestRate.IsNegative():
		return nil, fmt.Errorf("%w: interest rate must not be negative", ErrInvalid)
	}

	loanType := &model.LoanType{
		Name:                name,
		MinimumAmount:       req.MinimumAmount,
		MaximumAmount:       req.MaximumAmount,
		InterestRate:        req.InterestRate,
		AutomaticValidation: req.AutomaticValidation,
	}
	if err := s.repo.Create(ctx, loanType); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	s.logger.Info("loan type created", zap.Int64("loan_type_id", loanType.ID), zap.String("name", name))
	return loanType, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.LoanType, error) {
	loanType, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return loanType, err
}

func (s *Service) List(ctx context.Context) ([]model.LoanType, error) {
	return s.repo.List(ctx)
}
