package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/loantype"
	"github.com/loanflow/loanflow/pkg/model"
)

type LoanTypeService interface {
	Create(ctx context.Context, req loantype.CreateRequest) (*model.LoanType, error)
	Get(ctx context.Context, id int64) (*model.LoanType, error)
	List(ctx context.Context) ([]model.LoanType, error)
}

type LoanTypeHandler struct {
	service LoanTypeService
	logger  *zap.Logger
}

func NewLoanTypeHandler(service LoanTypeService, logger *zap.Logger) *LoanTypeHandler {
	return &LoanTypeHandler{service: service, logger: logger}
}

type loanTypeCreateRequest struct {
	Name                string           `json:"name" binding:"required"`
	MinimumAmount       *decimal.Decimal `json:"minimumAmount" binding:"required"`
	MaximumAmount       *decimal.Decimal `json:"maximumAmount" binding:"required"`
	InterestRate        *decimal.Decimal `json:"interestRate" binding:"required"`
	AutomaticValidation bool             `json:"automaticValidation"`
}

type loanTypeResponse struct {
	ID                  int64           `json:"id"`
	Name                string          `json:"name"`
	MinimumAmount       decimal.Decimal `json:"minimumAmount"`
	MaximumAmount       decimal.Decimal `json:"maximumAmount"`
	InterestRate        decimal.Decimal `json:"interestRate"`
	AutomaticValidation bool            `json:"automaticValidation"`
}

func toLoanTypeResponse(loanType *model.LoanType) loanTypeResponse {
	return loanTypeResponse{
		ID:                  loanType.ID,
		Name:                loanType.Name,
		MinimumAmount:       loanType.MinimumAmount,
		MaximumAmount:       loanType.MaximumAmount,
		InterestRate:        loanType.InterestRate,
		AutomaticValidation: loanType.AutomaticValidation,
	}
}

func (h *LoanTypeHandler) Create(c *gin.Context) {
	var req loanTypeCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	loanType, err := h.service.Create(c.Request.Context(), loantype.CreateRequest{
		Name:                req.Name,
		MinimumAmount:       *req.MinimumAmount,
		MaximumAmount:       *req.MaximumAmount,
		InterestRate:        *req.InterestRate,
		AutomaticValidation: req.AutomaticValidation,
	})
	switch {
	case errors.Is(err, loantype.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, loantype.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("failed to create loan type", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create loan type"})
		return
	}

	c.JSON(http.StatusCreated, toLoanTypeResponse(loanType))
}

func (h *LoanTypeHandler) List(c *gin.Context) {
	loanTypes, err := h.service.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list loan types", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list loan types"})
		return
	}

	items := make([]loanTypeResponse, 0, len(loanTypes))
	for i := range loanTypes {
		items = append(items, toLoanTypeResponse(&loanTypes[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LoanTypeHandler) Get(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan type id"})
		return
	}

	loanType, err := h.service.Get(c.Request.Context(), id)
	if errors.Is(err, loantype.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "loan type not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to get loan type", zap.Error(err), zap.Int64("loan_type_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get loan type"})
		return
	}

	c.JSON(http.StatusOK, toLoanTypeResponse(loanType))
}
