package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/loanflow/loanflow/pkg/apiserver/middleware"
	"github.com/loanflow/loanflow/pkg/application"
	"github.com/loanflow/loanflow/pkg/model"
)

type ApplicationService interface {
	Create(ctx context.Context, req application.CreateRequest, credential string) (*model.Application, error)
	Get(ctx context.Context, id int64) (*model.Application, error)
	ListByStatus(ctx context.Context, status model.ApplicationStatus, limit, offset int) ([]model.Application, error)
	Decide(ctx context.Context, cmd application.DecisionCommand) (*model.Application, error)
}

type ApplicationHandler struct {
	service ApplicationService
	logger  *zap.Logger
}

func NewApplicationHandler(service ApplicationService, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{service: service, logger: logger}
}

type applicationCreateRequest struct {
	Amount     *decimal.Decimal `json:"amount"`
	Term       *int             `json:"term"`
	Email      string           `json:"email"`
	UserID     int64            `json:"userId"`
	LoanTypeID *int64           `json:"loanTypeId"`
}

type decisionRequest struct {
	ApplicationID int64  `json:"applicationId"`
	Decision      string `json:"decision"`
	Observations  string `json:"observations"`
}

type applicationResponse struct {
	ID         int64           `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Term       int             `json:"term"`
	Email      string          `json:"email"`
	UserID     int64           `json:"userId"`
	LoanTypeID int64           `json:"loanTypeId"`
	Status     string          `json:"status"`
	Version    int64           `json:"version"`
	CreatedAt  string          `json:"createdAt"`
	UpdatedAt  string          `json:"updatedAt"`
}

func toApplicationResponse(app *model.Application) applicationResponse {
	return applicationResponse{
		ID:         app.ID,
		Amount:     app.Amount,
		Term:       app.Term,
		Email:      app.Email,
		UserID:     app.UserID,
		LoanTypeID: app.LoanTypeID,
		Status:     string(app.Status),
		Version:    app.Version,
		CreatedAt:  formatTime(app.CreatedAt),
		UpdatedAt:  formatTime(app.UpdatedAt),
	}
}

func (h *ApplicationHandler) Create(c *gin.Context) {
	var req applicationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	userID := req.UserID
	if userID == 0 {
		if claims := middleware.ClaimsFrom(c); claims != nil {
			userID, _ = strconv.ParseInt(claims.Subject, 10, 64)
		}
	}

	app, err := h.service.Create(c.Request.Context(), application.CreateRequest{
		Amount:     req.Amount,
		Term:       req.Term,
		Email:      strings.TrimSpace(req.Email),
		UserID:     userID,
		LoanTypeID: req.LoanTypeID,
	}, middleware.TokenFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toApplicationResponse(app))
}

func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid application id"})
		return
	}

	app, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toApplicationResponse(app))
}

// ListForReview lists applications in one status, PENDING_REVIEW unless the
// status query names another known status.
func (h *ApplicationHandler) ListForReview(c *gin.Context) {
	status := model.StatusPendingReview
	if raw := c.Query("status"); raw != "" {
		parsed, err := model.ParseStatus(raw)
		if err != nil {
			h.logger.Warn("unknown review status, using default", zap.String("status", raw))
		} else {
			status = parsed
		}
	}

	apps, err := h.service.ListByStatus(
		c.Request.Context(),
		status,
		parseLimit(c.Query("limit"), 50),
		parseOffset(c.Query("offset")),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]applicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, toApplicationResponse(&apps[i]))
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "items": items})
}

func (h *ApplicationHandler) Decide(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &application.Error{Code: application.CodeValidation, Message: "request body is empty or malformed", Err: err})
		return
	}
	if req.ApplicationID <= 0 {
		respondError(c, &application.Error{Code: application.CodeValidation, Message: "applicationId is required"})
		return
	}

	decision, err := model.ParseManualDecision(req.Decision)
	if err != nil {
		decision = model.ApplicationStatus(strings.ToUpper(strings.TrimSpace(req.Decision)))
	}

	app, err := h.service.Decide(c.Request.Context(), application.DecisionCommand{
		ApplicationID: req.ApplicationID,
		Decision:      decision,
		Credential:    middleware.TokenFrom(c),
		CorrelationID: middleware.CorrelationIDFrom(c),
		Observations:  strings.TrimSpace(req.Observations),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toApplicationResponse(app))
}
