package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loanflow/loanflow/pkg/application"
	"github.com/loanflow/loanflow/pkg/identity"
)

const timeRFC3339Nano = time.RFC3339Nano

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseOffset(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func parseID(value string) (int64, bool) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeRFC3339Nano)
}

// statusFor maps a workflow error to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, identity.ErrUserNotFound) {
		return http.StatusNotFound
	}
	switch application.CodeOf(err) {
	case application.CodeValidation,
		application.CodeMissingMandatoryFields,
		application.CodeLoanTypeRequired,
		application.CodeAmountOutOfRange,
		application.CodeEmailNotFound:
		return http.StatusBadRequest
	case application.CodeNotFound, application.CodeLoanTypeNotFound:
		return http.StatusNotFound
	case application.CodeConflict:
		return http.StatusConflict
	case application.CodeChannelFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := statusFor(err)
	var domainErr *application.Error
	switch {
	case errors.As(err, &domainErr) && status != http.StatusBadGateway:
		c.JSON(status, gin.H{"error": domainErr.Message, "code": domainErr.Code})
	case errors.Is(err, identity.ErrUserNotFound):
		c.JSON(status, gin.H{"error": "user not found"})
	case status == http.StatusBadGateway:
		c.JSON(status, gin.H{"error": "downstream channel unavailable", "code": application.CodeChannelFailure})
	default:
		c.JSON(status, gin.H{"error": "internal error"})
	}
}
