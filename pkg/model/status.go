package model

import (
	"errors"
	"fmt"
	"strings"
)

type ApplicationStatus string

const (
	StatusPendingReview ApplicationStatus = "PENDING_REVIEW"
	StatusManualReview  ApplicationStatus = "MANUAL_REVIEW"
	StatusApproved      ApplicationStatus = "APPROVED"
	StatusRejected      ApplicationStatus = "REJECTED"
)

// Outcomes reported by the capacity evaluator.
const (
	EvaluatorApproved     = "APROBADA"
	EvaluatorManualReview = "REVISION_MANUAL"
	EvaluatorRejected     = "RECHAZADA"
)

var ErrUnknownDecision = errors.New("unknown decision")

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPendingReview, StatusManualReview, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanApply reports whether proposed may replace current. Manual decisions
// propose APPROVED or REJECTED; evaluator outcomes additionally propose
// MANUAL_REVIEW.
func CanApply(current, proposed ApplicationStatus) bool {
	if current.IsTerminal() {
		return false
	}
	switch proposed {
	case StatusApproved, StatusRejected, StatusManualReview:
		return true
	default:
		return false
	}
}

// ParseManualDecision accepts the two outcomes a reviewer may choose. The
// evaluator spellings are accepted as aliases.
func ParseManualDecision(value string) (ApplicationStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(StatusApproved), EvaluatorApproved:
		return StatusApproved, nil
	case string(StatusRejected), EvaluatorRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDecision, value)
	}
}

// ParseEvaluatorDecision maps an evaluator outcome to the status it produces.
func ParseEvaluatorDecision(value string) (ApplicationStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case EvaluatorApproved:
		return StatusApproved, nil
	case EvaluatorManualReview:
		return StatusManualReview, nil
	case EvaluatorRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDecision, value)
	}
}

func ParseStatus(value string) (ApplicationStatus, error) {
	status := ApplicationStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q", value)
	}
	return status, nil
}
