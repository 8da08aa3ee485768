package application

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeMissingMandatoryFields Code = "MISSING_MANDATORY_FIELDS"
	CodeLoanTypeRequired       Code = "LOAN_TYPE_REQUIRED"
	CodeLoanTypeNotFound       Code = "LOAN_TYPE_NOT_FOUND"
	CodeAmountOutOfRange       Code = "AMOUNT_OUT_OF_RANGE"
	CodeEmailNotFound          Code = "EMAIL_NOT_FOUND"
	CodeNotFound               Code = "NOT_FOUND"
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeConflict               Code = "CONFLICT"
	CodeChannelFailure         Code = "CHANNEL_FAILURE"
)

const (
	msgMandatoryFields     = "amount, term and email are required"
	msgLoanTypeRequired    = "loan type is required"
	msgLoanTypeNotFound    = "loan type does not exist"
	msgAmountOutOfRange    = "amount is outside the range allowed for the loan type"
	msgEmailNotFound       = "email is not registered"
	msgApplicationNotFound = "application not found"
	msgDecisionAllowed     = "decision must be APPROVED or REJECTED"
	msgAlreadyProcessed    = "application was already processed and cannot be modified"
	msgTermInvalid         = "term must be a positive number of months"
	msgConcurrentUpdate    = "application was modified concurrently, retry the request"
)

// Error is a classified failure of the decision workflow.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code when the target carries no
// message, so the code sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

var (
	ErrMissingMandatoryFields = &Error{Code: CodeMissingMandatoryFields}
	ErrLoanTypeRequired       = &Error{Code: CodeLoanTypeRequired}
	ErrLoanTypeNotFound       = &Error{Code: CodeLoanTypeNotFound}
	ErrAmountOutOfRange       = &Error{Code: CodeAmountOutOfRange}
	ErrEmailNotFound          = &Error{Code: CodeEmailNotFound}
	ErrNotFound               = &Error{Code: CodeNotFound}
	ErrValidation             = &Error{Code: CodeValidation}
	ErrConflict               = &Error{Code: CodeConflict}
	ErrChannelFailure         = &Error{Code: CodeChannelFailure}

	// ErrAlreadyProcessed is returned whenever a decision targets an
	// application in a terminal status. It also matches ErrValidation.
	ErrAlreadyProcessed = &Error{Code: CodeValidation, Message: msgAlreadyProcessed}
)

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func validationError(message string) *Error {
	return newError(CodeValidation, message)
}

func channelFailure(channel string, err error) error {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return err
	}
	return &Error{Code: CodeChannelFailure, Message: "publish to " + channel + " failed", Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when err
// is unclassified.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
