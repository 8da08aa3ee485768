package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Field names follow the contract shared with the capacity evaluator and the
// downstream notification and reporting consumers.

type CapacityRequestEvent struct {
	EventID            string          `json:"eventId"`
	CorrelationID      string          `json:"correlationId"`
	ApplicationID      int64           `json:"idApplication"`
	UserID             int64           `json:"idUser"`
	Email              string          `json:"email"`
	LoanTypeID         int64           `json:"loanTypeId"`
	Amount             decimal.Decimal `json:"amount"`
	Term               int             `json:"term"`
	MonthlyRate        decimal.Decimal `json:"monthlyRate"`
	UserBaseSalary     decimal.Decimal `json:"userBaseSalary"`
	CurrentMonthlyDebt decimal.Decimal `json:"deudaMensualActual"`
}

type Installment struct {
	Number    int             `json:"n"`
	Principal decimal.Decimal `json:"capital"`
	Interest  decimal.Decimal `json:"interes"`
	Balance   decimal.Decimal `json:"saldo"`
}

type CapacityResultEvent struct {
	EventID            string           `json:"eventId"`
	CorrelationID      string           `json:"correlationId"`
	ApplicationID      int64            `json:"idApplication"`
	Decision           string           `json:"decision"`
	Observations       string           `json:"observations"`
	MaxCapacity        *decimal.Decimal `json:"capacidadMaxima,omitempty"`
	CurrentMonthlyDebt *decimal.Decimal `json:"deudaMensualActual,omitempty"`
	AvailableCapacity  *decimal.Decimal `json:"capacidadDisponible,omitempty"`
	NewInstallment     *decimal.Decimal `json:"cuotaPrestamoNuevo,omitempty"`
	PaymentPlan        []Installment    `json:"planPago,omitempty"`
}

type ApplicationDecisionEvent struct {
	EventID       string    `json:"eventId"`
	ApplicationID int64     `json:"idApplication"`
	UserID        int64     `json:"idUser"`
	Email         string    `json:"email"`
	LoanTypeID    int64     `json:"loanTypeId"`
	Decision      string    `json:"decision"`
	Observations  string    `json:"observations,omitempty"`
	CorrelationID string    `json:"correlationId"`
	DecidedAt     time.Time `json:"decidedAt"`
}

// ReportEvent is the minimal payload the reporting service consumes for every
// approved loan.
type ReportEvent struct {
	LoanID string          `json:"loanId"`
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
	Term   int             `json:"term"`
}
