package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Application struct {
	ID         int64             `gorm:"primaryKey;autoIncrement"`
	Amount     decimal.Decimal   `gorm:"type:numeric;not null"`
	Term       int               `gorm:"not null"`
	Email      string            `gorm:"not null;index"`
	UserID     int64             `gorm:"not null;index"`
	LoanTypeID int64             `gorm:"not null;index"`
	Status     ApplicationStatus `gorm:"type:varchar(32);not null;default:'PENDING_REVIEW';index"`
	Version    int64             `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Application) TableName() string {
	return "applications"
}

type LoanType struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement"`
	Name                string          `gorm:"not null;uniqueIndex"`
	MinimumAmount       decimal.Decimal `gorm:"type:numeric;not null"`
	MaximumAmount       decimal.Decimal `gorm:"type:numeric;not null"`
	InterestRate        decimal.Decimal `gorm:"type:numeric;not null"`
	AutomaticValidation bool            `gorm:"not null;default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (LoanType) TableName() string {
	return "loan_types"
}

// AmountInRange reports whether amount lies within the inclusive bounds of
// the loan type.
func (l *LoanType) AmountInRange(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(l.MinimumAmount) && amount.LessThanOrEqual(l.MaximumAmount)
}

// User is the requester as known by the identity service.
type User struct {
	ID         int64
	Name       string
	LastName   string
	Email      string
	BaseSalary decimal.Decimal
	RoleID     int64
}
