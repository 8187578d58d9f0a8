package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerModel holds the columns shared by every ledger table
type LedgerModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// SoftDeletable marks rows that are hidden rather than removed. The flag is
// nullable in older rows; NULL is read as not deleted.
type SoftDeletable struct {
	IsDeleted *bool `gorm:"column:is_deleted;default:false"`
}

// Deleted reports whether the row is soft-deleted
func (s SoftDeletable) Deleted() bool {
	return s.IsDeleted != nil && *s.IsDeleted
}

// PaymentModel is the shape shared by rent payments, refunds, advances and expenses
type PaymentModel struct {
	LedgerModel
	SoftDeletable
	PropertyID  int64           `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	PaymentDate time.Time       `gorm:"type:date;not null;index"`
	Status      string          `gorm:"type:varchar(20);not null;default:'PAID'"`
}
