package models

import (
	"time"

	"github.com/propledger/backend/internal/domain/revenue"
	"github.com/shopspring/decimal"
)

// Table names
const (
	TableProperties       = "properties"
	TableTenants          = "tenants"
	TableBillingCycles    = "billing_cycles"
	TablePriceAllocations = "price_allocations"
	TableRentPayments     = "rent_payments"
	TableRefunds          = "refunds"
	TableAdvances         = "advances"
	TableExpenses         = "expenses"
)

// Property is a managed building whose revenue is reported on
type Property struct {
	LedgerModel
	SoftDeletable
	Name string `gorm:"type:varchar(200);not null"`
}

func (Property) TableName() string { return TableProperties }

// Tenant occupies a bed in a property
type Tenant struct {
	LedgerModel
	SoftDeletable
	PropertyID int64  `gorm:"not null;index"`
	BedID      int64  `gorm:"not null"`
	Name       string `gorm:"type:varchar(200);not null"`
	Status     string `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
}

func (Tenant) TableName() string { return TableTenants }

// BillingCycle is one tenant's billing period
type BillingCycle struct {
	LedgerModel
	TenantID   int64     `gorm:"not null;index"`
	CycleStart time.Time `gorm:"type:date;not null"`
	CycleEnd   time.Time `gorm:"type:date;not null"`
	CycleType  string    `gorm:"type:varchar(20);not null;default:'CALENDAR'"`
}

func (BillingCycle) TableName() string { return TableBillingCycles }

// ToDomain converts the row to a domain billing cycle. The cycle type is
// carried over verbatim; anything other than CALENDAR is weighted by the
// cycle's own length.
func (m BillingCycle) ToDomain() revenue.BillingCycle {
	return revenue.BillingCycle{
		ID:         m.ID,
		TenantID:   m.TenantID,
		CycleStart: revenue.ToCalendarDay(m.CycleStart),
		CycleEnd:   revenue.ToCalendarDay(m.CycleEnd),
		CycleType:  revenue.CycleType(m.CycleType),
	}
}

// PriceAllocation is the price locked for a tenant's bed over a date range
type PriceAllocation struct {
	LedgerModel
	TenantID      int64           `gorm:"not null;index:idx_allocation_tenant_from,priority:1"`
	BedID         int64           `gorm:"not null"`
	EffectiveFrom time.Time       `gorm:"type:date;not null;index:idx_allocation_tenant_from,priority:2"`
	EffectiveTo   *time.Time      `gorm:"type:date"`
	PriceSnapshot decimal.Decimal `gorm:"type:numeric(14,2);not null"`
}

func (PriceAllocation) TableName() string { return TablePriceAllocations }

// ToDomain converts the row to a domain allocation with calendar-day bounds
func (m PriceAllocation) ToDomain() revenue.PriceAllocation {
	a := revenue.PriceAllocation{
		ID:            m.ID,
		TenantID:      m.TenantID,
		BedID:         m.BedID,
		EffectiveFrom: revenue.ToCalendarDay(m.EffectiveFrom),
		PriceSnapshot: m.PriceSnapshot,
	}
	if m.EffectiveTo != nil {
		to := revenue.ToCalendarDay(*m.EffectiveTo)
		a.EffectiveTo = &to
	}
	return a
}

// RentPayment is rent received from a tenant
type RentPayment struct {
	PaymentModel
	TenantID int64 `gorm:"not null;index"`
}

func (RentPayment) TableName() string { return TableRentPayments }

// Refund is money paid back to a tenant
type Refund struct {
	PaymentModel
	TenantID int64 `gorm:"index"`
}

func (Refund) TableName() string { return TableRefunds }

// Advance is a security deposit or prepayment recorded against a tenant
type Advance struct {
	PaymentModel
	TenantID int64 `gorm:"index"`
}

func (Advance) TableName() string { return TableAdvances }

// Expense is an operating cost paid for a property
type Expense struct {
	PaymentModel
	Category string `gorm:"type:varchar(50)"`
}

func (Expense) TableName() string { return TableExpenses }

// All returns every model, in dependency order, for AutoMigrate in tests
// and local sqlite databases.
func All() []any {
	return []any{
		&Property{},
		&Tenant{},
		&BillingCycle{},
		&PriceAllocation{},
		&RentPayment{},
		&Refund{},
		&Advance{},
		&Expense{},
	}
}
