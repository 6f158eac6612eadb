package leave

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LeaveType is owned by the organization admin workflow; this module only
// reads it.
type LeaveType struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationID   uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_types_organization"`
	Name             string    `gorm:"type:varchar(100);not null"`
	IsPaid           bool      `gorm:"not null;default:true"`
	RequiresApproval bool      `gorm:"not null;default:true"`

	DefaultEntitlementDays decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0"`
	MaxCarryOverDays       decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveType) TableName() string { return "leave_types" }

// BalanceKey identifies one ledger row.
type BalanceKey struct {
	EmployeeID  uuid.UUID
	LeaveTypeID uuid.UUID
	Year        int
}

type LeaveBalance struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_leave_balance_key,priority:1"`
	LeaveTypeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_leave_balance_key,priority:2"`
	Year        int       `gorm:"not null;uniqueIndex:uq_leave_balance_key,priority:3"`

	EntitledDays    decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0"`
	CarriedOverDays decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0"`
	AccruedDays     decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0"`
	UsedDays        decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0"`
	PendingDays     decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0"`
	RemainingDays   decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0"`

	// Version is bumped on every ledger write and checked on update.
	Version int64 `gorm:"not null;default:0"`

	LeaveType *LeaveType `gorm:"foreignKey:LeaveTypeID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveBalance) TableName() string { return "leave_balances" }

func (b LeaveBalance) Key() BalanceKey {
	return BalanceKey{EmployeeID: b.EmployeeID, LeaveTypeID: b.LeaveTypeID, Year: b.Year}
}

type LeaveRequest struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_organization_status"`
	EmployeeID     uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_employee_dates"`
	LeaveTypeID    uuid.UUID `gorm:"type:uuid;not null"`

	StartDate   time.Time    `gorm:"type:date;not null;index:idx_leave_requests_employee_dates"`
	EndDate     time.Time    `gorm:"type:date;not null;index:idx_leave_requests_employee_dates"`
	HalfDay     bool         `gorm:"not null;default:false"`
	HalfDayPart *HalfDayPart `gorm:"type:varchar(10)"`
	// Days is frozen at creation and reused by every compensating ledger call.
	Days   decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	Reason string          `gorm:"type:text"`

	Status          Status     `gorm:"type:varchar(20);not null;default:'pending';index:idx_leave_requests_organization_status"`
	CreatedBy       uuid.UUID  `gorm:"type:uuid;not null"`
	ApproverID      *uuid.UUID `gorm:"type:uuid"`
	ApprovalDate    *time.Time
	RejectionReason *string    `gorm:"type:text"`
	CancelledBy     *uuid.UUID `gorm:"type:uuid"`
	CancelledAt     *time.Time

	LeaveType *LeaveType `gorm:"foreignKey:LeaveTypeID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveRequest) TableName() string { return "leave_requests" }

// BalanceKey is the ledger row this request draws from.
func (r LeaveRequest) BalanceKey() BalanceKey {
	return BalanceKey{EmployeeID: r.EmployeeID, LeaveTypeID: r.LeaveTypeID, Year: r.StartDate.Year()}
}

// Employee is the slice of the employee directory this module reads. The
// table belongs to the employee module.
type Employee struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null"`
	FullName       string
	DeletedAt      gorm.DeletedAt
}

func (Employee) TableName() string { return "employees" }
