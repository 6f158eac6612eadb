package leave

import (
	"context"
	"time"

	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestFilter narrows a request listing. Limit 0 means no limit.
type RequestFilter struct {
	EmployeeID *uuid.UUID
	Year       int
	Status     *Status
	Limit      int
	Offset     int64
}

func (f RequestFilter) scope(db *gorm.DB) *gorm.DB {
	if f.EmployeeID != nil {
		db = db.Where("employee_id = ?", *f.EmployeeID)
	}
	if f.Year > 0 {
		db = db.Where("EXTRACT(YEAR FROM start_date) = ?", f.Year)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	return db
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	LockEmployee(ctx context.Context, organizationID, employeeID string) (*Employee, error)
	FindLeaveType(ctx context.Context, organizationID, leaveTypeID string) (*LeaveType, error)
	FindLeaveTypesByOrganization(ctx context.Context, organizationID string) ([]LeaveType, error)

	HasOverlappingRequest(ctx context.Context, employeeID uuid.UUID, startDate, endDate time.Time) (bool, error)

	FindBalance(ctx context.Context, key BalanceKey) (*LeaveBalance, error)
	FindBalanceForUpdate(ctx context.Context, key BalanceKey) (*LeaveBalance, error)
	FindBalances(ctx context.Context, organizationID string, employeeID uuid.UUID, year int) ([]LeaveBalance, error)
	UpdateBalance(ctx context.Context, b *LeaveBalance, expectedVersion int64) error
	CreateBalanceIfAbsent(ctx context.Context, b *LeaveBalance) (bool, error)

	CreateRequest(ctx context.Context, r *LeaveRequest) error
	FindRequest(ctx context.Context, organizationID, id string) (*LeaveRequest, error)
	FindRequestForUpdate(ctx context.Context, organizationID, id string) (*LeaveRequest, error)
	// FindRequests returns one window of matching requests and the total
	// number of matches.
	FindRequests(ctx context.Context, organizationID string, filter RequestFilter) ([]LeaveRequest, int64, error)
	UpdateRequest(ctx context.Context, r *LeaveRequest) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

// LockEmployee takes a row lock on the employee for the rest of the
// transaction. Every create for the same employee serialises here, which
// keeps the overlap check and the balance reservation in one lock scope.
func (r *repository) LockEmployee(ctx context.Context, organizationID, employeeID string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Scopes(tenant.Scope(organizationID)).
		First(&e, "id = ?", employeeID).Error
	return &e, err
}

func (r *repository) FindLeaveType(ctx context.Context, organizationID, leaveTypeID string) (*LeaveType, error) {
	var lt LeaveType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		First(&lt, "id = ?", leaveTypeID).Error
	return &lt, err
}

func (r *repository) FindLeaveTypesByOrganization(ctx context.Context, organizationID string) ([]LeaveType, error) {
	var types []LeaveType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Order("name ASC").
		Find(&types).Error
	return types, err
}

func (r *repository) HasOverlappingRequest(ctx context.Context, employeeID uuid.UUID, startDate, endDate time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("employee_id = ?", employeeID).
		Where("status IN ?", ActiveStatuses()).
		Where("start_date <= ? AND end_date >= ?", endDate, startDate).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindBalance(ctx context.Context, key BalanceKey) (*LeaveBalance, error) {
	var b LeaveBalance
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND leave_type_id = ? AND year = ?", key.EmployeeID, key.LeaveTypeID, key.Year).
		First(&b).Error
	return &b, err
}

func (r *repository) FindBalanceForUpdate(ctx context.Context, key BalanceKey) (*LeaveBalance, error) {
	var b LeaveBalance
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Where("employee_id = ? AND leave_type_id = ? AND year = ?", key.EmployeeID, key.LeaveTypeID, key.Year).
		First(&b).Error
	return &b, err
}

func (r *repository) FindBalances(ctx context.Context, organizationID string, employeeID uuid.UUID, year int) ([]LeaveBalance, error) {
	var balances []LeaveBalance
	db := r.db.WithContext(ctx).
		Joins("LeaveType").
		Scopes(tenant.ScopeColumn(`"LeaveType".organization_id`, organizationID)).
		Where("leave_balances.employee_id = ?", employeeID)
	if year > 0 {
		db = db.Where("leave_balances.year = ?", year)
	}
	err := db.Order("leave_balances.year DESC").Find(&balances).Error
	return balances, err
}

// UpdateBalance writes the ledger columns only if the row still carries
// expectedVersion.
func (r *repository) UpdateBalance(ctx context.Context, b *LeaveBalance, expectedVersion int64) error {
	res := r.db.WithContext(ctx).
		Model(&LeaveBalance{}).
		Where("id = ? AND version = ?", b.ID, expectedVersion).
		Updates(map[string]any{
			"used_days":      b.UsedDays,
			"pending_days":   b.PendingDays,
			"remaining_days": b.RemainingDays,
			"version":        b.Version,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return leaveerrors.ErrConcurrentUpdate
	}
	return nil
}

// CreateBalanceIfAbsent inserts b unless a row for the same key exists and
// reports whether it inserted.
func (r *repository) CreateBalanceIfAbsent(ctx context.Context, b *LeaveBalance) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}, {Name: "leave_type_id"}, {Name: "year"}},
			DoNothing: true,
		}).
		Create(b)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) CreateRequest(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Omit("LeaveType").Create(l).Error
}

func (r *repository) FindRequest(ctx context.Context, organizationID, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID)).
		Preload("LeaveType").
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) FindRequestForUpdate(ctx context.Context, organizationID, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).
		Clauses(forUpdate).
		Scopes(tenant.Scope(organizationID)).
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) FindRequests(ctx context.Context, organizationID string, filter RequestFilter) ([]LeaveRequest, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Scopes(tenant.Scope(organizationID), filter.scope).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	if total == 0 || filter.Offset >= total {
		return []LeaveRequest{}, total, nil
	}

	db := r.db.WithContext(ctx).
		Scopes(tenant.Scope(organizationID), filter.scope).
		Preload("LeaveType").
		Order("start_date DESC")
	if filter.Limit > 0 {
		// Offset < total, so it fits in an int.
		db = db.Limit(filter.Limit).Offset(int(filter.Offset))
	}

	var requests []LeaveRequest
	err = db.Find(&requests).Error
	return requests, total, err
}

func (r *repository) UpdateRequest(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Omit("LeaveType").Save(l).Error
}
