package leave

import (
	"context"
	"errors"

	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/shared/contextutil"
	"go-hris-leave/internal/shared/txmanager"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProvisionResult struct {
	EmployeeID string
	Year       int
	Created    int
	Skipped    int
}

// Provisioner opens ledger rows for an employee. The lifecycle never creates
// balances on its own; a missing row is reported as ErrBalanceNotFound.
type Provisioner interface {
	ProvisionYear(ctx context.Context, organizationID, employeeID string, year int) (ProvisionResult, error)
}

type provisioner struct {
	tx     txmanager.Manager
	repo   Repository
	cache  BalanceCache
	logger *zap.Logger
}

func NewProvisioner(tx txmanager.Manager, repo Repository, cache BalanceCache, logger ...*zap.Logger) Provisioner {
	l := zap.L().Named("leave.provisioner")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.provisioner")
	}
	if cache == nil {
		cache = noopBalanceCache{}
	}
	return &provisioner{tx: tx, repo: repo, cache: cache, logger: l}
}

// ProvisionYear inserts one balance per leave type of the organization for
// (employee, year). Entitlement comes from the leave type default; carry-over
// is the previous year's remaining days capped at the type's maximum. Rows
// that already exist are left untouched, so the call is idempotent.
func (p *provisioner) ProvisionYear(ctx context.Context, organizationID, employeeID string, year int) (ProvisionResult, error) {
	log := contextutil.GetLogger(ctx, p.logger)
	result := ProvisionResult{EmployeeID: employeeID, Year: year}

	if _, err := uuid.Parse(organizationID); err != nil {
		return result, leaveerrors.ErrInvalidOrganizationID
	}
	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return result, leaveerrors.ErrInvalidEmployeeID
	}
	if year < 1 {
		return result, leaveerrors.ErrInvalidYear
	}

	err = p.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		qtx := p.repo.WithTx(tx)

		if _, err := qtx.LockEmployee(ctx, organizationID, employeeID); err != nil {
			return mapRepositoryError(err, leaveerrors.ErrEmployeeNotFound)
		}

		types, err := qtx.FindLeaveTypesByOrganization(ctx, organizationID)
		if err != nil {
			return err
		}

		for _, lt := range types {
			carry, err := carryOver(ctx, qtx, BalanceKey{EmployeeID: employeeUUID, LeaveTypeID: lt.ID, Year: year - 1}, lt.MaxCarryOverDays)
			if err != nil {
				return err
			}

			b := &LeaveBalance{
				ID:              uuid.New(),
				EmployeeID:      employeeUUID,
				LeaveTypeID:     lt.ID,
				Year:            year,
				EntitledDays:    lt.DefaultEntitlementDays,
				CarriedOverDays: carry,
				AccruedDays:     decimal.Zero,
				UsedDays:        decimal.Zero,
				PendingDays:     decimal.Zero,
				RemainingDays:   lt.DefaultEntitlementDays.Add(carry),
			}
			if err := b.CheckInvariant(); err != nil {
				return err
			}

			inserted, err := qtx.CreateBalanceIfAbsent(ctx, b)
			if err != nil {
				return err
			}
			if inserted {
				result.Created++
			} else {
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		log.Error("provision leave balances failed",
			zap.String("employee_id", employeeID),
			zap.Int("year", year),
			zap.Error(err),
		)
		return result, mapRepositoryError(err, nil)
	}

	if result.Created > 0 {
		p.cache.Invalidate(ctx, organizationID, employeeID, year)
	}

	log.Info("provision leave balances success",
		zap.String("employee_id", employeeID),
		zap.Int("year", year),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func carryOver(ctx context.Context, repo Repository, prev BalanceKey, maxCarry decimal.Decimal) (decimal.Decimal, error) {
	if !maxCarry.IsPositive() {
		return decimal.Zero, nil
	}

	b, err := repo.FindBalance(ctx, prev)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	if !b.RemainingDays.IsPositive() {
		return decimal.Zero, nil
	}
	return decimal.Min(b.RemainingDays, maxCarry), nil
}
