package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go-hris-leave/internal/leave"
	leaveerrors "go-hris-leave/internal/leave/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invalidation struct {
	organizationID string
	employeeID     string
	year           int
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []invalidation
}

func (c *recordingCache) Get(context.Context, string, string, int) ([]leave.BalanceResponse, bool) {
	return nil, false
}

func (c *recordingCache) Set(context.Context, string, string, int, []leave.BalanceResponse) {}

func (c *recordingCache) Invalidate(_ context.Context, organizationID, employeeID string, year int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, invalidation{organizationID, employeeID, year})
}

type provisionFixture struct {
	store    *memStore
	cache    *recordingCache
	p        leave.Provisioner
	orgID    uuid.UUID
	empID    uuid.UUID
	annualID uuid.UUID
	sickID   uuid.UUID
}

func newProvisionFixture(t *testing.T) *provisionFixture {
	t.Helper()

	store := newMemStore()
	f := &provisionFixture{
		store:    store,
		cache:    &recordingCache{},
		orgID:    uuid.New(),
		empID:    uuid.New(),
		annualID: uuid.New(),
		sickID:   uuid.New(),
	}

	store.employees[f.empID] = leave.Employee{ID: f.empID, OrganizationID: f.orgID, FullName: "Dana Putri"}
	store.types[f.annualID] = leave.LeaveType{
		ID:                     f.annualID,
		OrganizationID:         f.orgID,
		Name:                   "Annual",
		RequiresApproval:       true,
		DefaultEntitlementDays: decimal.NewFromInt(12),
		MaxCarryOverDays:       decimal.NewFromInt(5),
	}
	store.types[f.sickID] = leave.LeaveType{
		ID:                     f.sickID,
		OrganizationID:         f.orgID,
		Name:                   "Sick",
		DefaultEntitlementDays: decimal.NewFromInt(10),
	}

	f.p = leave.NewProvisioner(&serialTx{store: store}, &memRepo{store: store}, f.cache)
	return f
}

func (f *provisionFixture) key(leaveTypeID uuid.UUID, year int) leave.BalanceKey {
	return leave.BalanceKey{EmployeeID: f.empID, LeaveTypeID: leaveTypeID, Year: year}
}

func TestProvisioner_ProvisionYear(t *testing.T) {
	ctx := context.Background()

	t.Run("opens one row per leave type", func(t *testing.T) {
		f := newProvisionFixture(t)

		result, err := f.p.ProvisionYear(ctx, f.orgID.String(), f.empID.String(), 2026)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 0, result.Skipped)

		annual := f.store.balance(f.key(f.annualID, 2026))
		assertDays(t, "12", annual.EntitledDays)
		assertDays(t, "0", annual.CarriedOverDays)
		assertBalance(t, annual, "0", "0", "12")

		sick := f.store.balance(f.key(f.sickID, 2026))
		assertBalance(t, sick, "0", "0", "10")

		assert.Equal(t, []invalidation{{f.orgID.String(), f.empID.String(), 2026}}, f.cache.invalidated)
	})

	t.Run("carry over is capped at the leave type maximum", func(t *testing.T) {
		f := newProvisionFixture(t)
		f.store.balances[f.key(f.annualID, 2025)] = leave.LeaveBalance{
			ID:            uuid.New(),
			EmployeeID:    f.empID,
			LeaveTypeID:   f.annualID,
			Year:          2025,
			EntitledDays:  decimal.NewFromInt(12),
			UsedDays:      decimal.NewFromInt(4),
			RemainingDays: decimal.NewFromInt(8),
		}
		f.store.balances[f.key(f.sickID, 2025)] = leave.LeaveBalance{
			ID:            uuid.New(),
			EmployeeID:    f.empID,
			LeaveTypeID:   f.sickID,
			Year:          2025,
			EntitledDays:  decimal.NewFromInt(10),
			RemainingDays: decimal.NewFromInt(10),
		}

		_, err := f.p.ProvisionYear(ctx, f.orgID.String(), f.empID.String(), 2026)
		require.NoError(t, err)

		annual := f.store.balance(f.key(f.annualID, 2026))
		assertDays(t, "5", annual.CarriedOverDays)
		assertDays(t, "17", annual.RemainingDays)
		assert.NoError(t, annual.CheckInvariant())

		sick := f.store.balance(f.key(f.sickID, 2026))
		assertDays(t, "0", sick.CarriedOverDays)
		assertDays(t, "10", sick.RemainingDays)
	})

	t.Run("partial carry over below the cap", func(t *testing.T) {
		f := newProvisionFixture(t)
		f.store.balances[f.key(f.annualID, 2025)] = leave.LeaveBalance{
			ID:            uuid.New(),
			EmployeeID:    f.empID,
			LeaveTypeID:   f.annualID,
			Year:          2025,
			EntitledDays:  decimal.NewFromInt(12),
			UsedDays:      decimal.RequireFromString("9.5"),
			RemainingDays: decimal.RequireFromString("2.5"),
		}

		_, err := f.p.ProvisionYear(ctx, f.orgID.String(), f.empID.String(), 2026)
		require.NoError(t, err)

		annual := f.store.balance(f.key(f.annualID, 2026))
		assertDays(t, "2.5", annual.CarriedOverDays)
		assertDays(t, "14.5", annual.RemainingDays)
	})

	t.Run("second call leaves existing rows untouched", func(t *testing.T) {
		f := newProvisionFixture(t)
		_, err := f.p.ProvisionYear(ctx, f.orgID.String(), f.empID.String(), 2026)
		require.NoError(t, err)

		key := f.key(f.annualID, 2026)
		b := f.store.balance(key)
		b.UsedDays = decimal.NewFromInt(3)
		b.RemainingDays = decimal.NewFromInt(9)
		f.store.balances[key] = b

		result, err := f.p.ProvisionYear(ctx, f.orgID.String(), f.empID.String(), 2026)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, 2, result.Skipped)
		assertBalance(t, f.store.balance(key), "3", "0", "9")
		assert.Len(t, f.cache.invalidated, 1)
	})

	t.Run("employee of another organization", func(t *testing.T) {
		f := newProvisionFixture(t)

		_, err := f.p.ProvisionYear(ctx, uuid.NewString(), f.empID.String(), 2026)

		assert.ErrorIs(t, err, leaveerrors.ErrEmployeeNotFound)
		assert.Empty(t, f.store.balances)
		assert.Empty(t, f.cache.invalidated)
	})

	t.Run("input validation", func(t *testing.T) {
		f := newProvisionFixture(t)
		tests := []struct {
			name string
			org  string
			emp  string
			year int
			want error
		}{
			{"organization", "acme", f.empID.String(), 2026, leaveerrors.ErrInvalidOrganizationID},
			{"employee", f.orgID.String(), "dana", 2026, leaveerrors.ErrInvalidEmployeeID},
			{"year", f.orgID.String(), f.empID.String(), 0, leaveerrors.ErrInvalidYear},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.p.ProvisionYear(ctx, tt.org, tt.emp, tt.year)
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			})
		}
	})
}
