package leave

import (
	"context"
	"errors"
	"fmt"

	leaveerrors "go-hris-leave/internal/leave/errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ledgerOp string

const (
	opReserve              ledgerOp = "reserve"
	opCommit               ledgerOp = "commit"
	opConvertPendingToUsed ledgerOp = "convert_pending_to_used"
	opReleasePending       ledgerOp = "release_pending"
	opReleaseUsed          ledgerOp = "release_used"
)

// ExpectedRemaining is entitled + carried over + accrued - used - pending.
func (b LeaveBalance) ExpectedRemaining() decimal.Decimal {
	return b.EntitledDays.
		Add(b.CarriedOverDays).
		Add(b.AccruedDays).
		Sub(b.UsedDays).
		Sub(b.PendingDays)
}

// CheckInvariant fails when RemainingDays disagrees with its components or
// a counter went negative.
func (b LeaveBalance) CheckInvariant() error {
	if !b.RemainingDays.Equal(b.ExpectedRemaining()) {
		return fmt.Errorf("%w: remaining %s, expected %s",
			leaveerrors.ErrLedgerInconsistent, b.RemainingDays, b.ExpectedRemaining())
	}
	if b.UsedDays.IsNegative() || b.PendingDays.IsNegative() {
		return fmt.Errorf("%w: used %s, pending %s",
			leaveerrors.ErrLedgerInconsistent, b.UsedDays, b.PendingDays)
	}
	return nil
}

// applyLedgerOp mutates b in place. b is left untouched when the operation
// is refused.
func applyLedgerOp(b *LeaveBalance, op ledgerOp, amount, floor decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("ledger %s: negative amount %s", op, amount)
	}

	next := *b
	switch op {
	case opReserve:
		next.PendingDays = next.PendingDays.Add(amount)
		next.RemainingDays = next.RemainingDays.Sub(amount)
	case opCommit:
		next.UsedDays = next.UsedDays.Add(amount)
		next.RemainingDays = next.RemainingDays.Sub(amount)
	case opConvertPendingToUsed:
		next.PendingDays = next.PendingDays.Sub(amount)
		next.UsedDays = next.UsedDays.Add(amount)
	case opReleasePending:
		next.PendingDays = next.PendingDays.Sub(amount)
		next.RemainingDays = next.RemainingDays.Add(amount)
	case opReleaseUsed:
		next.UsedDays = next.UsedDays.Sub(amount)
		next.RemainingDays = next.RemainingDays.Add(amount)
	default:
		return fmt.Errorf("unknown ledger operation %q", op)
	}

	if (op == opReserve || op == opCommit) && next.RemainingDays.LessThan(floor) {
		return leaveerrors.ErrInsufficientBalance.WithDetails(map[string]string{
			"requested_days": amount.StringFixed(1),
			"remaining_days": b.RemainingDays.StringFixed(1),
		})
	}
	if err := next.CheckInvariant(); err != nil {
		return err
	}

	*b = next
	return nil
}

// balanceLedger runs the keyed ledger operations against a transaction
// bound repository. Each call locks the row, applies the delta and writes it
// back guarded by the row version.
type balanceLedger struct {
	repo  Repository
	floor decimal.Decimal
}

func (l balanceLedger) Reserve(ctx context.Context, key BalanceKey, amount decimal.Decimal) (*LeaveBalance, error) {
	return l.apply(ctx, key, opReserve, amount)
}

// Commit books days as used directly, for leave types without approval.
func (l balanceLedger) Commit(ctx context.Context, key BalanceKey, amount decimal.Decimal) (*LeaveBalance, error) {
	return l.apply(ctx, key, opCommit, amount)
}

func (l balanceLedger) ConvertPendingToUsed(ctx context.Context, key BalanceKey, amount decimal.Decimal) (*LeaveBalance, error) {
	return l.apply(ctx, key, opConvertPendingToUsed, amount)
}

func (l balanceLedger) ReleasePending(ctx context.Context, key BalanceKey, amount decimal.Decimal) (*LeaveBalance, error) {
	return l.apply(ctx, key, opReleasePending, amount)
}

func (l balanceLedger) ReleaseUsed(ctx context.Context, key BalanceKey, amount decimal.Decimal) (*LeaveBalance, error) {
	return l.apply(ctx, key, opReleaseUsed, amount)
}

func (l balanceLedger) apply(ctx context.Context, key BalanceKey, op ledgerOp, amount decimal.Decimal) (*LeaveBalance, error) {
	b, err := l.repo.FindBalanceForUpdate(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leaveerrors.ErrBalanceNotFound
		}
		return nil, err
	}

	expectedVersion := b.Version
	if err := applyLedgerOp(b, op, amount, l.floor); err != nil {
		return nil, err
	}
	b.Version = expectedVersion + 1

	if err := l.repo.UpdateBalance(ctx, b, expectedVersion); err != nil {
		return nil, err
	}
	return b, nil
}

// settle applies the compensating ledger call for a status change, always
// with the days frozen on the request.
func (l balanceLedger) settle(ctx context.Context, r *LeaveRequest, from, to Status) (*LeaveBalance, error) {
	key, days := r.BalanceKey(), r.Days
	switch {
	case from == StatusPending && to == StatusApproved:
		return l.ConvertPendingToUsed(ctx, key, days)
	case from == StatusPending && (to == StatusRejected || to == StatusCancelled):
		return l.ReleasePending(ctx, key, days)
	case from == StatusApproved && to == StatusCancelled:
		return l.ReleaseUsed(ctx, key, days)
	default:
		return nil, leaveerrors.ErrInvalidStatusTransition
	}
}
