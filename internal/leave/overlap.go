package leave

import (
	"context"
	"time"

	leaveerrors "go-hris-leave/internal/leave/errors"

	"github.com/google/uuid"
)

// RangesOverlap reports whether two inclusive date ranges share a day.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// overlapDetector must run on a transaction bound repository after the
// employee row is locked, otherwise two concurrent creates can both pass.
type overlapDetector struct {
	repo Repository
}

func (d overlapDetector) Check(ctx context.Context, employeeID uuid.UUID, start, end time.Time) error {
	overlap, err := d.repo.HasOverlappingRequest(ctx, employeeID, start, end)
	if err != nil {
		return err
	}
	if overlap {
		return leaveerrors.ErrLeaveOverlap
	}
	return nil
}
