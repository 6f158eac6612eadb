package leave_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go-hris-leave/internal/events"
	"go-hris-leave/internal/leave"
	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/messaging/kafka"
	kafkamock "go-hris-leave/internal/messaging/kafka/mock"
	"go-hris-leave/internal/shared/contextutil"
	"go-hris-leave/internal/shared/testutil"
	"go-hris-leave/internal/shared/txmanager"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

type outboxMatcher struct {
	eventType string
	requestID string
}

func (m outboxMatcher) Matches(x any) bool {
	event, ok := x.(kafka.OutboxEvent)
	if !ok {
		return false
	}
	return event.EventType == m.eventType &&
		event.RequestID == m.requestID &&
		event.Topic == events.LeaveLifecycleTopic &&
		event.Status == kafka.OutboxStatusPending
}

func (m outboxMatcher) String() string {
	return fmt.Sprintf("outbox event %s with request_id %q", m.eventType, m.requestID)
}

func matchOutbox(eventType, requestID string) gomock.Matcher {
	return outboxMatcher{eventType: eventType, requestID: requestID}
}

// These tests run the service on the real transaction manager so commit and
// rollback are asserted against the driver.
func TestLeaveService_TransactionBoundaries(t *testing.T) {
	newService := func(t *testing.T, f *fixture) (leave.Service, *kafkamock.MockOutboxRepository, func(commit bool)) {
		ctrl := gomock.NewController(t)
		db, mock := testutil.NewGormMock(t)
		outbox := kafkamock.NewMockOutboxRepository(ctrl)
		svc := leave.NewService(txmanager.New(db), &memRepo{store: f.store}, outbox,
			leave.WithClock(func() time.Time { return fixedNow }),
		)
		t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
		return svc, outbox, func(commit bool) { testutil.ExpectTx(t, mock, commit) }
	}

	t.Run("create commits with the outbox event", func(t *testing.T) {
		f := newFixture(t)
		svc, outbox, expectTx := newService(t, f)
		ctx := contextutil.WithRequestID(context.Background(), "rid-create")

		expectTx(true)
		outbox.EXPECT().WithTx(gomock.Any()).Return(outbox)
		outbox.EXPECT().
			Create(gomock.Any(), matchOutbox(events.EventTypeLeaveCreated, "rid-create")).
			Return(nil).
			Times(1)

		resp, err := svc.Create(ctx, f.orgID, f.employee(), leave.CreateLeaveRequest{
			EmployeeID:  f.empID,
			LeaveTypeID: f.annualID,
			StartDate:   "2026-03-02",
			EndDate:     "2026-03-03",
		})
		require.NoError(t, err)
		assert.Equal(t, "pending", resp.Status)
	})

	t.Run("outbox failure rolls back", func(t *testing.T) {
		f := newFixture(t)
		svc, outbox, expectTx := newService(t, f)

		expectTx(false)
		outbox.EXPECT().WithTx(gomock.Any()).Return(outbox)
		outbox.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("outbox insert failed"))

		_, err := svc.Create(context.Background(), f.orgID, f.employee(), leave.CreateLeaveRequest{
			EmployeeID:  f.empID,
			LeaveTypeID: f.annualID,
			StartDate:   "2026-03-02",
			EndDate:     "2026-03-03",
		})
		assert.EqualError(t, err, "outbox insert failed")
	})

	t.Run("business error rolls back before the outbox", func(t *testing.T) {
		f := newFixture(t)
		svc, _, expectTx := newService(t, f)

		expectTx(false)

		_, err := svc.Create(context.Background(), f.orgID, f.employee(), leave.CreateLeaveRequest{
			EmployeeID:  f.empID,
			LeaveTypeID: f.annualID,
			StartDate:   "2026-03-02",
			EndDate:     "2026-04-10",
		})
		assert.ErrorIs(t, err, leaveerrors.ErrInsufficientBalance)
	})

	t.Run("approve commits with the approved event", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, f.annualID, "2026-03-02", "2026-03-03")
		svc, outbox, expectTx := newService(t, f)

		expectTx(true)
		outbox.EXPECT().WithTx(gomock.Any()).Return(outbox)
		outbox.EXPECT().Create(gomock.Any(), matchOutbox(events.EventTypeLeaveApproved, "")).Return(nil)

		resp, err := svc.Approve(context.Background(), f.orgID, f.hrID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "approved", resp.Status)
	})

	t.Run("invalid transition rolls back", func(t *testing.T) {
		f := newFixture(t)
		created := f.create(t, f.sickID, "2026-03-02", "2026-03-02")
		svc, _, expectTx := newService(t, f)

		expectTx(false)

		_, err := svc.Approve(context.Background(), f.orgID, f.hrID, created.ID)
		assert.ErrorIs(t, err, leaveerrors.ErrInvalidStatusTransition)
	})
}

// contendedRepo fails the request row lock the way postgres does when
// lock_timeout expires.
type contendedRepo struct {
	*memRepo
}

func (r *contendedRepo) WithTx(*gorm.DB) leave.Repository { return r }

func (r *contendedRepo) FindRequestForUpdate(context.Context, string, string) (*leave.LeaveRequest, error) {
	return nil, &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}
}

func TestLeaveService_LockContentionIsConcurrentUpdate(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, f.annualID, "2026-03-02", "2026-03-03")

	repo := &contendedRepo{memRepo: &memRepo{store: f.store}}
	svc := leave.NewService(&serialTx{store: f.store}, repo, &memOutbox{store: f.store})

	_, err := svc.Approve(context.Background(), f.orgID, f.hrID, created.ID)

	assert.ErrorIs(t, err, leaveerrors.ErrConcurrentUpdate)
	assert.Equal(t, leave.StatusPending, f.store.request(created.ID).Status)
}
