package leave

import (
	"context"
	"encoding/json"
	"time"

	"go-hris-leave/internal/events"
	"go-hris-leave/internal/messaging/kafka"
	"go-hris-leave/internal/shared/contextutil"

	"github.com/google/uuid"
)

const outboxAggregateType = "leave_request"

func newLifecycleOutboxEvent(
	ctx context.Context,
	eventType string,
	r *LeaveRequest,
	from Status,
	actorID string,
	balance *LeaveBalance,
	at time.Time,
) (kafka.OutboxEvent, error) {
	payload := events.LeaveLifecycleEvent{
		EventType:      eventType,
		LeaveID:        r.ID.String(),
		OrganizationID: r.OrganizationID.String(),
		EmployeeID:     r.EmployeeID.String(),
		LeaveTypeID:    r.LeaveTypeID.String(),
		StartDate:      r.StartDate.Format(dateLayout),
		EndDate:        r.EndDate.Format(dateLayout),
		Days:           r.Days.StringFixed(1),
		FromStatus:     string(from),
		ToStatus:       string(r.Status),
		ActorID:        actorID,
		OccurredAt:     at.UTC(),
	}
	if balance != nil {
		payload.RemainingDays = balance.RemainingDays.StringFixed(1)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return kafka.OutboxEvent{}, err
	}

	return kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: outboxAggregateType,
		AggregateID:   r.ID.String(),
		EventType:     eventType,
		Topic:         events.LeaveLifecycleTopic,
		Payload:       body,
		Status:        kafka.OutboxStatusPending,
		NextRetryAt:   at.UTC(),
	}, nil
}
