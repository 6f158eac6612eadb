package events

import "time"

const LeaveLifecycleTopic = "hr.leave.lifecycle.v1"

const (
	EventTypeLeaveCreated   = "leave.request.created"
	EventTypeLeaveApproved  = "leave.request.approved"
	EventTypeLeaveRejected  = "leave.request.rejected"
	EventTypeLeaveCancelled = "leave.request.cancelled"
)

// LeaveLifecycleEvent is emitted through the outbox for every committed
// lifecycle transition. Amounts are decimal strings.
type LeaveLifecycleEvent struct {
	EventType      string    `json:"event_type"`
	LeaveID        string    `json:"leave_id"`
	OrganizationID string    `json:"organization_id"`
	EmployeeID     string    `json:"employee_id"`
	LeaveTypeID    string    `json:"leave_type_id"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	Days           string    `json:"days"`
	FromStatus     string    `json:"from_status,omitempty"`
	ToStatus       string    `json:"to_status"`
	ActorID        string    `json:"actor_id"`
	RemainingDays  string    `json:"remaining_days"`
	OccurredAt     time.Time `json:"occurred_at"`
}
