package events

import "time"

const EmployeeCreatedTopic = "hr.employee.lifecycle.v1"

const EventTypeEmployeeCreated = "employee.created"

// EmployeeCreatedEvent is published by the employee module when a new
// employee joins an organization.
type EmployeeCreatedEvent struct {
	EventType      string    `json:"event_type"`
	EmployeeID     string    `json:"employee_id"`
	OrganizationID string    `json:"organization_id"`
	HireDate       string    `json:"hire_date,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
