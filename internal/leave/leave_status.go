package leave

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a leave request. Only the four values
// below exist; anything else read from storage or a client is rejected by
// ParseStatus.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusCancelled},
	StatusRejected:  nil,
	StatusCancelled: nil,
}

func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown leave status %q", v)
	}
	return s, nil
}

func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsActive reports whether a request in this state still holds days on the
// ledger and blocks overlapping requests.
func (s Status) IsActive() bool {
	switch s {
	case StatusPending, StatusApproved:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s.Valid() && len(allowedTransitions[s]) == 0
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// ActiveStatuses lists the states counted by the overlap detector.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusApproved}
}

type HalfDayPart string

const (
	HalfDayMorning   HalfDayPart = "morning"
	HalfDayAfternoon HalfDayPart = "afternoon"
)

func (p HalfDayPart) Valid() bool {
	return p == HalfDayMorning || p == HalfDayAfternoon
}
