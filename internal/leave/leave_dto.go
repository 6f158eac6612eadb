package leave

import "math"

type CreateLeaveRequest struct {
	EmployeeID  string `json:"employee_id" binding:"required,uuid"`
	LeaveTypeID string `json:"leave_type_id" binding:"required,uuid"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	HalfDay     bool   `json:"half_day"`
	HalfDayPart string `json:"half_day_part" binding:"omitempty,oneof=morning afternoon"`
	Reason      string `json:"reason" binding:"max=1000"`
}

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

type ProcessLeaveRequest struct {
	Action          string `json:"action" binding:"required"`
	RejectionReason string `json:"rejection_reason"`
}

type PreviewDaysRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	HalfDay   bool   `json:"half_day"`
}

type PreviewDaysResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	HalfDay   bool   `json:"half_day"`
	Days      string `json:"days"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	maxPage         = math.MaxInt32
)

type RequestQuery struct {
	EmployeeID string `form:"employee_id"`
	Year       int    `form:"year"`
	Status     string `form:"status"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// Pagination clamps page to [1, MaxInt32] and page_size to
// [1, MaxPageSize], defaulting page_size to DefaultPageSize.
func (q RequestQuery) Pagination() (page, pageSize int) {
	page, pageSize = q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// RequestPage is one page of a request listing; Total counts every match.
type RequestPage struct {
	Items    []LeaveResponse
	Total    int64
	Page     int
	PageSize int
}

type BalanceQuery struct {
	EmployeeID string `form:"employee_id"`
	Year       int    `form:"year"`
}

type LeaveResponse struct {
	ID              string  `json:"id"`
	OrganizationID  string  `json:"organization_id"`
	EmployeeID      string  `json:"employee_id"`
	LeaveTypeID     string  `json:"leave_type_id"`
	LeaveTypeName   string  `json:"leave_type_name,omitempty"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	HalfDay         bool    `json:"half_day"`
	HalfDayPart     *string `json:"half_day_part,omitempty"`
	Days            string  `json:"days"`
	Reason          string  `json:"reason"`
	Status          string  `json:"status"`
	CreatedBy       string  `json:"created_by"`
	ApproverID      *string `json:"approver_id,omitempty"`
	ApprovalDate    *string `json:"approval_date,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	CancelledBy     *string `json:"cancelled_by,omitempty"`
	CancelledAt     *string `json:"cancelled_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type BalanceResponse struct {
	EmployeeID      string `json:"employee_id"`
	LeaveTypeID     string `json:"leave_type_id"`
	LeaveTypeName   string `json:"leave_type_name,omitempty"`
	IsPaid          bool   `json:"is_paid"`
	Year            int    `json:"year"`
	EntitledDays    string `json:"entitled_days"`
	CarriedOverDays string `json:"carried_over_days"`
	AccruedDays     string `json:"accrued_days"`
	UsedDays        string `json:"used_days"`
	PendingDays     string `json:"pending_days"`
	RemainingDays   string `json:"remaining_days"`
}

type MessageResponse struct {
	Message string        `json:"message"`
	Leave   LeaveResponse `json:"leave"`
}
