package apperror

const (
	// Client errors (4xx)
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalidState = "INVALID_STATE"
	CodeRateLimited  = "RATE_LIMITED"

	// Leave ledger errors (4xx)
	CodeInvalidDateRange    = "INVALID_DATE_RANGE"
	CodeLeaveOverlap        = "LEAVE_OVERLAP"
	CodeBalanceNotFound     = "BALANCE_NOT_FOUND"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"

	// Server errors (5xx)
	CodeInternalError = "INTERNAL_ERROR"
)
