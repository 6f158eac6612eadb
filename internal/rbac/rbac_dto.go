package rbac

type EnforceRequest struct {
	EmployeeID     string `json:"employee_id" binding:"required"`
	OrganizationID string `json:"organization_id" binding:"required"`
	Resource       string `json:"resource" binding:"required"`
	Action         string `json:"action" binding:"required"`
}
