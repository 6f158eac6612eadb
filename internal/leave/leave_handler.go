package leave

import (
	"net/http"

	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/middleware"
	"go-hris-leave/internal/rbac"
	"go-hris-leave/internal/shared/apperror"
	"go-hris-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	PermissionResource = "leave"
	// ActionManage lets an actor act on other employees' leave.
	ActionManage = "manage"
)

type Handler struct {
	service Service
	rbac    middleware.RBACService
	logger  *zap.Logger
}

func NewHandler(service Service, rbacService middleware.RBACService, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("leave.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.handler")
	}
	return &Handler{service: service, rbac: rbacService, logger: l}
}

// actor resolves the caller and asks casbin whether it holds leave:manage.
func (h *Handler) actor(c *gin.Context) (Actor, error) {
	employeeID := c.GetString(middleware.ContextEmployeeID)
	privileged, err := h.rbac.Enforce(c.Request.Context(), rbac.EnforceRequest{
		EmployeeID:     employeeID,
		OrganizationID: c.GetString(middleware.ContextOrganizationID),
		Resource:       PermissionResource,
		Action:         ActionManage,
	})
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: employeeID, Privileged: privileged}, nil
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	}
	if httpErr.Status >= http.StatusInternalServerError {
		h.logger.Error("leave request failed", append(fields, zap.Error(err))...)
	} else {
		h.logger.Warn("leave request failed", append(fields, zap.String("message", httpErr.Message))...)
	}
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) writeBindError(c *gin.Context, err error) {
	h.logger.Warn("leave request binding failed", zap.String("path", c.FullPath()), zap.Error(err))
	h.writeServiceError(c, apperror.MapValidationError(err))
}

func (h *Handler) Create(c *gin.Context) {
	organizationID := c.GetString(middleware.ContextOrganizationID)

	var req CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	actor, err := h.actor(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), organizationID, actor, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) Process(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	organizationID := c.GetString(middleware.ContextOrganizationID)
	approverID := c.GetString(middleware.ContextEmployeeID)

	var req ProcessLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	var (
		resp    LeaveResponse
		message string
		err     error
	)
	switch req.Action {
	case ActionApprove:
		resp, err = h.service.Approve(ctx, organizationID, approverID, id)
		message = "Leave request approved"
	case ActionReject:
		resp, err = h.service.Reject(ctx, organizationID, approverID, id, req.RejectionReason)
		message = "Leave request rejected"
	default:
		err = leaveerrors.ErrInvalidAction
	}
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, MessageResponse{Message: message, Leave: resp}, nil)
}

func (h *Handler) Cancel(c *gin.Context) {
	id := c.Param("id")
	organizationID := c.GetString(middleware.ContextOrganizationID)

	actor, err := h.actor(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), organizationID, actor, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, MessageResponse{Message: "Leave request cancelled", Leave: resp}, nil)
}

func (h *Handler) GetBalances(c *gin.Context) {
	organizationID := c.GetString(middleware.ContextOrganizationID)

	var q BalanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.writeServiceError(c, leaveerrors.ErrInvalidYear)
		return
	}

	actor, err := h.actor(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.GetBalances(c.Request.Context(), organizationID, actor, q)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetRequests(c *gin.Context) {
	organizationID := c.GetString(middleware.ContextOrganizationID)

	var q RequestQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.writeServiceError(c, leaveerrors.ErrInvalidQuery)
		return
	}

	actor, err := h.actor(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	page, err := h.service.GetRequests(c.Request.Context(), organizationID, actor, q)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	meta := response.NewPaginationMeta(page.Total, page.Page, page.PageSize)
	response.Success(c, http.StatusOK, page.Items, &meta)
}

func (h *Handler) GetByID(c *gin.Context) {
	organizationID := c.GetString(middleware.ContextOrganizationID)

	actor, err := h.actor(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), organizationID, actor, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Preview(c *gin.Context) {
	var req PreviewDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	resp, err := h.service.PreviewDays(req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
