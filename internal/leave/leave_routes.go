package leave

import (
	"go-hris-leave/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the leave endpoints. guards run before the RBAC
// checks, usually AuthMiddleware, ContextLogger and a per-user rate limit.
func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	guards ...gin.HandlerFunc,
) {
	leaves := r.Group("/leaves")
	leaves.Use(guards...)
	{
		leaves.POST("", middleware.RBACAuthorize(rbacService, PermissionResource, "create"), handler.Create)
		leaves.POST("/preview", middleware.RBACAuthorize(rbacService, PermissionResource, "read"), handler.Preview)
		leaves.PUT("/process/:id", middleware.RBACAuthorize(rbacService, PermissionResource, "approve"), handler.Process)
		leaves.PUT("/cancel/:id", middleware.RBACAuthorize(rbacService, PermissionResource, "create"), handler.Cancel)
		leaves.GET("/balances", middleware.RBACAuthorize(rbacService, PermissionResource, "read"), handler.GetBalances)
		leaves.GET("/requests", middleware.RBACAuthorize(rbacService, PermissionResource, "read"), handler.GetRequests)
		leaves.GET("/requests/:id", middleware.RBACAuthorize(rbacService, PermissionResource, "read"), handler.GetByID)
	}
}
