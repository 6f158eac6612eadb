package middleware

import (
	"context"
	"net/http"

	"go-hris-leave/internal/rbac"
	"go-hris-leave/internal/shared/apperror"
	"go-hris-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
)

type RBACService interface {
	Enforce(ctx context.Context, req rbac.EnforceRequest) (bool, error)
}

func RBACAuthorize(service RBACService, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeID := c.GetString(ContextEmployeeID)
		organizationID := c.GetString(ContextOrganizationID)

		if employeeID == "" || organizationID == "" {
			abortWith(c, apperror.ErrUnauthorized)
			return
		}

		allowed, err := service.Enforce(c.Request.Context(), rbac.EnforceRequest{
			EmployeeID:     employeeID,
			OrganizationID: organizationID,
			Resource:       resource,
			Action:         action,
		})
		if err != nil {
			abortWith(c, apperror.ErrInternal)
			return
		}

		if !allowed {
			response.Error(c, http.StatusForbidden, apperror.CodeForbidden, apperror.ErrForbidden.Message, gin.H{
				"required": resource + ":" + action,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
