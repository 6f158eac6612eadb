package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-hris-leave/internal/middleware"
	"go-hris-leave/internal/rbac"
	rbacmock "go-hris-leave/internal/rbac/mock"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func newRBACRouter(svc middleware.RBACService, identity bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if identity {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextEmployeeID, "emp-1")
			c.Set(middleware.ContextOrganizationID, "org-1")
			c.Next()
		})
	}
	r.POST("/leaves", middleware.RBACAuthorize(svc, "leave", "create"), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestRBACAuthorize(t *testing.T) {
	want := rbac.EnforceRequest{
		EmployeeID:     "emp-1",
		OrganizationID: "org-1",
		Resource:       "leave",
		Action:         "create",
	}

	tests := []struct {
		name     string
		identity bool
		setup    func(m *rbacmock.MockService)
		status   int
	}{
		{
			name:     "allowed",
			identity: true,
			setup: func(m *rbacmock.MockService) {
				m.EXPECT().Enforce(gomock.Any(), want).Return(true, nil)
			},
			status: http.StatusCreated,
		},
		{
			name:     "denied",
			identity: true,
			setup: func(m *rbacmock.MockService) {
				m.EXPECT().Enforce(gomock.Any(), want).Return(false, nil)
			},
			status: http.StatusForbidden,
		},
		{
			name:     "enforcer error",
			identity: true,
			setup: func(m *rbacmock.MockService) {
				m.EXPECT().Enforce(gomock.Any(), want).Return(false, errors.New("policy load failed"))
			},
			status: http.StatusInternalServerError,
		},
		{
			name:   "no identity",
			setup:  func(*rbacmock.MockService) {},
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := rbacmock.NewMockService(ctrl)
			tt.setup(svc)

			w := httptest.NewRecorder()
			newRBACRouter(svc, tt.identity).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leaves", nil))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
