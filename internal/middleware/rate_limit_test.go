package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go-hris-leave/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestKeyedRateLimiter_GetLimiter(t *testing.T) {
	k := middleware.NewKeyedRateLimiter(rate.Limit(1), 2)

	assert.Same(t, k.GetLimiter("a"), k.GetLimiter("a"))
	assert.NotSame(t, k.GetLimiter("a"), k.GetLimiter("b"))
}

func TestRateLimitByIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RateLimitByIP(rate.Limit(0.001), 2))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"))
}

func TestRateLimitByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(middleware.ContextUserID, uid)
		}
		c.Next()
	})
	r.Use(middleware.RateLimitByUser(rate.Limit(0.001), 1))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(uid string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if uid != "" {
			req.Header.Set("X-Test-User", uid)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("u1"))
	assert.Equal(t, http.StatusTooManyRequests, send("u1"))
	assert.Equal(t, http.StatusOK, send("u2"))
	assert.Equal(t, http.StatusOK, send(""))
	assert.Equal(t, http.StatusOK, send(""))
}
