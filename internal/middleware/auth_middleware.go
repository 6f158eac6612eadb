package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go-hris-leave/internal/shared/apperror"
	"go-hris-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextUserID         = "user_id"
	ContextEmployeeID     = "employee_id"
	ContextOrganizationID = "organization_id"
	ContextRole           = "role"
)

var (
	ErrTokenNotFound = apperror.New(apperror.CodeUnauthorized, "Token not found", http.StatusUnauthorized)
	ErrInvalidToken  = apperror.New("INVALID_TOKEN", "Invalid token", http.StatusUnauthorized)
	ErrTokenExpired  = apperror.New("TOKEN_EXPIRED", "Token has expired", http.StatusUnauthorized)
)

// AuthMiddleware validates an HS256 access token from the Authorization
// header or the access_token cookie and exposes its claims on the gin
// context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			abortWith(c, ErrTokenNotFound)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWith(c, ErrTokenExpired)
				return
			}
			abortWith(c, ErrInvalidToken)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortWith(c, ErrInvalidToken)
			return
		}

		values := make(map[string]string, 3)
		for _, key := range []string{ContextUserID, ContextOrganizationID, ContextEmployeeID} {
			v, _ := claims[key].(string)
			if v == "" {
				response.Error(c, http.StatusUnauthorized, ErrInvalidToken.Code, key+" not found in token", nil)
				c.Abort()
				return
			}
			values[key] = v
		}

		role, _ := claims[ContextRole].(string)

		c.Set(ContextUserID, values[ContextUserID])
		c.Set(ContextEmployeeID, values[ContextEmployeeID])
		c.Set(ContextOrganizationID, values[ContextOrganizationID])
		c.Set(ContextRole, role)

		c.Next()
	}
}

func abortWith(c *gin.Context, err *apperror.AppError) {
	response.Error(c, err.HTTPStatus, err.Code, err.Message, nil)
	c.Abort()
}
