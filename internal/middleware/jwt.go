package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-leave-api/internal/models"
	appErrors "github.com/noah-isme/sma-leave-api/pkg/errors"
	"github.com/noah-isme/sma-leave-api/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing the authenticated *models.Principal.
	ContextUserKey = "currentUser"
	// ContextSessionKey stores the session id behind the bearer token.
	ContextSessionKey = "currentSession"
)

type sessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

// JWT protects routes by requiring a token whose session is still stored.
func JWT(sessions sessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		session, err := sessions.Resolve(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		principal := session.Principal
		c.Set(ContextUserKey, &principal)
		c.Set(ContextSessionKey, session.ID)
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal, or nil.
func PrincipalFrom(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*models.Principal)
	return principal
}

// SessionIDFrom returns the session id behind the request token.
func SessionIDFrom(c *gin.Context) string {
	return c.GetString(ContextSessionKey)
}
