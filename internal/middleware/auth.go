package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
)

// RequireAuth checks if the user is authenticated via session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)

		if userID == nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// ResolveOrganization picks the request's organization from the
// X-Organization-ID header, falling back to the session's active organization.
// Membership is not checked here; RequirePermission does that.
func ResolveOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := strings.TrimSpace(c.GetHeader(constants.HeaderOrganizationID)); raw != "" {
			orgID, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || orgID == 0 {
				apierrors.BadRequest(c, "Invalid "+constants.HeaderOrganizationID+" header")
				c.Abort()
				return
			}
			c.Set(constants.ContextKeyOrganizationID, orgID)
			c.Next()
			return
		}

		session := sessions.Default(c)
		if orgID, ok := toUint64(session.Get(constants.SessionKeyActiveOrganization)); ok && orgID != 0 {
			c.Set(constants.ContextKeyOrganizationID, orgID)
		}
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetOrganizationID retrieves the resolved organization ID from context
func GetOrganizationID(c *gin.Context) (uint64, bool) {
	orgID, exists := c.Get(constants.ContextKeyOrganizationID)
	if !exists {
		return 0, false
	}
	return toUint64(orgID)
}

func toUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
