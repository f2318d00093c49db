package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
	"github.com/yukikurage/crm-pipeline-api/internal/logger"
	"github.com/yukikurage/crm-pipeline-api/internal/metrics"
	"go.uber.org/zap"
)

// RequirePermission runs the authorization gate for the resolved user and
// organization and stores the resulting AuthContext for the handler.
func RequirePermission(gate *authz.Gate, permission authz.Permission, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := GetUserID(c)
		orgID, _ := GetOrganizationID(c)

		auth, err := gate.Authorize(authz.Identity{UserID: userID, OrganizationID: orgID}, permission)
		if err != nil {
			switch {
			case errors.Is(err, authz.ErrUnauthenticated):
				m.AuthorizationDenied(string(permission), "unauthenticated")
				apierrors.Unauthorized(c, "")
			case errors.Is(err, authz.ErrNoActiveOrganization):
				m.AuthorizationDenied(string(permission), "no_active_organization")
				apierrors.NoActiveOrganization(c, "")
			case errors.Is(err, authz.ErrNotAMember):
				// Outsiders can't tell someone else's organization from a missing one.
				m.AuthorizationDenied(string(permission), "not_a_member")
				apierrors.NotFound(c, "Organization not found")
			case errors.Is(err, authz.ErrForbidden):
				m.AuthorizationDenied(string(permission), "forbidden")
				required, _ := authz.MinimumRole(permission)
				apierrors.RespondWithError(c, http.StatusForbidden, apierrors.NewAPIErrorWithDetails(
					apierrors.ErrCodeForbidden, err.Error(),
					gin.H{"permission": permission, "required_role": required},
				))
			default:
				logger.L().Error("authorization failed",
					zap.String("trace_id", GetTraceID(c)),
					zap.String("permission", string(permission)),
					zap.Error(err),
				)
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyAuth, auth)
		c.Next()
	}
}

// GetAuthContext retrieves the AuthContext stored by RequirePermission
func GetAuthContext(c *gin.Context) (*authz.AuthContext, bool) {
	value, exists := c.Get(constants.ContextKeyAuth)
	if !exists {
		return nil, false
	}
	auth, ok := value.(*authz.AuthContext)
	return auth, ok && auth != nil
}
