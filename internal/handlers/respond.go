package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
	"github.com/yukikurage/crm-pipeline-api/internal/logger"
	"github.com/yukikurage/crm-pipeline-api/internal/middleware"
	"github.com/yukikurage/crm-pipeline-api/internal/pipeline"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
	"go.uber.org/zap"
)

var notFoundErrors = []error{
	authz.ErrNotAMember,
	services.ErrOrganizationNotFound,
	services.ErrOrganizationMemberNotFound,
	services.ErrNotOrganizationMember,
	services.ErrInvalidInviteCode,
	services.ErrInvitationNotFound,
	services.ErrUserNotFound,
	services.ErrDealNotFound,
	services.ErrActivityNotFound,
	services.ErrTaskNotFound,
	services.ErrCompanyNotFound,
	services.ErrContactNotFound,
}

var forbiddenErrors = []error{
	authz.ErrForbidden,
	services.ErrOwnerRoleRequired,
	services.ErrCannotManageOwner,
	services.ErrTaskPermissionDenied,
	services.ErrActivityNotAuthor,
	services.ErrStageChangeImmutable,
}

var invalidInputErrors = []error{
	pipeline.ErrInvalidStage,
	pipeline.ErrCloseDateRequired,
	pipeline.ErrLostReasonRequired,
	pipeline.ErrEmptyOrder,
	pipeline.ErrDealNotInOrder,
	pipeline.ErrDuplicateInOrder,
	pipeline.ErrInvalidDealID,
	services.ErrInvalidOrganizationName,
	services.ErrInvalidRole,
	services.ErrCannotChangeOwnRole,
	services.ErrCannotRemoveYourself,
	services.ErrNoMembersSelected,
	services.ErrInvalidEmail,
	services.ErrInvitationExpired,
	services.ErrInvalidDealTitle,
	services.ErrInvalidDealValue,
	services.ErrInvalidCurrency,
	services.ErrLostReasonTooLong,
	services.ErrMoveTargetMissing,
	services.ErrInvalidActivityType,
	services.ErrActivityContentEmpty,
	services.ErrTitleRequired,
	services.ErrTitleEmpty,
	services.ErrInvalidTaskStatus,
	services.ErrInvalidTaskAssignee,
	services.ErrNoDealNotes,
	services.ErrInvalidCompanyName,
	services.ErrContactNameRequired,
	services.ErrInvalidContactEmail,
}

var conflictErrors = []error{
	services.ErrAlreadyOrganizationMember,
	services.ErrStaleColumn,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps a service error to its response. Unexpected errors are
// logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		apierrors.Unauthorized(c, "")
	case errors.Is(err, authz.ErrNoActiveOrganization):
		apierrors.NoActiveOrganization(c, "")
	case isAny(err, notFoundErrors):
		apierrors.NotFound(c, err.Error())
	case isAny(err, forbiddenErrors):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, pipeline.ErrConfirmationRequired):
		apierrors.ConfirmationRequired(c, err.Error())
	case errors.Is(err, services.ErrLastOwner):
		apierrors.InvariantViolation(c, err.Error())
	case isAny(err, invalidInputErrors):
		apierrors.BadRequest(c, err.Error())
	case isAny(err, conflictErrors):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	default:
		logger.L().Error("request failed",
			zap.String("trace_id", middleware.GetTraceID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		apierrors.InternalError(c, "")
	}
}

// requireAuthContext returns the AuthContext set by RequirePermission.
func requireAuthContext(c *gin.Context) (*authz.AuthContext, bool) {
	auth, ok := middleware.GetAuthContext(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return nil, false
	}
	return auth, true
}

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// parseOptionalUint64Query reads an optional numeric query parameter.
func parseOptionalUint64Query(c *gin.Context, name string) (*uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name)
		return nil, false
	}
	return &v, true
}
