package constants

// Context and session keys
const (
	ContextKeyUserID         = "user_id"
	ContextKeyOrganizationID = "organization_id"
	ContextKeyAuth           = "auth_context"
	ContextKeyTraceID        = "trace_id"

	SessionKeyActiveOrganization = "active_organization_id"
	SessionCookieName            = "crm_session"

	HeaderOrganizationID = "X-Organization-ID"
	HeaderTraceID        = "X-Trace-Id"
)

// Validation limits
const (
	MinPasswordLength = 8
	MaxNameLength     = 255
	MaxLostReasonLen  = 500
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pipeline
const (
	// DefaultStaleDays is how long a deal may go untouched before the dashboard flags it.
	DefaultStaleDays = 14

	InvitationTTLDays = 7

	MaxAIGeneratedTasks = 10
)
