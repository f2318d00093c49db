package authz

import (
	"errors"
	"fmt"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated      = errors.New("authentication required")
	ErrNoActiveOrganization = errors.New("no active organization selected")
	ErrNotAMember           = errors.New("not a member of this organization")
	ErrForbidden            = errors.New("you do not have permission to perform this action")
)

// MembershipLookup resolves a user's membership in an organization. It returns
// gorm.ErrRecordNotFound when there is none.
type MembershipLookup interface {
	FindMember(organizationID, userID uint64) (*models.OrganizationMember, error)
}

// Identity is what the request knows about its caller. Zero IDs mean absent.
type Identity struct {
	UserID         uint64
	OrganizationID uint64
}

// AuthContext is the request-scoped result of a successful authorization.
// Every downstream query is scoped to OrganizationID.
type AuthContext struct {
	OrganizationID uint64                  `json:"organization_id"`
	UserID         uint64                  `json:"user_id"`
	Role           models.OrganizationRole `json:"role"`
}

// Can reports whether the authorized caller also holds permission.
func (a *AuthContext) Can(permission Permission) bool {
	return a != nil && Can(a.Role, permission)
}

// Gate checks identity, membership, and role before an operation runs.
type Gate struct {
	members MembershipLookup
}

func NewGate(members MembershipLookup) *Gate {
	return &Gate{members: members}
}

// Authorize resolves the caller's role in their active organization and checks
// it against permission.
func (g *Gate) Authorize(id Identity, permission Permission) (*AuthContext, error) {
	if id.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	if id.OrganizationID == 0 {
		return nil, ErrNoActiveOrganization
	}

	member, err := g.members.FindMember(id.OrganizationID, id.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAMember
		}
		return nil, fmt.Errorf("failed to resolve membership: %w", err)
	}

	if !Can(member.Role, permission) {
		return nil, ErrForbidden
	}

	return &AuthContext{
		OrganizationID: id.OrganizationID,
		UserID:         id.UserID,
		Role:           member.Role,
	}, nil
}
