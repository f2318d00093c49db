package dto

import (
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

// OrganizationWithRoleDTO represents an organization with the user's role
type OrganizationWithRoleDTO struct {
	OrganizationDTO
	Role models.OrganizationRole `json:"role"`
}

// OrganizationMemberDTO represents a member in an organization
type OrganizationMemberDTO struct {
	User     UserDTO                 `json:"user"`
	Role     models.OrganizationRole `json:"role"`
	JoinedAt time.Time               `json:"joined_at"`
}

// OrganizationDetailDTO represents detailed organization information
type OrganizationDetailDTO struct {
	OrganizationDTO
	Members         []OrganizationMemberDTO `json:"members"`
	YourRole        models.OrganizationRole `json:"your_role"`
	YourPermissions []authz.Permission      `json:"your_permissions"`
}

// InvitationDTO represents a pending invitation. The token is only included
// right after creation.
type InvitationDTO struct {
	ID        uint64                  `json:"id"`
	Email     string                  `json:"email"`
	Role      models.OrganizationRole `json:"role"`
	InvitedBy uint64                  `json:"invited_by"`
	ExpiresAt time.Time               `json:"expires_at"`
	Token     string                  `json:"token,omitempty"`
}

// ToOrganizationWithRoleDTO converts an organization member to DTO with role
func ToOrganizationWithRoleDTO(member models.OrganizationMember) OrganizationWithRoleDTO {
	return OrganizationWithRoleDTO{
		OrganizationDTO: ToOrganizationDTO(member.Organization, false),
		Role:            member.Role,
	}
}

// ToOrganizationMemberDTO converts a member to DTO
func ToOrganizationMemberDTO(member models.OrganizationMember) OrganizationMemberDTO {
	return OrganizationMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToOrganizationDetailDTO converts organization with members to detailed DTO.
// The invite code is only shown to roles that may invite.
func ToOrganizationDetailDTO(org models.Organization, members []models.OrganizationMember, yourRole models.OrganizationRole) OrganizationDetailDTO {
	memberDTOs := make([]OrganizationMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToOrganizationMemberDTO(member)
	}

	return OrganizationDetailDTO{
		OrganizationDTO: ToOrganizationDTO(org, authz.Can(yourRole, authz.PermMemberInvite)),
		Members:         memberDTOs,
		YourRole:        yourRole,
		YourPermissions: authz.PermissionsForRole(yourRole),
	}
}

// ToInvitationDTO converts an invitation to DTO
func ToInvitationDTO(invitation models.Invitation, includeToken bool) InvitationDTO {
	dto := InvitationDTO{
		ID:        invitation.ID,
		Email:     invitation.Email,
		Role:      invitation.Role,
		InvitedBy: invitation.InvitedBy,
		ExpiresAt: invitation.ExpiresAt,
	}
	if includeToken {
		dto.Token = invitation.Token
	}
	return dto
}
