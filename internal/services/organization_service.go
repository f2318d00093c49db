package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/logger"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
	"github.com/yukikurage/crm-pipeline-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound       = errors.New("organization not found")
	ErrInvalidOrganizationName    = errors.New("organization name cannot be empty")
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
	ErrInvalidInviteCode          = errors.New("invalid invite code")
	ErrAlreadyOrganizationMember  = errors.New("user is already a member of this organization")
	ErrCannotRemoveYourself       = errors.New("cannot remove yourself from the organization")
	ErrOrganizationMemberNotFound = errors.New("organization member not found")
	ErrNotOrganizationMember      = errors.New("user is not a member of the organization")

	ErrInvalidRole         = errors.New("role must be one of owner, admin, member")
	ErrCannotChangeOwnRole = errors.New("you cannot change your own role")
	ErrOwnerRoleRequired   = errors.New("only an owner can grant the owner role")
	ErrCannotManageOwner   = errors.New("only an owner can change or remove another owner")
	ErrLastOwner           = errors.New("an organization must keep at least one owner")
	ErrNoMembersSelected   = errors.New("at least one member is required")

	ErrInvalidEmail          = errors.New("a valid email address is required")
	ErrInvitationNotFound    = errors.New("invitation not found or already used")
	ErrInvitationExpired     = errors.New("invitation has expired")
	ErrTokenGenerationFailed = errors.New("failed to generate invitation token")
)

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	orgRepo        repository.OrganizationRepository
	invitationRepo repository.InvitationRepository
	userRepo       repository.UserRepository
	now            func() time.Time
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(orgRepo repository.OrganizationRepository, invitationRepo repository.InvitationRepository, userRepo repository.UserRepository) *OrganizationService {
	return &OrganizationService{
		orgRepo:        orgRepo,
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		now:            time.Now,
	}
}

// CreateOrganizationInput represents parameters to create a new organization.
type CreateOrganizationInput struct {
	Name    string
	OwnerID uint64
}

// CreateOrganization creates a new organization and assigns the owner.
func (s *OrganizationService) CreateOrganization(input CreateOrganizationInput) (*models.Organization, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > constants.MaxNameLength {
		return nil, ErrInvalidOrganizationName
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	org := &models.Organization{
		Name:       name,
		InviteCode: inviteCode,
	}

	if err := s.orgRepo.CreateWithOwner(org, input.OwnerID); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return org, nil
}

// ListOrganizationsForUser returns organizations the user belongs to.
func (s *OrganizationService) ListOrganizationsForUser(userID uint64) ([]models.OrganizationMember, error) {
	memberships, err := s.orgRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return memberships, nil
}

// ActivateOrganization checks that the user may switch to orgID and returns
// their membership there.
func (s *OrganizationService) ActivateOrganization(userID, orgID uint64) (*models.OrganizationMember, error) {
	member, err := s.orgRepo.FindMember(orgID, userID)
	if err != nil {
		// Non-members can't tell a missing organization from someone else's.
		return nil, lookupError(err, ErrOrganizationNotFound, "organization member")
	}
	return member, nil
}

// GetOrganizationWithMembers returns an organization and all of its members.
func (s *OrganizationService) GetOrganizationWithMembers(orgID uint64) (*models.Organization, []models.OrganizationMember, error) {
	org, err := s.orgRepo.FindByID(orgID)
	if err != nil {
		return nil, nil, lookupError(err, ErrOrganizationNotFound, "organization")
	}

	members, err := s.orgRepo.ListMembers(orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list organization members: %w", err)
	}

	return org, members, nil
}

// UpdateOrganizationName updates the active organization's name.
func (s *OrganizationService) UpdateOrganizationName(auth *authz.AuthContext, name string) (*models.Organization, error) {
	if err := authorize(auth, authz.PermOrganizationEdit); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" || len(name) > constants.MaxNameLength {
		return nil, ErrInvalidOrganizationName
	}

	org, err := s.orgRepo.FindByID(auth.OrganizationID)
	if err != nil {
		return nil, lookupError(err, ErrOrganizationNotFound, "organization")
	}

	org.Name = name
	if err := s.orgRepo.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return org, nil
}

// DeleteOrganization removes the active organization with all of its data.
func (s *OrganizationService) DeleteOrganization(auth *authz.AuthContext) error {
	if err := authorize(auth, authz.PermOrganizationDelete); err != nil {
		return err
	}

	// Ensure organization exists
	if _, err := s.orgRepo.FindByID(auth.OrganizationID); err != nil {
		return lookupError(err, ErrOrganizationNotFound, "organization")
	}

	if err := s.orgRepo.Delete(auth.OrganizationID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	logger.L().Info("organization deleted",
		zap.Uint64("organization_id", auth.OrganizationID),
		zap.Uint64("user_id", auth.UserID),
	)
	return nil
}

// JoinOrganizationByInvite adds a user to an organization via invite code.
func (s *OrganizationService) JoinOrganizationByInvite(userID uint64, inviteCode string) (*models.Organization, error) {
	org, err := s.orgRepo.FindByInviteCode(strings.TrimSpace(inviteCode))
	if err != nil {
		return nil, lookupError(err, ErrInvalidInviteCode, "organization by invite code")
	}

	if _, err := s.orgRepo.FindMember(org.ID, userID); err == nil {
		return nil, ErrAlreadyOrganizationMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           models.RoleMember,
		JoinedAt:       s.now(),
	}

	if err := s.orgRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member to organization: %w", err)
	}

	return org, nil
}

// RegenerateInviteCode generates a new invite code for the active organization.
func (s *OrganizationService) RegenerateInviteCode(auth *authz.AuthContext) (*models.Organization, error) {
	if err := authorize(auth, authz.PermMemberInvite); err != nil {
		return nil, err
	}

	org, err := s.orgRepo.FindByID(auth.OrganizationID)
	if err != nil {
		return nil, lookupError(err, ErrOrganizationNotFound, "organization")
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}

	org.InviteCode = code
	if err := s.orgRepo.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}

	return org, nil
}

// UpdateMember changes a member's role. All guards run before anything is written.
func (s *OrganizationService) UpdateMember(auth *authz.AuthContext, targetID uint64, role models.OrganizationRole) (*models.OrganizationMember, error) {
	if err := authorize(auth, authz.PermMemberEditRole); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	target, err := s.orgRepo.FindMember(auth.OrganizationID, targetID)
	if err != nil {
		return nil, lookupError(err, ErrOrganizationMemberNotFound, "organization member")
	}
	if target.Role == role {
		return target, nil
	}

	if target.Role == models.RoleOwner {
		if err := s.ensureAnotherOwner(auth.OrganizationID, 1); err != nil {
			return nil, err
		}
	}
	if targetID == auth.UserID {
		return nil, ErrCannotChangeOwnRole
	}
	if role == models.RoleOwner && auth.Role != models.RoleOwner {
		return nil, ErrOwnerRoleRequired
	}
	if target.Role == models.RoleOwner && auth.Role != models.RoleOwner {
		return nil, ErrCannotManageOwner
	}

	if err := s.orgRepo.UpdateMemberRole(auth.OrganizationID, targetID, role); err != nil {
		return nil, lookupError(err, ErrOrganizationMemberNotFound, "organization member")
	}

	logger.L().Info("member role changed",
		zap.Uint64("organization_id", auth.OrganizationID),
		zap.Uint64("actor_id", auth.UserID),
		zap.Uint64("target_id", targetID),
		zap.String("from", string(target.Role)),
		zap.String("to", string(role)),
	)

	target.Role = role
	return target, nil
}

// RemoveMember removes a member from the organization.
func (s *OrganizationService) RemoveMember(auth *authz.AuthContext, targetID uint64) error {
	return s.RemoveMembers(auth, []uint64{targetID})
}

// RemoveMembers validates every target first and then removes them all in one
// transaction, so either every member is removed or none is.
func (s *OrganizationService) RemoveMembers(auth *authz.AuthContext, targetIDs []uint64) error {
	if err := authorize(auth, authz.PermMemberRemove); err != nil {
		return err
	}

	targetIDs = uniqueUint64(targetIDs)
	if len(targetIDs) == 0 {
		return ErrNoMembersSelected
	}

	ownersRemoved := 0
	for _, targetID := range targetIDs {
		if targetID == auth.UserID {
			return ErrCannotRemoveYourself
		}

		target, err := s.orgRepo.FindMember(auth.OrganizationID, targetID)
		if err != nil {
			return lookupError(err, ErrOrganizationMemberNotFound, "organization member")
		}
		if target.Role == models.RoleOwner {
			if auth.Role != models.RoleOwner {
				return ErrCannotManageOwner
			}
			ownersRemoved++
		}
	}
	if ownersRemoved > 0 {
		if err := s.ensureAnotherOwner(auth.OrganizationID, ownersRemoved); err != nil {
			return err
		}
	}

	if err := s.orgRepo.RemoveMembers(auth.OrganizationID, targetIDs); err != nil {
		return lookupError(err, ErrOrganizationMemberNotFound, "organization member")
	}

	logger.L().Info("members removed",
		zap.Uint64("organization_id", auth.OrganizationID),
		zap.Uint64("actor_id", auth.UserID),
		zap.Uint64s("target_ids", targetIDs),
	)
	return nil
}

// ensureAnotherOwner fails with ErrLastOwner unless at least one owner remains
// after losing the given number of owners.
func (s *OrganizationService) ensureAnotherOwner(orgID uint64, losing int) error {
	owners, err := s.orgRepo.CountOwners(orgID)
	if err != nil {
		return fmt.Errorf("failed to count owners: %w", err)
	}
	if owners-int64(losing) < 1 {
		return ErrLastOwner
	}
	return nil
}

// InviteUserInput represents parameters to invite someone to the active organization.
type InviteUserInput struct {
	Email string
	Role  models.OrganizationRole
}

// InviteUser stores an invitation that can be redeemed once with its token.
// Delivering the token is left to the caller.
func (s *OrganizationService) InviteUser(auth *authz.AuthContext, input InviteUserInput) (*models.Invitation, error) {
	if err := authorize(auth, authz.PermMemberInvite); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if input.Role == "" {
		input.Role = models.RoleMember
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if input.Role == models.RoleOwner && auth.Role != models.RoleOwner {
		return nil, ErrOwnerRoleRequired
	}

	token, err := utils.GenerateToken()
	if err != nil {
		return nil, ErrTokenGenerationFailed
	}

	now := s.now()
	invitation := &models.Invitation{
		OrganizationID: auth.OrganizationID,
		Email:          email,
		Role:           input.Role,
		Token:          token,
		InvitedBy:      auth.UserID,
		ExpiresAt:      now.AddDate(0, 0, constants.InvitationTTLDays),
	}
	if err := s.invitationRepo.Create(invitation); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return invitation, nil
}

// ListInvitations lists the pending invitations of the active organization.
func (s *OrganizationService) ListInvitations(auth *authz.AuthContext) ([]models.Invitation, error) {
	if err := authorize(auth, authz.PermMemberInvite); err != nil {
		return nil, err
	}

	invitations, err := s.invitationRepo.ListPending(auth.OrganizationID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// AcceptInvitation redeems an invitation token for the given user. Only the
// user registered under the invited email may redeem it; for anyone else the
// invitation does not exist.
func (s *OrganizationService) AcceptInvitation(userID uint64, token string) (*models.OrganizationMember, error) {
	invitation, err := s.invitationRepo.FindByToken(strings.TrimSpace(token))
	if err != nil {
		return nil, lookupError(err, ErrInvitationNotFound, "invitation")
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, lookupError(err, ErrUserNotFound, "user")
	}
	if user.Email == "" || !strings.EqualFold(user.Email, invitation.Email) {
		return nil, ErrInvitationNotFound
	}
	if invitation.AcceptedAt != nil {
		return nil, ErrInvitationNotFound
	}
	if !s.now().Before(invitation.ExpiresAt) {
		return nil, ErrInvitationExpired
	}

	if _, err := s.orgRepo.FindMember(invitation.OrganizationID, userID); err == nil {
		return nil, ErrAlreadyOrganizationMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.OrganizationMember{
		OrganizationID: invitation.OrganizationID,
		UserID:         userID,
		Role:           invitation.Role,
		JoinedAt:       s.now(),
	}
	if err := s.invitationRepo.Accept(invitation, member); err != nil {
		return nil, lookupError(err, ErrInvitationNotFound, "invitation")
	}

	return member, nil
}
