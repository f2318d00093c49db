package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"gorm.io/gorm"
)

func TestOrganizationService_CreateOrganizationMakesCreatorOwner(t *testing.T) {
	env := setupServiceTestEnv(t)
	user := env.createUser(t, "founder")

	org, err := env.orgs.CreateOrganization(CreateOrganizationInput{Name: "  Acme  ", OwnerID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, "Acme", org.Name)
	assert.NotEmpty(t, org.InviteCode)

	member, err := env.orgs.ActivateOrganization(user.ID, org.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, member.Role)

	_, err = env.orgs.CreateOrganization(CreateOrganizationInput{Name: "   ", OwnerID: user.ID})
	assert.ErrorIs(t, err, ErrInvalidOrganizationName)
}

func TestOrganizationService_ActivateRequiresMembership(t *testing.T) {
	env := setupServiceTestEnv(t)
	org := env.createOrganization(t, "acme")
	outsider := env.createUser(t, "outsider")

	_, err := env.orgs.ActivateOrganization(outsider.ID, org.ID)
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
	_, err = env.orgs.ActivateOrganization(outsider.ID, 999)
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestOrganizationService_SoleOwnerCannotBeDemoted(t *testing.T) {
	env := setupServiceTestEnv(t)
	org := env.createOrganization(t, "acme")
	owner := env.createUser(t, "owner")
	auth := env.member(t, org, owner, models.RoleOwner)

	_, err := env.orgs.UpdateMember(auth, owner.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrLastOwner)

	member, err := env.orgRepo.FindMember(org.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, member.Role)
}

func TestOrganizationService_UpdateMember(t *testing.T) {
	env := setupServiceTestEnv(t)
	org := env.createOrganization(t, "acme")
	owner := env.createUser(t, "owner")
	admin := env.createUser(t, "admin")
	alice := env.createUser(t, "alice")
	ownerAuth := env.member(t, org, owner, models.RoleOwner)
	adminAuth := env.member(t, org, admin, models.RoleAdmin)
	env.member(t, org, alice, models.RoleMember)

	t.Run("admin promotes member to admin", func(t *testing.T) {
		updated, err := env.orgs.UpdateMember(adminAuth, alice.ID, models.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, updated.Role)
	})

	t.Run("admin cannot grant owner", func(t *testing.T) {
		_, err := env.orgs.UpdateMember(adminAuth, alice.ID, models.RoleOwner)
		assert.ErrorIs(t, err, ErrOwnerRoleRequired)
	})

	t.Run("nobody changes their own role", func(t *testing.T) {
		_, err := env.orgs.UpdateMember(adminAuth, admin.ID, models.RoleMember)
		assert.ErrorIs(t, err, ErrCannotChangeOwnRole)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := env.orgs.UpdateMember(ownerAuth, alice.ID, models.OrganizationRole("superuser"))
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := env.orgs.UpdateMember(ownerAuth, 999, models.RoleAdmin)
		assert.ErrorIs(t, err, ErrOrganizationMemberNotFound)
	})

	t.Run("owner grants owner then steps down", func(t *testing.T) {
		_, err := env.orgs.UpdateMember(ownerAuth, alice.ID, models.RoleOwner)
		require.NoError(t, err)

		aliceAuth := &authz.AuthContext{OrganizationID: org.ID, UserID: alice.ID, Role: models.RoleOwner}
		_, err = env.orgs.UpdateMember(aliceAuth, owner.ID, models.RoleAdmin)
		require.NoError(t, err)

		owners, err := env.orgRepo.CountOwners(org.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), owners)
	})

	t.Run("plain member lacks permission", func(t *testing.T) {
		memberAuth := &authz.AuthContext{OrganizationID: org.ID, UserID: 42, Role: models.RoleMember}
		_, err := env.orgs.UpdateMember(memberAuth, admin.ID, models.RoleMember)
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})
}

func TestOrganizationService_RemoveMembers(t *testing.T) {
	env := setupServiceTestEnv(t)
	org := env.createOrganization(t, "acme")
	owner := env.createUser(t, "owner")
	coOwner := env.createUser(t, "co-owner")
	admin := env.createUser(t, "admin")
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	ownerAuth := env.member(t, org, owner, models.RoleOwner)
	env.member(t, org, coOwner, models.RoleOwner)
	adminAuth := env.member(t, org, admin, models.RoleAdmin)
	env.member(t, org, alice, models.RoleMember)
	env.member(t, org, bob, models.RoleMember)

	assert.ErrorIs(t, env.orgs.RemoveMembers(adminAuth, nil), ErrNoMembersSelected)
	assert.ErrorIs(t, env.orgs.RemoveMembers(adminAuth, []uint64{admin.ID}), ErrCannotRemoveYourself)
	assert.ErrorIs(t, env.orgs.RemoveMembers(adminAuth, []uint64{alice.ID, coOwner.ID}), ErrCannotManageOwner)
	assert.ErrorIs(t, env.orgs.RemoveMembers(adminAuth, []uint64{alice.ID, 999}), ErrOrganizationMemberNotFound)

	// Failed batches removed nobody.
	members, err := env.orgRepo.ListMembers(org.ID)
	require.NoError(t, err)
	assert.Len(t, members, 5)

	require.NoError(t, env.orgs.RemoveMembers(adminAuth, []uint64{alice.ID, bob.ID, alice.ID}))
	require.NoError(t, env.orgs.RemoveMember(ownerAuth, coOwner.ID))

	members, err = env.orgRepo.ListMembers(org.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestOrganizationService_InvitationFlow(t *testing.T) {
	env := setupServiceTestEnv(t)
	org := env.createOrganization(t, "acme")
	owner := env.createUser(t, "owner")
	admin := env.createUser(t, "admin")
	invitee := env.createUser(t, "invitee")
	ownerAuth := env.member(t, org, owner, models.RoleOwner)
	adminAuth := env.member(t, org, admin, models.RoleAdmin)

	_, err := env.orgs.InviteUser(adminAuth, InviteUserInput{Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = env.orgs.InviteUser(adminAuth, InviteUserInput{Email: "x@example.com", Role: models.RoleOwner})
	assert.ErrorIs(t, err, ErrOwnerRoleRequired)

	invitation, err := env.orgs.InviteUser(ownerAuth, InviteUserInput{Email: " Invitee@Example.com ", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "invitee@example.com", invitation.Email)
	assert.Len(t, invitation.Token, 64)

	pending, err := env.orgs.ListInvitations(adminAuth)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	member, err := env.orgs.AcceptInvitation(invitee.ID, invitation.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, member.Role)

	_, err = env.orgs.AcceptInvitation(invitee.ID, invitation.Token)
	assert.ErrorIs(t, err, ErrInvitationNotFound)
	_, err = env.orgs.AcceptInvitation(invitee.ID, "unknown")
	assert.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestOrganizationService_InvitationBelongsToInvitee(t *testing.T) {
	env := setupServiceTestEnv(t)
	org := env.createOrganization(t, "acme")
	owner := env.createUser(t, "owner")
	ownerAuth := env.member(t, org, owner, models.RoleOwner)
	alice := env.createUser(t, "alice")
	mallory := env.createUser(t, "mallory")
	anonymous := &models.User{Username: "anonymous", PasswordHash: "hashed"}
	require.NoError(t, env.db.Create(anonymous).Error)

	invitation, err := env.orgs.InviteUser(ownerAuth, InviteUserInput{Email: "alice@example.com", Role: models.RoleOwner})
	require.NoError(t, err)

	for _, outsider := range []*models.User{mallory, anonymous} {
		_, err = env.orgs.AcceptInvitation(outsider.ID, invitation.Token)
		assert.ErrorIs(t, err, ErrInvitationNotFound)
		_, err = env.orgRepo.FindMember(org.ID, outsider.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	}

	_, err = env.orgs.AcceptInvitation(999, invitation.Token)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, env.db.Model(alice).Update("email", "Alice@Example.com").Error)
	member, err := env.orgs.AcceptInvitation(alice.ID, invitation.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, member.Role)
}

func TestOrganizationService_ExpiredInvitation(t *testing.T) {
	env := setupServiceTestEnv(t)
	org := env.createOrganization(t, "acme")
	owner := env.createUser(t, "owner")
	invitee := env.createUser(t, "invitee")
	ownerAuth := env.member(t, org, owner, models.RoleOwner)

	invitation, err := env.orgs.InviteUser(ownerAuth, InviteUserInput{Email: "invitee@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, invitation.Role)

	env.orgs.now = func() time.Time { return time.Now().AddDate(0, 0, 8) }
	_, err = env.orgs.AcceptInvitation(invitee.ID, invitation.Token)
	assert.ErrorIs(t, err, ErrInvitationExpired)

	_, err = env.orgRepo.FindMember(org.ID, invitee.ID)
	assert.Error(t, err)
}

func TestOrganizationService_JoinAndDelete(t *testing.T) {
	env := setupServiceTestEnv(t)
	org := env.createOrganization(t, "acme")
	owner := env.createUser(t, "owner")
	joiner := env.createUser(t, "joiner")
	ownerAuth := env.member(t, org, owner, models.RoleOwner)

	joined, err := env.orgs.JoinOrganizationByInvite(joiner.ID, org.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, org.ID, joined.ID)

	_, err = env.orgs.JoinOrganizationByInvite(joiner.ID, org.InviteCode)
	assert.ErrorIs(t, err, ErrAlreadyOrganizationMember)
	_, err = env.orgs.JoinOrganizationByInvite(joiner.ID, "nope")
	assert.ErrorIs(t, err, ErrInvalidInviteCode)

	joinerAuth := &authz.AuthContext{OrganizationID: org.ID, UserID: joiner.ID, Role: models.RoleMember}
	assert.ErrorIs(t, env.orgs.DeleteOrganization(joinerAuth), authz.ErrForbidden)

	env.createDeal(t, ownerAuth, "Doomed", models.StageQualified)
	require.NoError(t, env.orgs.DeleteOrganization(ownerAuth))

	_, _, err = env.orgs.GetOrganizationWithMembers(org.ID)
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
	var deals int64
	env.db.Model(&models.Deal{}).Count(&deals)
	assert.Zero(t, deals)
}
