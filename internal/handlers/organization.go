package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/dto"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
	"github.com/yukikurage/crm-pipeline-api/internal/middleware"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
)

type OrganizationHandler struct {
	orgService *services.OrganizationService
}

func NewOrganizationHandler(orgService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: orgService,
	}
}

// CreateOrganization creates a new organization owned by the caller
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateOrgRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.CreateOrganization(services.CreateOrganizationInput{
		Name:    req.Name,
		OwnerID: userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusCreated, gin.H{
		"organization": dto.ToOrganizationDTO(*org, true),
		"role":         models.RoleOwner,
	})
}

// ListOrganizations returns all organizations the user is a member of
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	memberships, err := h.orgService.ListOrganizationsForUser(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	orgs := make([]dto.OrganizationWithRoleDTO, len(memberships))
	for i, m := range memberships {
		orgs[i] = dto.ToOrganizationWithRoleDTO(m)
	}

	activeID, _ := middleware.GetOrganizationID(c)
	apierrors.Success(c, http.StatusOK, gin.H{
		"organizations":          orgs,
		"active_organization_id": activeID,
	})
}

// ActivateOrganization makes an organization the session's active one
func (h *OrganizationHandler) ActivateOrganization(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	member, err := h.orgService.ActivateOrganization(userID, orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeyActiveOrganization, orgID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"active_organization_id": orgID,
		"role":                   member.Role,
	})
}

// GetCurrentOrganization returns the active organization, its members and
// the caller's role and permissions
func (h *OrganizationHandler) GetCurrentOrganization(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	org, members, err := h.orgService.GetOrganizationWithMembers(auth.OrganizationID)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"organization": dto.ToOrganizationDetailDTO(*org, members, auth.Role),
	})
}

// UpdateCurrentOrganization renames the active organization
func (h *OrganizationHandler) UpdateCurrentOrganization(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	type UpdateOrgRequest struct {
		Name string `json:"name" binding:"required"`
	}

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.UpdateOrganizationName(auth, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"organization": dto.ToOrganizationDTO(*org, true),
	})
}

// DeleteCurrentOrganization removes the active organization with all of its
// data and clears it from the session
func (h *OrganizationHandler) DeleteCurrentOrganization(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	if err := h.orgService.DeleteOrganization(auth); err != nil {
		respondError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Delete(constants.SessionKeyActiveOrganization)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"message": "Organization deleted successfully"})
}

// JoinOrganization joins an organization by invite code as a member
func (h *OrganizationHandler) JoinOrganization(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type JoinOrgRequest struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}

	var req JoinOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.JoinOrganizationByInvite(userID, req.InviteCode)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"organization": dto.ToOrganizationDTO(*org, false),
		"role":         models.RoleMember,
	})
}

// RegenerateInviteCode replaces the active organization's invite code
func (h *OrganizationHandler) RegenerateInviteCode(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	org, err := h.orgService.RegenerateInviteCode(auth)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"invite_code": org.InviteCode})
}

// InviteUser creates an email invitation. The token is returned once.
func (h *OrganizationHandler) InviteUser(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	type InviteRequest struct {
		Email string `json:"email" binding:"required"`
		Role  string `json:"role"`
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	invitation, err := h.orgService.InviteUser(auth, services.InviteUserInput{
		Email: req.Email,
		Role:  models.OrganizationRole(req.Role),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusCreated, gin.H{
		"invitation": dto.ToInvitationDTO(*invitation, true),
	})
}

// ListInvitations returns the pending invitations of the active organization
func (h *OrganizationHandler) ListInvitations(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	invitations, err := h.orgService.ListInvitations(auth)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]dto.InvitationDTO, len(invitations))
	for i, inv := range invitations {
		out[i] = dto.ToInvitationDTO(inv, false)
	}

	apierrors.Success(c, http.StatusOK, gin.H{"invitations": out})
}

// AcceptInvitation redeems an invitation token for the caller
func (h *OrganizationHandler) AcceptInvitation(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	member, err := h.orgService.AcceptInvitation(userID, c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"organization_id": member.OrganizationID,
		"role":            member.Role,
	})
}

// UpdateMember changes a member's role
func (h *OrganizationHandler) UpdateMember(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	targetID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	type UpdateMemberRequest struct {
		Role string `json:"role" binding:"required"`
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.orgService.UpdateMember(auth, targetID, models.OrganizationRole(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"user_id": member.UserID,
		"role":    member.Role,
	})
}

// RemoveMember removes one member from the active organization
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	targetID, ok := parseIDParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.orgService.RemoveMember(auth, targetID); err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"message": "Member removed successfully"})
}

// RemoveMembers removes several members at once. Either all are removed or none.
func (h *OrganizationHandler) RemoveMembers(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	type RemoveMembersRequest struct {
		UserIDs []uint64 `json:"user_ids"`
	}

	var req RemoveMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.orgService.RemoveMembers(auth, req.UserIDs); err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"message": "Members removed successfully",
		"removed": len(req.UserIDs),
	})
}
