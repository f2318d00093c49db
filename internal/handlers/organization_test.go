package handlers

import (
	"net/http"

	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

func (suite *HandlerTestSuite) TestCreateOrganization() {
	c, w := suite.testContext(http.MethodPost, "/api/organizations", map[string]string{"name": "Globex"}, nil)
	c.Set(constants.ContextKeyUserID, suite.rep.ID)

	suite.orgHandler.CreateOrganization(c)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	body := suite.decode(w)
	suite.Equal("owner", body["role"])
	org := body["organization"].(map[string]interface{})
	suite.Equal("Globex", org["name"])
	suite.NotEmpty(org["invite_code"])
}

func (suite *HandlerTestSuite) TestCreateOrganization_BlankName() {
	c, w := suite.testContext(http.MethodPost, "/api/organizations", map[string]string{"name": "   "}, nil)
	c.Set(constants.ContextKeyUserID, suite.rep.ID)

	suite.orgHandler.CreateOrganization(c)

	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestListOrganizations() {
	second := suite.createOrganization("Second")
	suite.addMember(second, suite.rep, models.RoleAdmin)

	c, w := suite.testContext(http.MethodGet, "/api/organizations", nil, nil)
	c.Set(constants.ContextKeyUserID, suite.rep.ID)

	suite.orgHandler.ListOrganizations(c)

	suite.Equal(http.StatusOK, w.Code)
	orgs := suite.decode(w)["organizations"].([]interface{})
	suite.Len(orgs, 2)
	for _, o := range orgs {
		suite.Empty(o.(map[string]interface{})["invite_code"])
	}
}

func (suite *HandlerTestSuite) TestActivateOrganization() {
	c, w := suite.testContext(http.MethodPost, "/api/organizations/1/activate", nil, nil, idParam("id", suite.org.ID))
	c.Set(constants.ContextKeyUserID, suite.rep.ID)
	suite.withSession(c, suite.orgHandler.ActivateOrganization)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	body := suite.decode(w)
	suite.Equal(float64(suite.org.ID), body["active_organization_id"])
	suite.Equal("member", body["role"])
	suite.NotEmpty(w.Result().Cookies())

	outsider := suite.createUser("outsider")
	c, w = suite.testContext(http.MethodPost, "/api/organizations/1/activate", nil, nil, idParam("id", suite.org.ID))
	c.Set(constants.ContextKeyUserID, outsider.ID)
	suite.withSession(c, suite.orgHandler.ActivateOrganization)

	suite.assertFailure(w, http.StatusNotFound, "NOT_FOUND")
}

func (suite *HandlerTestSuite) TestGetCurrentOrganization_HidesInviteCodeFromMembers() {
	c, w := suite.testContext(http.MethodGet, "/api/organizations/current", nil, suite.repAuth())
	suite.orgHandler.GetCurrentOrganization(c)

	suite.Equal(http.StatusOK, w.Code)
	org := suite.decode(w)["organization"].(map[string]interface{})
	suite.Equal("member", org["your_role"])
	suite.Nil(org["invite_code"])
	suite.Len(org["members"], 2)
	suite.Contains(org["your_permissions"], "deal:edit")
	suite.NotContains(org["your_permissions"], "member:invite")

	c, w = suite.testContext(http.MethodGet, "/api/organizations/current", nil, suite.ownerAuth())
	suite.orgHandler.GetCurrentOrganization(c)

	org = suite.decode(w)["organization"].(map[string]interface{})
	suite.Equal(suite.org.InviteCode, org["invite_code"])
}

func (suite *HandlerTestSuite) TestJoinOrganization_InvalidCode() {
	c, w := suite.testContext(http.MethodPost, "/api/organizations/join", map[string]string{"invite_code": "nope"}, nil)
	c.Set(constants.ContextKeyUserID, suite.rep.ID)

	suite.orgHandler.JoinOrganization(c)

	suite.assertFailure(w, http.StatusNotFound, "NOT_FOUND")
}

func (suite *HandlerTestSuite) TestJoinOrganization_AlreadyMember() {
	c, w := suite.testContext(http.MethodPost, "/api/organizations/join", map[string]string{"invite_code": suite.org.InviteCode}, nil)
	c.Set(constants.ContextKeyUserID, suite.rep.ID)

	suite.orgHandler.JoinOrganization(c)

	suite.assertFailure(w, http.StatusConflict, "CONFLICT")
}

func (suite *HandlerTestSuite) TestInviteAndAccept() {
	c, w := suite.testContext(http.MethodPost, "/api/organizations/current/invitations", map[string]string{
		"email": "new.hire@example.com",
		"role":  "admin",
	}, suite.ownerAuth())
	suite.orgHandler.InviteUser(c)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	invitation := suite.decode(w)["invitation"].(map[string]interface{})
	token, _ := invitation["token"].(string)
	suite.Require().NotEmpty(token)

	c, w = suite.testContext(http.MethodGet, "/api/organizations/current/invitations", nil, suite.ownerAuth())
	suite.orgHandler.ListInvitations(c)
	pending := suite.decode(w)["invitations"].([]interface{})
	suite.Require().Len(pending, 1)
	suite.Nil(pending[0].(map[string]interface{})["token"])

	hire := suite.createUser("new.hire")
	c, w = suite.testContext(http.MethodPost, "/api/invitations/x/accept", nil, nil)
	c.AddParam("token", token)
	c.Set(constants.ContextKeyUserID, hire.ID)
	suite.orgHandler.AcceptInvitation(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("admin", suite.decode(w)["role"])

	c, w = suite.testContext(http.MethodPost, "/api/invitations/x/accept", nil, nil)
	c.AddParam("token", token)
	c.Set(constants.ContextKeyUserID, hire.ID)
	suite.orgHandler.AcceptInvitation(c)

	suite.assertFailure(w, http.StatusNotFound, "NOT_FOUND")
}

func (suite *HandlerTestSuite) TestAcceptInvitation_OtherUser() {
	c, w := suite.testContext(http.MethodPost, "/api/organizations/current/invitations", map[string]string{
		"email": "alice@example.com",
		"role":  "owner",
	}, suite.ownerAuth())
	suite.orgHandler.InviteUser(c)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	token := suite.decode(w)["invitation"].(map[string]interface{})["token"].(string)

	mallory := suite.createUser("mallory")
	c, w = suite.testContext(http.MethodPost, "/api/invitations/x/accept", nil, nil)
	c.AddParam("token", token)
	c.Set(constants.ContextKeyUserID, mallory.ID)
	suite.orgHandler.AcceptInvitation(c)

	suite.assertFailure(w, http.StatusNotFound, "NOT_FOUND")
	var count int64
	suite.db.Model(&models.OrganizationMember{}).Where("organization_id = ? AND user_id = ?", suite.org.ID, mallory.ID).Count(&count)
	suite.Zero(count)
}

func (suite *HandlerTestSuite) TestInviteUser_AdminCannotInviteOwner() {
	admin := suite.createUser("admin")
	suite.addMember(suite.org, admin, models.RoleAdmin)

	c, w := suite.testContext(http.MethodPost, "/api/organizations/current/invitations", map[string]string{
		"email": "boss@example.com",
		"role":  "owner",
	}, suite.authFor(admin, models.RoleAdmin))
	suite.orgHandler.InviteUser(c)

	suite.assertFailure(w, http.StatusForbidden, "FORBIDDEN")
}

func (suite *HandlerTestSuite) TestUpdateMember() {
	c, w := suite.testContext(http.MethodPatch, "/api/organizations/current/members/2", map[string]string{
		"role": "admin",
	}, suite.ownerAuth(), idParam("user_id", suite.rep.ID))
	suite.orgHandler.UpdateMember(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("admin", suite.decode(w)["role"])
}

func (suite *HandlerTestSuite) TestUpdateMember_LastOwner() {
	c, w := suite.testContext(http.MethodPatch, "/api/organizations/current/members/1", map[string]string{
		"role": "member",
	}, suite.ownerAuth(), idParam("user_id", suite.owner.ID))
	suite.orgHandler.UpdateMember(c)

	suite.assertFailure(w, http.StatusConflict, "INVARIANT_VIOLATION")
}

func (suite *HandlerTestSuite) TestUpdateMember_InvalidRole() {
	c, w := suite.testContext(http.MethodPatch, "/api/organizations/current/members/2", map[string]string{
		"role": "superuser",
	}, suite.ownerAuth(), idParam("user_id", suite.rep.ID))
	suite.orgHandler.UpdateMember(c)

	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestRemoveMembers_AllOrNothing() {
	other := suite.createUser("other")
	suite.addMember(suite.org, other, models.RoleMember)

	c, w := suite.testContext(http.MethodPost, "/api/organizations/current/members/remove", map[string]interface{}{
		"user_ids": []uint64{other.ID, 999},
	}, suite.ownerAuth())
	suite.orgHandler.RemoveMembers(c)
	suite.assertFailure(w, http.StatusNotFound, "NOT_FOUND")

	var count int64
	suite.db.Model(&models.OrganizationMember{}).Where("organization_id = ?", suite.org.ID).Count(&count)
	suite.Equal(int64(3), count)

	c, w = suite.testContext(http.MethodPost, "/api/organizations/current/members/remove", map[string]interface{}{
		"user_ids": []uint64{other.ID, suite.rep.ID},
	}, suite.ownerAuth())
	suite.orgHandler.RemoveMembers(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.db.Model(&models.OrganizationMember{}).Where("organization_id = ?", suite.org.ID).Count(&count)
	suite.Equal(int64(1), count)
}

func (suite *HandlerTestSuite) TestRemoveMember_Self() {
	c, w := suite.testContext(http.MethodDelete, "/api/organizations/current/members/1", nil, suite.ownerAuth(), idParam("user_id", suite.owner.ID))
	suite.orgHandler.RemoveMember(c)

	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestDeleteCurrentOrganization() {
	suite.createDeal("Doomed", models.StageQualified)

	c, w := suite.testContext(http.MethodDelete, "/api/organizations/current", nil, suite.ownerAuth())
	suite.withSession(c, suite.orgHandler.DeleteCurrentOrganization)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	var deals int64
	suite.db.Model(&models.Deal{}).Count(&deals)
	suite.Zero(deals)
}
