package handlers

import (
	"net/http"
	"strconv"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

func (suite *HandlerTestSuite) TestCompanyLifecycle() {
	c, w := suite.testContext(http.MethodPost, "/api/companies", map[string]string{
		"name":   "Initech",
		"domain": "initech.com",
	}, suite.repAuth())
	suite.companyHandler.CreateCompany(c)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	company := suite.decode(w)["company"].(map[string]interface{})
	companyID := uint64(company["id"].(float64))

	c, w = suite.testContext(http.MethodGet, "/api/companies", nil, suite.repAuth())
	c.Request.URL.RawQuery = "search=inite"
	suite.companyHandler.ListCompanies(c)

	suite.Equal(http.StatusOK, w.Code)
	body := suite.decode(w)
	suite.Len(body["companies"], 1)
	suite.Equal(float64(1), body["pagination"].(map[string]interface{})["total"])

	c, w = suite.testContext(http.MethodPatch, "/api/companies/1", map[string]string{
		"industry": "Software",
	}, suite.repAuth(), idParam("id", companyID))
	suite.companyHandler.UpdateCompany(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("Software", suite.decode(w)["company"].(map[string]interface{})["industry"])

	c, w = suite.testContext(http.MethodDelete, "/api/companies/1", nil, suite.repAuth(), idParam("id", companyID))
	suite.companyHandler.DeleteCompany(c)
	suite.assertFailure(w, http.StatusForbidden, "FORBIDDEN")

	c, w = suite.testContext(http.MethodDelete, "/api/companies/1", nil, suite.ownerAuth(), idParam("id", companyID))
	suite.companyHandler.DeleteCompany(c)
	suite.Equal(http.StatusOK, w.Code)

	c, w = suite.testContext(http.MethodGet, "/api/companies/1", nil, suite.repAuth(), idParam("id", companyID))
	suite.companyHandler.GetCompany(c)
	suite.assertFailure(w, http.StatusNotFound, "NOT_FOUND")
}

func (suite *HandlerTestSuite) TestCreateCompany_BlankName() {
	c, w := suite.testContext(http.MethodPost, "/api/companies", map[string]string{"name": " "}, suite.repAuth())
	suite.companyHandler.CreateCompany(c)

	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestContactLifecycle() {
	company := &models.Company{OrganizationID: suite.org.ID, Name: "Initech", CreatedBy: suite.owner.ID}
	suite.Require().NoError(suite.db.Create(company).Error)

	c, w := suite.testContext(http.MethodPost, "/api/contacts", map[string]interface{}{
		"first_name": "Peter",
		"last_name":  "Gibbons",
		"email":      "peter@initech.com",
		"company_id": company.ID,
	}, suite.repAuth())
	suite.contactHandler.CreateContact(c)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	contact := suite.decode(w)["contact"].(map[string]interface{})
	contactID := uint64(contact["id"].(float64))
	suite.Equal(float64(company.ID), contact["company_id"])

	c, w = suite.testContext(http.MethodGet, "/api/contacts", nil, suite.repAuth())
	c.Request.URL.RawQuery = "company_id=" + strconv.FormatUint(company.ID, 10)
	suite.contactHandler.ListContacts(c)
	suite.Equal(http.StatusOK, w.Code)
	suite.Len(suite.decode(w)["contacts"], 1)

	c, w = suite.testContext(http.MethodPatch, "/api/contacts/1", map[string]interface{}{
		"company_id": 0,
	}, suite.repAuth(), idParam("id", contactID))
	suite.contactHandler.UpdateContact(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Nil(suite.decode(w)["contact"].(map[string]interface{})["company_id"])

	c, w = suite.testContext(http.MethodGet, "/api/contacts/1", nil, suite.repAuth(), idParam("id", contactID))
	suite.contactHandler.GetContact(c)
	suite.Equal(http.StatusOK, w.Code)

	c, w = suite.testContext(http.MethodDelete, "/api/contacts/1", nil, suite.ownerAuth(), idParam("id", contactID))
	suite.contactHandler.DeleteContact(c)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestCreateContact_InvalidEmail() {
	c, w := suite.testContext(http.MethodPost, "/api/contacts", map[string]interface{}{
		"first_name": "Milton",
		"email":      "stapler",
	}, suite.repAuth())
	suite.contactHandler.CreateContact(c)

	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestListContacts_InvalidCompanyFilter() {
	c, w := suite.testContext(http.MethodGet, "/api/contacts", nil, suite.repAuth())
	c.Request.URL.RawQuery = "company_id=abc"
	suite.contactHandler.ListContacts(c)

	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestActivities() {
	deal := suite.createDeal("Renewal", models.StageQualified)

	c, w := suite.testContext(http.MethodPost, "/api/deals/1/activities", map[string]string{
		"activity_type": "call",
		"content":       "Discussed pricing",
	}, suite.repAuth(), idParam("id", deal.ID))
	suite.activityHandler.CreateActivity(c)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	activity := suite.decode(w)["activity"].(map[string]interface{})
	suite.Equal("call", activity["activity_type"])
	activityID := uint64(activity["id"].(float64))

	c, w = suite.testContext(http.MethodPost, "/api/deals/1/activities", map[string]string{
		"activity_type": "stage_change",
		"content":       "Forged",
	}, suite.repAuth(), idParam("id", deal.ID))
	suite.activityHandler.CreateActivity(c)
	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")

	c, w = suite.testContext(http.MethodPatch, "/api/activities/1", map[string]string{
		"content": "Discussed pricing and terms",
	}, suite.repAuth(), idParam("id", activityID))
	suite.activityHandler.UpdateActivity(c)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	outsider := suite.createUser("colleague")
	suite.addMember(suite.org, outsider, models.RoleMember)
	c, w = suite.testContext(http.MethodDelete, "/api/activities/1", nil, suite.authFor(outsider, models.RoleMember), idParam("id", activityID))
	suite.activityHandler.DeleteActivity(c)
	suite.assertFailure(w, http.StatusForbidden, "FORBIDDEN")

	c, w = suite.testContext(http.MethodGet, "/api/deals/1/activities", nil, suite.repAuth(), idParam("id", deal.ID))
	suite.activityHandler.ListActivities(c)
	suite.Equal(http.StatusOK, w.Code)
	activities := suite.decode(w)["activities"].([]interface{})
	suite.Require().Len(activities, 1)
	suite.Equal("Discussed pricing and terms", activities[0].(map[string]interface{})["content"])
}

func (suite *HandlerTestSuite) TestStageChangeActivityIsImmutable() {
	deal := suite.createDeal("Closing", models.StageNegotiation)

	c, w := suite.testContext(http.MethodPost, "/api/deals/1/stage", map[string]interface{}{
		"stage":       "lost",
		"lost_reason": "Budget cut",
	}, suite.repAuth(), idParam("id", deal.ID))
	suite.dealHandler.UpdateDealStage(c)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var entry models.DealActivity
	suite.Require().NoError(suite.db.Where("deal_id = ?", deal.ID).First(&entry).Error)
	suite.Equal(models.ActivityStageChange, entry.ActivityType)

	c, w = suite.testContext(http.MethodDelete, "/api/activities/1", nil, suite.ownerAuth(), idParam("id", entry.ID))
	suite.activityHandler.DeleteActivity(c)
	suite.assertFailure(w, http.StatusForbidden, "FORBIDDEN")
}

func (suite *HandlerTestSuite) TestGetDashboard() {
	value := 1000.0
	open := suite.createDeal("Open", models.StageProposal)
	suite.Require().NoError(suite.db.Model(open).Update("value", value).Error)

	c, w := suite.testContext(http.MethodGet, "/api/dashboard", nil, suite.repAuth())
	suite.dashHandler.GetDashboard(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	dashboard := suite.decode(w)["dashboard"].(map[string]interface{})
	kpis := dashboard["kpis"].(map[string]interface{})
	suite.Equal(float64(1), kpis["open_deals"])
	suite.Equal(float64(1000), kpis["open_value"])
	suite.Equal(float64(14), dashboard["stale_days"])
	suite.Len(dashboard["pipeline"], 3)
}
