package handlers

import (
	"net/http"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

func (suite *HandlerTestSuite) columnIDs(stage models.DealStage) []uint64 {
	deals, err := suite.dealRepo.ListColumn(suite.org.ID, stage)
	suite.Require().NoError(err)
	ids := make([]uint64, len(deals))
	for i, d := range deals {
		ids[i] = d.ID
	}
	return ids
}

func (suite *HandlerTestSuite) TestCreateDeal_DefaultsToQualified() {
	suite.createDeal("Existing", models.StageQualified)

	c, w := suite.testContext(http.MethodPost, "/api/deals", map[string]interface{}{
		"title": "Annual renewal",
		"value": 12000,
	}, suite.repAuth())

	suite.dealHandler.CreateDeal(c)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	body := suite.decode(w)
	suite.Equal(true, body["success"])
	deal := body["deal"].(map[string]interface{})
	suite.Equal("qualified", deal["stage"])
	suite.Equal(float64(1), deal["position"])
	suite.Equal("USD", deal["currency"])
	suite.Equal(float64(suite.rep.ID), deal["owner_id"])
}

func (suite *HandlerTestSuite) TestCreateDeal_InvalidRequest() {
	c, w := suite.testContext(http.MethodPost, "/api/deals", []byte("not json"), suite.repAuth())
	suite.dealHandler.CreateDeal(c)
	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")

	c, w = suite.testContext(http.MethodPost, "/api/deals", map[string]interface{}{
		"title":      "Closed already",
		"stage":      "won",
		"close_date": "yesterday",
	}, suite.repAuth())
	suite.dealHandler.CreateDeal(c)
	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestGetBoard() {
	a := suite.createDeal("A", models.StageQualified)
	b := suite.createDeal("B", models.StageQualified)
	suite.createDeal("C", models.StageNegotiation)

	c, w := suite.testContext(http.MethodGet, "/api/deals/board", nil, suite.repAuth())
	suite.dealHandler.GetBoard(c)

	suite.Equal(http.StatusOK, w.Code)
	columns := suite.decode(w)["columns"].([]interface{})
	suite.Len(columns, 5)

	qualified := columns[0].(map[string]interface{})
	suite.Equal("qualified", qualified["stage"])
	suite.Equal("Qualified", qualified["label"])
	deals := qualified["deals"].([]interface{})
	suite.Require().Len(deals, 2)
	suite.Equal(float64(a.ID), deals[0].(map[string]interface{})["id"])
	suite.Equal(float64(b.ID), deals[1].(map[string]interface{})["id"])

	won := columns[3].(map[string]interface{})
	suite.Equal("won", won["stage"])
	suite.Empty(won["deals"])
}

func (suite *HandlerTestSuite) TestGetDeal_OtherOrganizationIsNotFound() {
	deal := suite.createDeal("Private", models.StageQualified)

	other := suite.createOrganization("Other")
	outsider := suite.createUser("outsider")
	suite.addMember(other, outsider, models.RoleOwner)
	auth := &authz.AuthContext{OrganizationID: other.ID, UserID: outsider.ID, Role: models.RoleOwner}

	c, w := suite.testContext(http.MethodGet, "/api/deals/1", nil, auth, idParam("id", deal.ID))
	suite.dealHandler.GetDeal(c)

	suite.assertFailure(w, http.StatusNotFound, "NOT_FOUND")
}

func (suite *HandlerTestSuite) TestGetDeal_InvalidID() {
	c, w := suite.testContext(http.MethodGet, "/api/deals/abc", nil, suite.repAuth())
	c.AddParam("id", "abc")
	suite.dealHandler.GetDeal(c)

	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestUpdateDealStage_WonNeedsCloseDate() {
	deal := suite.createDeal("Closing", models.StageNegotiation)

	c, w := suite.testContext(http.MethodPost, "/api/deals/1/stage", map[string]interface{}{
		"stage": "won",
	}, suite.repAuth(), idParam("id", deal.ID))
	suite.dealHandler.UpdateDealStage(c)
	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")

	c, w = suite.testContext(http.MethodPost, "/api/deals/1/stage", map[string]interface{}{
		"stage":      "won",
		"close_date": "2026-10-01",
	}, suite.repAuth(), idParam("id", deal.ID))
	suite.dealHandler.UpdateDealStage(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	body := suite.decode(w)
	suite.Equal(true, body["changed"])
	updated := body["deal"].(map[string]interface{})
	suite.Equal("won", updated["stage"])
	suite.NotNil(updated["close_date"])

	var activities int64
	suite.db.Model(&models.DealActivity{}).Where("deal_id = ?", deal.ID).Count(&activities)
	suite.Equal(int64(1), activities)
}

func (suite *HandlerTestSuite) TestUpdateDealStage_SameStage() {
	deal := suite.createDeal("Steady", models.StageProposal)

	c, w := suite.testContext(http.MethodPost, "/api/deals/1/stage", map[string]interface{}{
		"stage": "proposal",
	}, suite.repAuth(), idParam("id", deal.ID))
	suite.dealHandler.UpdateDealStage(c)

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal(false, suite.decode(w)["changed"])
}

func (suite *HandlerTestSuite) TestMoveDeal_ReordersColumn() {
	a := suite.createDeal("A", models.StageProposal)
	b := suite.createDeal("B", models.StageProposal)
	c3 := suite.createDeal("C", models.StageProposal)

	c, w := suite.testContext(http.MethodPost, "/api/deals/1/move", map[string]interface{}{
		"stage":       "proposal",
		"ordered_ids": []uint64{c3.ID, a.ID, b.ID},
	}, suite.repAuth(), idParam("id", c3.ID))
	suite.dealHandler.MoveDeal(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal(true, suite.decode(w)["changed"])
	suite.Equal([]uint64{c3.ID, a.ID, b.ID}, suite.columnIDs(models.StageProposal))
}

func (suite *HandlerTestSuite) TestMoveDeal_AcrossStagesByIndex() {
	moving := suite.createDeal("Moving", models.StageQualified)
	x := suite.createDeal("X", models.StageNegotiation)

	c, w := suite.testContext(http.MethodPost, "/api/deals/1/move", map[string]interface{}{
		"stage": "negotiation",
		"index": 0,
	}, suite.repAuth(), idParam("id", moving.ID))
	suite.dealHandler.MoveDeal(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal([]uint64{moving.ID, x.ID}, suite.columnIDs(models.StageNegotiation))
	suite.Empty(suite.columnIDs(models.StageQualified))
}

func (suite *HandlerTestSuite) TestMoveDeal_Rejections() {
	a := suite.createDeal("A", models.StageProposal)
	b := suite.createDeal("B", models.StageProposal)
	elsewhere := suite.createDeal("Elsewhere", models.StageQualified)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   string
	}{
		{"terminal column", map[string]interface{}{"stage": "won", "ordered_ids": []uint64{a.ID}}, http.StatusConflict, "CONFIRMATION_REQUIRED"},
		{"stale column", map[string]interface{}{"stage": "proposal", "ordered_ids": []uint64{b.ID, elsewhere.ID, a.ID}}, http.StatusConflict, "CONFLICT"},
		{"moved deal missing", map[string]interface{}{"stage": "proposal", "ordered_ids": []uint64{b.ID}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"partial column", map[string]interface{}{"stage": "proposal", "ordered_ids": []uint64{a.ID}}, http.StatusConflict, "CONFLICT"},
		{"unknown stage", map[string]interface{}{"stage": "archived", "index": 0}, http.StatusBadRequest, "INVALID_INPUT"},
		{"no target", map[string]interface{}{"stage": "proposal"}, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			c, w := suite.testContext(http.MethodPost, "/api/deals/1/move", tt.body, suite.repAuth(), idParam("id", a.ID))
			suite.dealHandler.MoveDeal(c)
			suite.assertFailure(w, tt.status, tt.code)
		})
	}

	suite.Equal([]uint64{a.ID, b.ID}, suite.columnIDs(models.StageProposal))
}

func (suite *HandlerTestSuite) TestUpdateDeal_ClearsValue() {
	deal := suite.createDeal("Sized", models.StageQualified)

	c, w := suite.testContext(http.MethodPatch, "/api/deals/1", map[string]interface{}{
		"value": 500,
	}, suite.repAuth(), idParam("id", deal.ID))
	suite.dealHandler.UpdateDeal(c)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal(float64(500), suite.decode(w)["deal"].(map[string]interface{})["value"])

	c, w = suite.testContext(http.MethodPatch, "/api/deals/1", map[string]interface{}{
		"clear_value": true,
		"title":       "Unsized",
	}, suite.repAuth(), idParam("id", deal.ID))
	suite.dealHandler.UpdateDeal(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	updated := suite.decode(w)["deal"].(map[string]interface{})
	suite.Nil(updated["value"])
	suite.Equal("Unsized", updated["title"])
}

func (suite *HandlerTestSuite) TestDeleteDeal_RequiresOwner() {
	deal := suite.createDeal("Doomed", models.StageQualified)

	c, w := suite.testContext(http.MethodDelete, "/api/deals/1", nil, suite.repAuth(), idParam("id", deal.ID))
	suite.dealHandler.DeleteDeal(c)
	suite.assertFailure(w, http.StatusForbidden, "FORBIDDEN")

	c, w = suite.testContext(http.MethodDelete, "/api/deals/1", nil, suite.ownerAuth(), idParam("id", deal.ID))
	suite.dealHandler.DeleteDeal(c)
	suite.Equal(http.StatusOK, w.Code)

	_, err := suite.dealRepo.FindByID(suite.org.ID, deal.ID)
	suite.Error(err)
}
