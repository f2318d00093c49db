package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

func (suite *HandlerTestSuite) createTask(deal *models.Deal, title string, creator *models.User) *models.DealTask {
	task := &models.DealTask{
		DealID:         deal.ID,
		OrganizationID: deal.OrganizationID,
		Title:          title,
		Status:         models.TaskStatusTodo,
		CreatorID:      creator.ID,
	}
	suite.Require().NoError(suite.db.Create(task).Error)
	return task
}

func (suite *HandlerTestSuite) TestListTasks_Success() {
	deal := suite.createDeal("Renewal", models.StageQualified)
	task := suite.createTask(deal, "Send proposal", suite.rep)
	suite.createTask(deal, "Book demo", suite.owner)

	c, w := suite.testContext(http.MethodGet, "/api/tasks", nil, suite.repAuth())
	c.Request.URL.RawQuery = "deal_id=" + strconv.FormatUint(deal.ID, 10) + "&page=1&limit=1"

	suite.taskHandler.ListTasks(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	body := suite.decode(w)
	suite.Equal(float64(2), body["total_count"])
	suite.Equal(float64(2), body["total_pages"])
	tasks := body["tasks"].([]interface{})
	suite.Require().Len(tasks, 1)
	suite.Contains([]interface{}{task.Title, "Book demo"}, tasks[0].(map[string]interface{})["title"])
}

func (suite *HandlerTestSuite) TestListTasks_InvalidStatus() {
	c, w := suite.testContext(http.MethodGet, "/api/tasks", nil, suite.repAuth())
	c.Request.URL.RawQuery = "status=someday"

	suite.taskHandler.ListTasks(c)

	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestListTasks_Unauthenticated() {
	c, w := suite.testContext(http.MethodGet, "/api/tasks", nil, nil)

	suite.taskHandler.ListTasks(c)

	suite.assertFailure(w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func (suite *HandlerTestSuite) TestCreateTask_Success() {
	deal := suite.createDeal("Renewal", models.StageQualified)
	due := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	c, w := suite.testContext(http.MethodPost, "/api/deals/1/tasks", map[string]interface{}{
		"title":       "Call procurement",
		"due_date":    due,
		"assignee_id": suite.owner.ID,
	}, suite.repAuth(), idParam("id", deal.ID))

	suite.taskHandler.CreateTask(c)

	suite.Equal(http.StatusCreated, w.Code, w.Body.String())
	task := suite.decode(w)["task"].(map[string]interface{})
	suite.Equal("Call procurement", task["title"])
	suite.Equal("TODO", task["status"])
	suite.Equal(float64(suite.owner.ID), task["assignee_id"])
	suite.NotNil(task["due_date"])
}

func (suite *HandlerTestSuite) TestCreateTask_AssigneeOutsideOrganization() {
	deal := suite.createDeal("Renewal", models.StageQualified)
	stranger := suite.createUser("stranger")

	c, w := suite.testContext(http.MethodPost, "/api/deals/1/tasks", map[string]interface{}{
		"title":       "Call procurement",
		"assignee_id": stranger.ID,
	}, suite.repAuth(), idParam("id", deal.ID))

	suite.taskHandler.CreateTask(c)

	suite.assertFailure(w, http.StatusBadRequest, "INVALID_INPUT")
}

func (suite *HandlerTestSuite) TestCreateTask_UnknownDeal() {
	c, w := suite.testContext(http.MethodPost, "/api/deals/999/tasks", map[string]interface{}{
		"title": "Orphan",
	}, suite.repAuth(), idParam("id", 999))

	suite.taskHandler.CreateTask(c)

	suite.assertFailure(w, http.StatusNotFound, "NOT_FOUND")
}

func (suite *HandlerTestSuite) TestUpdateTask_ClearDueDate() {
	deal := suite.createDeal("Renewal", models.StageQualified)
	task := suite.createTask(deal, "Send proposal", suite.rep)
	due := time.Now().Add(24 * time.Hour)
	suite.Require().NoError(suite.db.Model(task).Update("due_date", due).Error)

	c, w := suite.testContext(http.MethodPatch, "/api/tasks/1", map[string]interface{}{
		"title":          "Send revised proposal",
		"clear_due_date": true,
	}, suite.repAuth(), idParam("id", task.ID))

	suite.taskHandler.UpdateTask(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	updated := suite.decode(w)["task"].(map[string]interface{})
	suite.Equal("Send revised proposal", updated["title"])
	suite.Nil(updated["due_date"])
}

func (suite *HandlerTestSuite) TestToggleTaskStatus() {
	deal := suite.createDeal("Renewal", models.StageQualified)
	task := suite.createTask(deal, "Send proposal", suite.rep)

	c, w := suite.testContext(http.MethodPost, "/api/tasks/1/toggle", nil, suite.repAuth(), idParam("id", task.ID))
	suite.taskHandler.ToggleTaskStatus(c)

	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	toggled := suite.decode(w)["task"].(map[string]interface{})
	suite.Equal("DONE", toggled["status"])
	suite.NotNil(toggled["completed_at"])
}

func (suite *HandlerTestSuite) TestDeleteTask_NotCreator() {
	deal := suite.createDeal("Renewal", models.StageQualified)
	task := suite.createTask(deal, "Owner's task", suite.owner)

	c, w := suite.testContext(http.MethodDelete, "/api/tasks/1", nil, suite.repAuth(), idParam("id", task.ID))
	suite.taskHandler.DeleteTask(c)
	suite.assertFailure(w, http.StatusForbidden, "FORBIDDEN")

	c, w = suite.testContext(http.MethodDelete, "/api/tasks/1", nil, suite.ownerAuth(), idParam("id", task.ID))
	suite.taskHandler.DeleteTask(c)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestGenerateTasks_WithoutAIService() {
	deal := suite.createDeal("Renewal", models.StageQualified)

	c, w := suite.testContext(http.MethodPost, "/api/deals/1/tasks/generate", nil, suite.repAuth(), idParam("id", deal.ID))
	suite.taskHandler.GenerateTasks(c)

	suite.assertFailure(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
}
