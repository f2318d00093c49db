package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/crm-pipeline-api/internal/dto"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
	"github.com/yukikurage/crm-pipeline-api/internal/utils"
)

const generateTasksTimeout = 30 * time.Second

type TaskHandler struct {
	taskService *services.DealTaskService
}

func NewTaskHandler(taskService *services.DealTaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the active organization's tasks.
// Filters: deal_id, status, assigned_to_me, due_today, overdue, sort=due_date.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseOptionalUint64Query(c, "deal_id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		DealID:        dealID,
		AssignedToMe:  c.Query("assigned_to_me") == "true",
		DueToday:      c.Query("due_today") == "true",
		Overdue:       c.Query("overdue") == "true",
		SortByDueDate: c.Query("sort") == "due_date",
		Page:          params.Page,
		PageSize:      params.Limit,
	}
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(strings.ToUpper(raw))
		input.Status = &status
	}

	tasks, total, err := h.taskService.ListTasks(auth, input)
	if err != nil {
		respondError(c, err)
		return
	}

	response := dto.ToTaskListResponse(tasks, params.Page, params.Limit, total)
	apierrors.Success(c, http.StatusOK, gin.H{
		"tasks":       response.Tasks,
		"page":        response.Page,
		"page_size":   response.PageSize,
		"total_count": response.TotalCount,
		"total_pages": response.TotalPages,
	})
}

// CreateTask adds a follow-up task to a deal
func (h *TaskHandler) CreateTask(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string  `json:"title" binding:"required"`
		Description string  `json:"description"`
		Status      string  `json:"status"`
		DueDate     string  `json:"due_date"`
		AssigneeID  *uint64 `json:"assignee_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	dueDate, ok := bindDate(c, "due_date", req.DueDate)
	if !ok {
		return
	}

	task, err := h.taskService.CreateTask(auth, services.CreateTaskInput{
		DealID:      dealID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatus(strings.ToUpper(req.Status)),
		DueDate:     dueDate,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusCreated, gin.H{"task": dto.ToDealTaskDTO(*task)})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(auth, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"task": dto.ToDealTaskDTO(*task)})
}

// UpdateTask edits a task. assignee_id 0 unassigns it.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title        *string `json:"title"`
		Description  *string `json:"description"`
		Status       *string `json:"status"`
		DueDate      *string `json:"due_date"`
		ClearDueDate bool    `json:"clear_due_date"`
		AssigneeID   *uint64 `json:"assignee_id"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		ClearDueDate: req.ClearDueDate,
		AssigneeID:   req.AssigneeID,
	}
	if req.Status != nil {
		status := models.TaskStatus(strings.ToUpper(*req.Status))
		input.Status = &status
	}
	if req.DueDate != nil {
		if input.DueDate, ok = bindDate(c, "due_date", *req.DueDate); !ok {
			return
		}
	}

	task, err := h.taskService.UpdateTask(auth, taskID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"task": dto.ToDealTaskDTO(*task)})
}

// ToggleTaskStatus flips a task between TODO and DONE
func (h *TaskHandler) ToggleTaskStatus(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.ToggleTaskStatus(auth, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"task": dto.ToDealTaskDTO(*task)})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(auth, taskID); err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// GenerateTasks suggests follow-up tasks from the deal's notes. Nothing is
// saved; the client creates the ones the user keeps.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), generateTasksTimeout)
	defer cancel()

	tasks, err := h.taskService.GenerateTasks(ctx, auth, dealID)
	if err != nil {
		if errors.Is(err, services.ErrAINoTasksGenerated) || errors.Is(err, services.ErrAINoValidTasks) {
			apierrors.InternalError(c, err.Error())
			return
		}
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"tasks": tasks})
}
