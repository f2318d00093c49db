package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTaskPermissionDenied   = errors.New("only the task creator or a manager can modify this task")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleEmpty             = errors.New("title cannot be empty")
	ErrInvalidTaskStatus      = errors.New("status must be TODO or DONE")
	ErrInvalidTaskAssignee    = errors.New("assignee is not a member of the organization")
	ErrNoDealNotes            = errors.New("the deal has no notes to generate tasks from")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// DealTaskService handles follow-up tasks attached to deals
type DealTaskService struct {
	taskRepo  repository.DealTaskRepository
	dealRepo  repository.DealRepository
	aiService *AIService
	now       func() time.Time
}

// NewDealTaskService creates a new DealTaskService. aiService may be nil.
func NewDealTaskService(taskRepo repository.DealTaskRepository, dealRepo repository.DealRepository, aiService *AIService) *DealTaskService {
	return &DealTaskService{
		taskRepo:  taskRepo,
		dealRepo:  dealRepo,
		aiService: aiService,
		now:       time.Now,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	DealID        *uint64
	AssignedToMe  bool
	DueToday      bool
	Overdue       bool
	Status        *models.TaskStatus
	SortByDueDate bool
	Page          int
	PageSize      int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	DealID      uint64
	Title       string
	Description string
	Status      models.TaskStatus
	DueDate     *time.Time
	AssigneeID  *uint64
}

// UpdateTaskInput represents input for updating a task. A zero assignee clears it.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
	AssigneeID   *uint64
}

// ListTasks returns the organization's tasks matching the filters
func (s *DealTaskService) ListTasks(auth *authz.AuthContext, input ListTasksInput) ([]models.DealTask, int64, error) {
	if err := authorize(auth, authz.PermDealView); err != nil {
		return nil, 0, err
	}

	filter := repository.TaskFilter{
		OrganizationID: auth.OrganizationID,
		DealID:         input.DealID,
		Status:         input.Status,
		Page:           input.Page,
		PageSize:       input.PageSize,
		SortByDueDate:  input.SortByDueDate,
	}

	if input.Status != nil && !validTaskStatus(*input.Status) {
		return nil, 0, ErrInvalidTaskStatus
	}
	if input.AssignedToMe {
		filter.AssigneeID = &auth.UserID
	}
	now := s.now()
	if input.DueToday {
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}
	if input.Overdue {
		todo := models.TaskStatusTodo
		filter.Status = &todo
		filter.DueDateTo = &now
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *DealTaskService) GetTask(auth *authz.AuthContext, taskID uint64) (*models.DealTask, error) {
	if err := authorize(auth, authz.PermDealView); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindByID(auth.OrganizationID, taskID, "Creator", "Assignee")
	if err != nil {
		return nil, lookupError(err, ErrTaskNotFound, "task")
	}

	return task, nil
}

// CreateTask creates a task on a deal of the caller's organization
func (s *DealTaskService) CreateTask(auth *authz.AuthContext, input CreateTaskInput) (*models.DealTask, error) {
	if err := authorize(auth, authz.PermTaskCreate); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !validTaskStatus(input.Status) {
		return nil, ErrInvalidTaskStatus
	}

	if _, err := s.dealRepo.FindByID(auth.OrganizationID, input.DealID); err != nil {
		return nil, lookupError(err, ErrDealNotFound, "deal")
	}

	assigneeID := nonZero(input.AssigneeID)
	if err := s.ensureAssignee(auth.OrganizationID, assigneeID); err != nil {
		return nil, err
	}

	task := &models.DealTask{
		DealID:         input.DealID,
		OrganizationID: auth.OrganizationID,
		Title:          title,
		Description:    input.Description,
		Status:         input.Status,
		DueDate:        input.DueDate,
		CreatorID:      auth.UserID,
		AssigneeID:     assigneeID,
	}
	if task.Status == models.TaskStatusDone {
		now := s.now()
		task.CompletedAt = &now
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(auth.OrganizationID, task.ID, "Creator", "Assignee")
}

// UpdateTask updates an existing task
func (s *DealTaskService) UpdateTask(auth *authz.AuthContext, taskID uint64, input UpdateTaskInput) (*models.DealTask, error) {
	task, err := s.modifiableTask(auth, taskID, authz.PermTaskEdit)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !validTaskStatus(*input.Status) {
			return nil, ErrInvalidTaskStatus
		}
		s.setStatus(task, *input.Status)
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.AssigneeID != nil {
		assigneeID := nonZero(input.AssigneeID)
		if err := s.ensureAssignee(auth.OrganizationID, assigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = assigneeID
		task.Assignee = nil
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(auth.OrganizationID, task.ID, "Creator", "Assignee")
}

// ToggleTaskStatus toggles a task between todo and done
func (s *DealTaskService) ToggleTaskStatus(auth *authz.AuthContext, taskID uint64) (*models.DealTask, error) {
	task, err := s.modifiableTask(auth, taskID, authz.PermTaskEdit)
	if err != nil {
		return nil, err
	}

	if task.Status == models.TaskStatusDone {
		s.setStatus(task, models.TaskStatusTodo)
	} else {
		s.setStatus(task, models.TaskStatusDone)
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to toggle status: %w", err)
	}

	return task, nil
}

// DeleteTask deletes a task if the actor created it or manages tasks
func (s *DealTaskService) DeleteTask(auth *authz.AuthContext, taskID uint64) error {
	if _, err := s.modifiableTask(auth, taskID, authz.PermTaskDelete); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(auth.OrganizationID, taskID); err != nil {
		return lookupError(err, ErrTaskNotFound, "task")
	}

	return nil
}

// GenerateTasks asks the AI service for follow-up tasks based on the deal's
// notes. Nothing is saved; the caller creates the ones it keeps.
func (s *DealTaskService) GenerateTasks(ctx context.Context, auth *authz.AuthContext, dealID uint64) ([]GeneratedTask, error) {
	if err := authorize(auth, authz.PermTaskCreate); err != nil {
		return nil, err
	}
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	deal, err := s.dealRepo.FindByID(auth.OrganizationID, dealID, "Contact", "Company")
	if err != nil {
		return nil, lookupError(err, ErrDealNotFound, "deal")
	}
	if strings.TrimSpace(deal.Notes) == "" {
		return nil, ErrNoDealNotes
	}

	aiTasks, err := s.aiService.GenerateFollowUps(ctx, deal)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}

		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

// modifiableTask loads a task the caller may change: its creator always can,
// anyone else needs task:manage.
func (s *DealTaskService) modifiableTask(auth *authz.AuthContext, taskID uint64, permission authz.Permission) (*models.DealTask, error) {
	if err := authorize(auth, permission); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.FindByID(auth.OrganizationID, taskID)
	if err != nil {
		return nil, lookupError(err, ErrTaskNotFound, "task")
	}

	if task.CreatorID != auth.UserID && !auth.Can(authz.PermTaskManage) {
		return nil, ErrTaskPermissionDenied
	}
	return task, nil
}

func (s *DealTaskService) ensureAssignee(orgID uint64, assigneeID *uint64) error {
	if assigneeID == nil {
		return nil
	}
	isMember, err := s.taskRepo.IsMember(orgID, *assigneeID)
	if err != nil {
		return fmt.Errorf("failed to verify assignee: %w", err)
	}
	if !isMember {
		return ErrInvalidTaskAssignee
	}
	return nil
}

func (s *DealTaskService) setStatus(task *models.DealTask, status models.TaskStatus) {
	if task.Status == status {
		return
	}
	task.Status = status
	if status == models.TaskStatusDone {
		now := s.now()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
}

func validTaskStatus(status models.TaskStatus) bool {
	return status == models.TaskStatusTodo || status == models.TaskStatusDone
}
