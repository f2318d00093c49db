package dto

import (
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
}

// DealTaskDTO represents a deal task in API responses
type DealTaskDTO struct {
	ID             uint64            `json:"id"`
	DealID         uint64            `json:"deal_id"`
	OrganizationID uint64            `json:"organization_id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Status         models.TaskStatus `json:"status"`
	DueDate        *time.Time        `json:"due_date"`
	CompletedAt    *time.Time        `json:"completed_at"`
	CreatorID      uint64            `json:"creator_id"`
	AssigneeID     *uint64           `json:"assignee_id"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Creator        *UserDTO          `json:"creator,omitempty"`
	Assignee       *UserDTO          `json:"assignee,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []DealTaskDTO `json:"tasks"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}

// toUserDTOPtr converts an optional preloaded user
func toUserDTOPtr(user *models.User) *UserDTO {
	if user == nil || user.ID == 0 {
		return nil
	}
	dto := ToUserDTO(*user)
	return &dto
}

// ToOrganizationDTO converts an Organization model to OrganizationDTO
func ToOrganizationDTO(org models.Organization, includeInviteCode bool) OrganizationDTO {
	dto := OrganizationDTO{
		ID:   org.ID,
		Name: org.Name,
	}
	if includeInviteCode {
		dto.InviteCode = org.InviteCode
	}
	return dto
}

// ToDealTaskDTO converts a DealTask model to DealTaskDTO
func ToDealTaskDTO(task models.DealTask) DealTaskDTO {
	return DealTaskDTO{
		ID:             task.ID,
		DealID:         task.DealID,
		OrganizationID: task.OrganizationID,
		Title:          task.Title,
		Description:    task.Description,
		Status:         task.Status,
		DueDate:        task.DueDate,
		CompletedAt:    task.CompletedAt,
		CreatorID:      task.CreatorID,
		AssigneeID:     task.AssigneeID,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
		Creator:        toUserDTOPtr(&task.Creator),
		Assignee:       toUserDTOPtr(task.Assignee),
	}
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.DealTask, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]DealTaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToDealTaskDTO(task)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
