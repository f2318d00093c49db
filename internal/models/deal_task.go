package models

import "time"

type TaskStatus string

const (
	TaskStatusTodo TaskStatus = "TODO"
	TaskStatusDone TaskStatus = "DONE"
)

type DealTask struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	DealID         uint64     `gorm:"not null;index" json:"deal_id"`
	OrganizationID uint64     `gorm:"not null;index" json:"organization_id"`
	Title          string     `gorm:"not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Status         TaskStatus `gorm:"type:varchar(20);not null;default:'TODO'" json:"status"`
	DueDate        *time.Time `gorm:"index" json:"due_date"`
	CreatorID      uint64     `gorm:"not null" json:"creator_id"`
	AssigneeID     *uint64    `gorm:"index" json:"assignee_id"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Creator  User  `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Assignee *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Deal     *Deal `gorm:"foreignKey:DealID" json:"deal,omitempty"`
}
