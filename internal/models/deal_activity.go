package models

import (
	"time"

	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityNote        ActivityType = "note"
	ActivityCall        ActivityType = "call"
	ActivityEmail       ActivityType = "email"
	ActivityMeeting     ActivityType = "meeting"
	ActivityStageChange ActivityType = "stage_change"
)

// DealActivity is an entry in a deal's timeline. Stage-change entries are
// written by the system and are immutable.
type DealActivity struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	DealID         uint64         `gorm:"not null;index" json:"deal_id"`
	OrganizationID uint64         `gorm:"not null;index" json:"organization_id"`
	ActivityType   ActivityType   `gorm:"type:varchar(20);not null" json:"activity_type"`
	Content        string         `gorm:"type:text" json:"content"`
	Metadata       datatypes.JSON `json:"metadata"`
	CreatedBy      uint64         `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Creator *User `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

// StageChangeMetadata is stored on stage_change activities.
type StageChangeMetadata struct {
	FromStage DealStage `json:"from_stage"`
	ToStage   DealStage `json:"to_stage"`
}
