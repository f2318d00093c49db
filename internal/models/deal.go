package models

import "time"

// DealStage is a column of the sales pipeline.
type DealStage string

const (
	StageQualified   DealStage = "qualified"
	StageProposal    DealStage = "proposal"
	StageNegotiation DealStage = "negotiation"
	StageWon         DealStage = "won"
	StageLost        DealStage = "lost"
)

type Deal struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	OrganizationID uint64     `gorm:"not null;index:idx_deals_org_stage_position,priority:1" json:"organization_id"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Stage          DealStage  `gorm:"type:varchar(20);not null;default:'qualified';index:idx_deals_org_stage_position,priority:2" json:"stage"`
	Position       int        `gorm:"not null;default:0;index:idx_deals_org_stage_position,priority:3" json:"position"`
	Value          *float64   `gorm:"type:decimal(14,2)" json:"value"`
	Currency       string     `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	OwnerID        *uint64    `gorm:"index" json:"owner_id"`
	ContactID      *uint64    `gorm:"index" json:"contact_id"`
	CompanyID      *uint64    `gorm:"index" json:"company_id"`
	Notes          string     `gorm:"type:text" json:"notes"`
	ExpectedClose  *time.Time `json:"expected_close_date"`
	CloseDate      *time.Time `json:"close_date"`
	LostReason     string     `gorm:"type:varchar(500)" json:"lost_reason"`
	CreatedBy      uint64     `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Owner   *User    `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Contact *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}
