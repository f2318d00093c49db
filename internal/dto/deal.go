package dto

import (
	"encoding/json"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

// DealDTO represents a deal in API responses
type DealDTO struct {
	ID            uint64           `json:"id"`
	Title         string           `json:"title"`
	Stage         models.DealStage `json:"stage"`
	Position      int              `json:"position"`
	Value         *float64         `json:"value"`
	Currency      string           `json:"currency"`
	OwnerID       *uint64          `json:"owner_id"`
	ContactID     *uint64          `json:"contact_id"`
	CompanyID     *uint64          `json:"company_id"`
	Notes         string           `json:"notes"`
	ExpectedClose *time.Time       `json:"expected_close_date"`
	CloseDate     *time.Time       `json:"close_date"`
	LostReason    string           `json:"lost_reason,omitempty"`
	CreatedBy     uint64           `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Owner         *UserDTO         `json:"owner,omitempty"`
	Contact       *models.Contact  `json:"contact,omitempty"`
	Company       *models.Company  `json:"company,omitempty"`
}

// BoardColumnDTO is one stage of the pipeline board
type BoardColumnDTO struct {
	Stage      models.DealStage `json:"stage"`
	Label      string           `json:"label"`
	TotalValue float64          `json:"total_value"`
	Deals      []DealDTO        `json:"deals"`
}

// ActivityDTO represents a timeline entry in API responses
type ActivityDTO struct {
	ID           uint64              `json:"id"`
	DealID       uint64              `json:"deal_id"`
	ActivityType models.ActivityType `json:"activity_type"`
	Content      string              `json:"content"`
	Metadata     json.RawMessage     `json:"metadata,omitempty"`
	CreatedBy    uint64              `json:"created_by"`
	Creator      *UserDTO            `json:"creator,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ToDealDTO converts a Deal model to DealDTO
func ToDealDTO(deal models.Deal) DealDTO {
	return DealDTO{
		ID:            deal.ID,
		Title:         deal.Title,
		Stage:         deal.Stage,
		Position:      deal.Position,
		Value:         deal.Value,
		Currency:      deal.Currency,
		OwnerID:       deal.OwnerID,
		ContactID:     deal.ContactID,
		CompanyID:     deal.CompanyID,
		Notes:         deal.Notes,
		ExpectedClose: deal.ExpectedClose,
		CloseDate:     deal.CloseDate,
		LostReason:    deal.LostReason,
		CreatedBy:     deal.CreatedBy,
		CreatedAt:     deal.CreatedAt,
		UpdatedAt:     deal.UpdatedAt,
		Owner:         toUserDTOPtr(deal.Owner),
		Contact:       deal.Contact,
		Company:       deal.Company,
	}
}

// ToDealDTOs converts a slice of deals, never returning nil
func ToDealDTOs(deals []models.Deal) []DealDTO {
	out := make([]DealDTO, len(deals))
	for i, d := range deals {
		out[i] = ToDealDTO(d)
	}
	return out
}

// ToActivityDTO converts a DealActivity model to ActivityDTO
func ToActivityDTO(activity models.DealActivity) ActivityDTO {
	dto := ActivityDTO{
		ID:           activity.ID,
		DealID:       activity.DealID,
		ActivityType: activity.ActivityType,
		Content:      activity.Content,
		CreatedBy:    activity.CreatedBy,
		Creator:      toUserDTOPtr(activity.Creator),
		CreatedAt:    activity.CreatedAt,
		UpdatedAt:    activity.UpdatedAt,
	}
	if len(activity.Metadata) > 0 {
		dto.Metadata = json.RawMessage(activity.Metadata)
	}
	return dto
}

// ToActivityDTOs converts a slice of activities
func ToActivityDTOs(activities []models.DealActivity) []ActivityDTO {
	out := make([]ActivityDTO, len(activities))
	for i, a := range activities {
		out[i] = ToActivityDTO(a)
	}
	return out
}
