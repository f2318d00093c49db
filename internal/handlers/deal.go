package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/crm-pipeline-api/internal/dto"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
	"github.com/yukikurage/crm-pipeline-api/internal/pipeline"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
)

type DealHandler struct {
	dealService *services.DealService
}

func NewDealHandler(dealService *services.DealService) *DealHandler {
	return &DealHandler{
		dealService: dealService,
	}
}

// GetBoard returns every stage column with its deals in position order
func (h *DealHandler) GetBoard(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	columns, err := h.dealService.Board(auth)
	if err != nil {
		respondError(c, err)
		return
	}

	board := make([]dto.BoardColumnDTO, len(columns))
	for i, column := range columns {
		board[i] = dto.BoardColumnDTO{
			Stage:      column.Stage,
			Label:      column.Label,
			TotalValue: column.Total,
			Deals:      dto.ToDealDTOs(column.Deals),
		}
	}

	apierrors.Success(c, http.StatusOK, gin.H{"columns": board})
}

// GetDeal returns a single deal with its owner, contact and company
func (h *DealHandler) GetDeal(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	deal, err := h.dealService.GetDeal(auth, dealID)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"deal": dto.ToDealDTO(*deal)})
}

// CreateDeal adds a deal at the end of its stage column
func (h *DealHandler) CreateDeal(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	type CreateDealRequest struct {
		Title         string   `json:"title" binding:"required"`
		Value         *float64 `json:"value"`
		Currency      string   `json:"currency"`
		Stage         string   `json:"stage"`
		OwnerID       *uint64  `json:"owner_id"`
		ContactID     *uint64  `json:"contact_id"`
		CompanyID     *uint64  `json:"company_id"`
		Notes         string   `json:"notes"`
		ExpectedClose string   `json:"expected_close_date"`
		CloseDate     string   `json:"close_date"`
		LostReason    string   `json:"lost_reason"`
	}

	var req CreateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	expectedClose, ok := bindDate(c, "expected_close_date", req.ExpectedClose)
	if !ok {
		return
	}
	closeDate, ok := bindDate(c, "close_date", req.CloseDate)
	if !ok {
		return
	}

	deal, err := h.dealService.CreateDeal(auth, services.CreateDealInput{
		Title:         req.Title,
		Value:         req.Value,
		Currency:      req.Currency,
		Stage:         req.Stage,
		OwnerID:       req.OwnerID,
		ContactID:     req.ContactID,
		CompanyID:     req.CompanyID,
		Notes:         req.Notes,
		ExpectedClose: expectedClose,
		CloseDate:     closeDate,
		LostReason:    req.LostReason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusCreated, gin.H{"deal": dto.ToDealDTO(*deal)})
}

// UpdateDeal edits deal fields other than stage and position.
// A zero owner, contact or company id clears the reference.
func (h *DealHandler) UpdateDeal(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateDealRequest struct {
		Title              *string  `json:"title"`
		Value              *float64 `json:"value"`
		ClearValue         bool     `json:"clear_value"`
		Currency           *string  `json:"currency"`
		OwnerID            *uint64  `json:"owner_id"`
		ContactID          *uint64  `json:"contact_id"`
		CompanyID          *uint64  `json:"company_id"`
		Notes              *string  `json:"notes"`
		ExpectedClose      *string  `json:"expected_close_date"`
		ClearExpectedClose bool     `json:"clear_expected_close_date"`
	}

	var req UpdateDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateDealInput{
		Title:              req.Title,
		Value:              req.Value,
		ClearValue:         req.ClearValue,
		Currency:           req.Currency,
		OwnerID:            req.OwnerID,
		ContactID:          req.ContactID,
		CompanyID:          req.CompanyID,
		Notes:              req.Notes,
		ClearExpectedClose: req.ClearExpectedClose,
	}
	if req.ExpectedClose != nil {
		if input.ExpectedClose, ok = bindDate(c, "expected_close_date", *req.ExpectedClose); !ok {
			return
		}
	}

	deal, err := h.dealService.UpdateDeal(auth, dealID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"deal": dto.ToDealDTO(*deal)})
}

// UpdateDealStage moves a deal to another stage. Won needs close_date and
// lost needs lost_reason; both are the confirmation a client collects first.
func (h *DealHandler) UpdateDealStage(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateStageRequest struct {
		Stage      string `json:"stage" binding:"required"`
		CloseDate  string `json:"close_date"`
		LostReason string `json:"lost_reason"`
	}

	var req UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	closeDate, ok := bindDate(c, "close_date", req.CloseDate)
	if !ok {
		return
	}

	deal, changed, err := h.dealService.UpdateDealStage(auth, dealID, req.Stage, pipeline.TransitionPayload{
		CloseDate:  closeDate,
		LostReason: req.LostReason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"deal":    dto.ToDealDTO(*deal),
		"changed": changed,
	})
}

// MoveDeal places a deal in a column, either by the full target order
// (ordered_ids) or by an index in the column.
func (h *DealHandler) MoveDeal(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type MoveDealRequest struct {
		Stage      string   `json:"stage" binding:"required"`
		OrderedIDs []uint64 `json:"ordered_ids"`
		Index      *int     `json:"index"`
	}

	var req MoveDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	deal, changed, err := h.dealService.MoveDeal(auth, services.MoveDealInput{
		DealID:     dealID,
		Stage:      req.Stage,
		OrderedIDs: req.OrderedIDs,
		Index:      req.Index,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"deal":    dto.ToDealDTO(*deal),
		"changed": changed,
	})
}

// DeleteDeal removes a deal with its activities and tasks
func (h *DealHandler) DeleteDeal(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.dealService.DeleteDeal(auth, dealID); err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"message": "Deal deleted successfully"})
}

// bindDate accepts either a calendar date or an RFC 3339 timestamp.
// An empty value is nil.
func bindDate(c *gin.Context, field, raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	apierrors.BadRequest(c, "Invalid "+field)
	return nil, false
}
