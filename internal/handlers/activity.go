package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/crm-pipeline-api/internal/dto"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
)

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
	}
}

// ListActivities returns a deal's timeline, newest first
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	activities, err := h.activityService.ListActivities(auth, dealID)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"activities": dto.ToActivityDTOs(activities)})
}

// CreateActivity logs a note, call, email or meeting on a deal
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	dealID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type CreateActivityRequest struct {
		ActivityType string `json:"activity_type" binding:"required"`
		Content      string `json:"content" binding:"required"`
	}

	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	activity, err := h.activityService.CreateActivity(auth, services.CreateActivityInput{
		DealID:       dealID,
		ActivityType: req.ActivityType,
		Content:      req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusCreated, gin.H{"activity": dto.ToActivityDTO(*activity)})
}

// UpdateActivity edits an activity the caller wrote
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	activityID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateActivityRequest struct {
		ActivityType *string `json:"activity_type"`
		Content      *string `json:"content"`
	}

	var req UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	activity, err := h.activityService.UpdateActivity(auth, activityID, services.UpdateActivityInput{
		ActivityType: req.ActivityType,
		Content:      req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"activity": dto.ToActivityDTO(*activity)})
}

func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	activityID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.activityService.DeleteActivity(auth, activityID); err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"message": "Activity deleted successfully"})
}
