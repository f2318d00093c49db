package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
)

var (
	ErrActivityNotFound     = errors.New("activity not found")
	ErrInvalidActivityType  = errors.New("activity type must be one of note, call, email, meeting")
	ErrActivityContentEmpty = errors.New("activity content cannot be empty")
	ErrStageChangeImmutable = errors.New("stage change entries cannot be edited or deleted")
	ErrActivityNotAuthor    = errors.New("only the author or a manager can modify this activity")
)

// ActivityService manages the deal timeline
type ActivityService struct {
	activityRepo repository.ActivityRepository
	dealRepo     repository.DealRepository
}

// NewActivityService creates a new ActivityService
func NewActivityService(activityRepo repository.ActivityRepository, dealRepo repository.DealRepository) *ActivityService {
	return &ActivityService{activityRepo: activityRepo, dealRepo: dealRepo}
}

// CreateActivityInput represents input for logging an activity
type CreateActivityInput struct {
	DealID       uint64
	ActivityType string
	Content      string
}

// UpdateActivityInput represents input for editing an activity
type UpdateActivityInput struct {
	ActivityType *string
	Content      *string
}

// ListActivities returns a deal's timeline, newest first
func (s *ActivityService) ListActivities(auth *authz.AuthContext, dealID uint64) ([]models.DealActivity, error) {
	if err := authorize(auth, authz.PermDealView); err != nil {
		return nil, err
	}
	if _, err := s.dealRepo.FindByID(auth.OrganizationID, dealID); err != nil {
		return nil, lookupError(err, ErrDealNotFound, "deal")
	}

	activities, err := s.activityRepo.ListByDeal(auth.OrganizationID, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// CreateActivity logs a user-authored activity on a deal
func (s *ActivityService) CreateActivity(auth *authz.AuthContext, input CreateActivityInput) (*models.DealActivity, error) {
	if err := authorize(auth, authz.PermActivityCreate); err != nil {
		return nil, err
	}

	activityType, err := parseUserActivityType(input.ActivityType)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrActivityContentEmpty
	}

	if _, err := s.dealRepo.FindByID(auth.OrganizationID, input.DealID); err != nil {
		return nil, lookupError(err, ErrDealNotFound, "deal")
	}

	activity := &models.DealActivity{
		DealID:         input.DealID,
		OrganizationID: auth.OrganizationID,
		ActivityType:   activityType,
		Content:        content,
		CreatedBy:      auth.UserID,
	}
	if err := s.activityRepo.Create(activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	return activity, nil
}

// UpdateActivity edits a user-authored activity
func (s *ActivityService) UpdateActivity(auth *authz.AuthContext, activityID uint64, input UpdateActivityInput) (*models.DealActivity, error) {
	activity, err := s.modifiableActivity(auth, activityID)
	if err != nil {
		return nil, err
	}

	if input.ActivityType != nil {
		if activity.ActivityType, err = parseUserActivityType(*input.ActivityType); err != nil {
			return nil, err
		}
	}
	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return nil, ErrActivityContentEmpty
		}
		activity.Content = content
	}

	if err := s.activityRepo.Update(activity); err != nil {
		return nil, fmt.Errorf("failed to update activity: %w", err)
	}
	return activity, nil
}

// DeleteActivity removes a user-authored activity
func (s *ActivityService) DeleteActivity(auth *authz.AuthContext, activityID uint64) error {
	if _, err := s.modifiableActivity(auth, activityID); err != nil {
		return err
	}
	if err := s.activityRepo.Delete(auth.OrganizationID, activityID); err != nil {
		return lookupError(err, ErrActivityNotFound, "activity")
	}
	return nil
}

func (s *ActivityService) modifiableActivity(auth *authz.AuthContext, activityID uint64) (*models.DealActivity, error) {
	if err := authorize(auth, authz.PermActivityCreate); err != nil {
		return nil, err
	}

	activity, err := s.activityRepo.FindByID(auth.OrganizationID, activityID)
	if err != nil {
		return nil, lookupError(err, ErrActivityNotFound, "activity")
	}
	if activity.ActivityType == models.ActivityStageChange {
		return nil, ErrStageChangeImmutable
	}
	if activity.CreatedBy != auth.UserID && !auth.Can(authz.PermActivityManage) {
		return nil, ErrActivityNotAuthor
	}
	return activity, nil
}

func parseUserActivityType(raw string) (models.ActivityType, error) {
	switch t := models.ActivityType(strings.ToLower(strings.TrimSpace(raw))); t {
	case models.ActivityNote, models.ActivityCall, models.ActivityEmail, models.ActivityMeeting:
		return t, nil
	}
	return "", ErrInvalidActivityType
}
