package repository

import (
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/database"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"gorm.io/gorm"
)

// GormActivityRepository is a GORM implementation of ActivityRepository
type GormActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

func (r *GormActivityRepository) Create(activity *models.DealActivity) error {
	return r.db.Omit("Creator").Create(activity).Error
}

func (r *GormActivityRepository) FindByID(organizationID, id uint64) (*models.DealActivity, error) {
	var activity models.DealActivity
	if err := r.db.Scopes(database.ScopeOrganization(organizationID)).First(&activity, id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListByDeal lists a deal's timeline, newest first
func (r *GormActivityRepository) ListByDeal(organizationID, dealID uint64) ([]models.DealActivity, error) {
	var activities []models.DealActivity
	err := r.db.Preload("Creator").
		Scopes(database.ScopeOrganization(organizationID)).
		Where("deal_id = ?", dealID).
		Order("created_at DESC, id DESC").
		Find(&activities).Error
	return activities, err
}

// ListByOrganization lists activities created since the given time, or all when since is nil
func (r *GormActivityRepository) ListByOrganization(organizationID uint64, since *time.Time) ([]models.DealActivity, error) {
	var activities []models.DealActivity
	query := r.db.Scopes(database.ScopeOrganization(organizationID))
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	err := query.Order("created_at ASC").Find(&activities).Error
	return activities, err
}

func (r *GormActivityRepository) Update(activity *models.DealActivity) error {
	return r.db.Omit("Creator").Save(activity).Error
}

func (r *GormActivityRepository) Delete(organizationID, id uint64) error {
	result := r.db.Scopes(database.ScopeOrganization(organizationID)).Delete(&models.DealActivity{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
