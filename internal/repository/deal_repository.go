package repository

import (
	"github.com/yukikurage/crm-pipeline-api/internal/database"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/pipeline"
	"gorm.io/gorm"
)

// GormDealRepository is a GORM implementation of DealRepository
type GormDealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new DealRepository
func NewDealRepository(db *gorm.DB) DealRepository {
	return &GormDealRepository{db: db}
}

// editableDealFields are the columns Update may write.
var editableDealFields = []string{
	"title", "value", "currency", "owner_id", "contact_id", "company_id", "notes", "expected_close", "updated_at",
}

// Create appends the deal to the end of its stage column
func (r *GormDealRepository) Create(deal *models.Deal) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		position, err := nextPosition(tx, deal.OrganizationID, deal.Stage, 0)
		if err != nil {
			return err
		}
		deal.Position = position
		return tx.Omit("Owner", "Contact", "Company").Create(deal).Error
	})
}

// FindByID finds a deal with optional preloading
func (r *GormDealRepository) FindByID(organizationID, id uint64, preload ...string) (*models.Deal, error) {
	var deal models.Deal
	query := r.db.Scopes(database.ScopeOrganization(organizationID))

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&deal, id).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

// FindByIDs returns the deals among ids that belong to the organization
func (r *GormDealRepository) FindByIDs(organizationID uint64, ids []uint64) ([]models.Deal, error) {
	if len(ids) == 0 {
		return []models.Deal{}, nil
	}
	var deals []models.Deal
	err := r.db.Scopes(database.ScopeOrganization(organizationID)).
		Where("id IN ?", ids).
		Find(&deals).Error
	return deals, err
}

// List returns every deal ordered by stage column then position
func (r *GormDealRepository) List(organizationID uint64) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.Scopes(database.ScopeOrganization(organizationID)).
		Order("stage ASC, position ASC, id ASC").
		Find(&deals).Error
	return deals, err
}

// ListColumn returns one stage column ordered by position
func (r *GormDealRepository) ListColumn(organizationID uint64, stage models.DealStage) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.Scopes(database.ScopeOrganization(organizationID)).
		Where("stage = ?", stage).
		Order("position ASC, id ASC").
		Find(&deals).Error
	return deals, err
}

// Update saves the editable fields
func (r *GormDealRepository) Update(deal *models.Deal) error {
	result := r.db.Model(deal).
		Scopes(database.ScopeOrganization(deal.OrganizationID)).
		Select(editableDealFields).
		Updates(deal)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the deal with its activities and tasks
func (r *GormDealRepository) Delete(organizationID, id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		scoped := database.ScopeOrganization(organizationID)

		if err := tx.Scopes(scoped).Where("deal_id = ?", id).Delete(&models.DealTask{}).Error; err != nil {
			return err
		}
		if err := tx.Scopes(scoped).Where("deal_id = ?", id).Delete(&models.DealActivity{}).Error; err != nil {
			return err
		}

		result := tx.Scopes(scoped).Delete(&models.Deal{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// TransitionStage writes the deal's new stage at the end of the destination
// column together with its stage_change activity. Either both land or neither.
func (r *GormDealRepository) TransitionStage(deal *models.Deal, activity *models.DealActivity) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		position, err := nextPosition(tx, deal.OrganizationID, deal.Stage, deal.ID)
		if err != nil {
			return err
		}

		result := tx.Model(&models.Deal{}).
			Scopes(database.ScopeOrganization(deal.OrganizationID)).
			Where("id = ?", deal.ID).
			Updates(map[string]interface{}{
				"stage":       deal.Stage,
				"position":    position,
				"close_date":  deal.CloseDate,
				"lost_reason": deal.LostReason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		deal.Position = position
		return nil
	})
}

// ReorderColumn rewrites the positions of a destination column
func (r *GormDealRepository) ReorderColumn(organizationID uint64, stage models.DealStage, placements []pipeline.Placement, moved *models.Deal, activity *models.DealActivity) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		scoped := database.ScopeOrganization(organizationID)

		if activity != nil {
			result := tx.Model(&models.Deal{}).
				Scopes(scoped).
				Where("id = ?", moved.ID).
				Updates(map[string]interface{}{
					"stage":       stage,
					"close_date":  moved.CloseDate,
					"lost_reason": moved.LostReason,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrStaleColumn
			}
		}

		ids := make([]uint64, len(placements))
		for i, p := range placements {
			ids[i] = p.DealID
		}
		var inColumn int64
		if err := tx.Model(&models.Deal{}).
			Scopes(scoped).
			Where("stage = ? AND id IN ?", stage, ids).
			Count(&inColumn).Error; err != nil {
			return err
		}
		if int(inColumn) != len(placements) {
			return ErrStaleColumn
		}
		var columnSize int64
		if err := tx.Model(&models.Deal{}).
			Scopes(scoped).
			Where("stage = ?", stage).
			Count(&columnSize).Error; err != nil {
			return err
		}
		if int(columnSize) != len(placements) {
			return ErrStaleColumn
		}

		for _, p := range placements {
			if err := tx.Model(&models.Deal{}).
				Scopes(scoped).
				Where("id = ?", p.DealID).
				Update("position", p.Position).Error; err != nil {
				return err
			}
		}

		if activity != nil {
			if err := tx.Create(activity).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// nextPosition is one past the last position of a column, ignoring excludeID.
func nextPosition(tx *gorm.DB, organizationID uint64, stage models.DealStage, excludeID uint64) (int, error) {
	var next int
	query := tx.Model(&models.Deal{}).
		Scopes(database.ScopeOrganization(organizationID)).
		Where("stage = ?", stage)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Select("COALESCE(MAX(position), -1) + 1").Scan(&next).Error
	return next, err
}
