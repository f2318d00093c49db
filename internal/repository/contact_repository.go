package repository

import (
	"github.com/yukikurage/crm-pipeline-api/internal/database"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"gorm.io/gorm"
)

// GormContactRepository is a GORM implementation of ContactRepository
type GormContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &GormContactRepository{db: db}
}

func (r *GormContactRepository) Create(contact *models.Contact) error {
	return r.db.Create(contact).Error
}

func (r *GormContactRepository) FindByID(organizationID, id uint64) (*models.Contact, error) {
	var contact models.Contact
	if err := r.db.Preload("Company").
		Scopes(database.ScopeOrganization(organizationID)).
		First(&contact, id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *GormContactRepository) List(organizationID uint64, filter ListFilter) ([]models.Contact, int64, error) {
	query := r.db.Model(&models.Contact{}).Scopes(database.ScopeOrganization(organizationID))
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(first_name LIKE ? OR last_name LIKE ? OR email LIKE ?)", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contacts []models.Contact
	listQuery := query.Preload("Company").Order("last_name ASC, first_name ASC, id ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(pageParams(filter)))
	}
	if err := listQuery.Find(&contacts).Error; err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

func (r *GormContactRepository) Update(contact *models.Contact) error {
	return r.db.Omit("Company").Save(contact).Error
}

// Delete removes the contact and detaches its deals
func (r *GormContactRepository) Delete(organizationID, id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Deal{}).
			Scopes(database.ScopeOrganization(organizationID)).
			Where("contact_id = ?", id).
			Update("contact_id", nil).Error; err != nil {
			return err
		}

		result := tx.Scopes(database.ScopeOrganization(organizationID)).Delete(&models.Contact{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
