package repository

import (
	"github.com/yukikurage/crm-pipeline-api/internal/database"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/utils"
	"gorm.io/gorm"
)

// GormCompanyRepository is a GORM implementation of CompanyRepository
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &GormCompanyRepository{db: db}
}

func (r *GormCompanyRepository) Create(company *models.Company) error {
	return r.db.Create(company).Error
}

func (r *GormCompanyRepository) FindByID(organizationID, id uint64) (*models.Company, error) {
	var company models.Company
	if err := r.db.Scopes(database.ScopeOrganization(organizationID)).First(&company, id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *GormCompanyRepository) List(organizationID uint64, filter ListFilter) ([]models.Company, int64, error) {
	query := r.db.Model(&models.Company{}).Scopes(database.ScopeOrganization(organizationID))
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("(name LIKE ? OR domain LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companies []models.Company
	listQuery := query.Order("name ASC, id ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(pageParams(filter)))
	}
	if err := listQuery.Find(&companies).Error; err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

func (r *GormCompanyRepository) Update(company *models.Company) error {
	return r.db.Save(company).Error
}

// Delete removes the company and detaches its contacts and deals
func (r *GormCompanyRepository) Delete(organizationID, id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Contact{}, &models.Deal{}} {
			if err := tx.Model(model).
				Scopes(database.ScopeOrganization(organizationID)).
				Where("company_id = ?", id).
				Update("company_id", nil).Error; err != nil {
				return err
			}
		}

		result := tx.Scopes(database.ScopeOrganization(organizationID)).Delete(&models.Company{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func pageParams(filter ListFilter) utils.PaginationParams {
	return utils.PaginationParams{
		Page:   filter.Page,
		Limit:  filter.PageSize,
		Offset: (filter.Page - 1) * filter.PageSize,
	}
}
