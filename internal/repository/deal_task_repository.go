package repository

import (
	"github.com/yukikurage/crm-pipeline-api/internal/database"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"gorm.io/gorm"
)

// GormDealTaskRepository is a GORM implementation of DealTaskRepository
type GormDealTaskRepository struct {
	db *gorm.DB
}

// NewDealTaskRepository creates a new DealTaskRepository
func NewDealTaskRepository(db *gorm.DB) DealTaskRepository {
	return &GormDealTaskRepository{db: db}
}

// Create creates a new task
func (r *GormDealTaskRepository) Create(task *models.DealTask) error {
	return r.db.Omit("Creator", "Assignee", "Deal").Create(task).Error
}

// CreateBatch creates several tasks in one statement
func (r *GormDealTaskRepository) CreateBatch(tasks []models.DealTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.Omit("Creator", "Assignee", "Deal").Create(&tasks).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormDealTaskRepository) FindByID(organizationID, id uint64, preload ...string) (*models.DealTask, error) {
	var task models.DealTask
	query := r.db.Scopes(database.ScopeOrganization(organizationID))

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormDealTaskRepository) List(filter TaskFilter) ([]models.DealTask, int64, error) {
	var tasks []models.DealTask

	query := r.db.Model(&models.DealTask{}).Where("deal_tasks.organization_id = ?", filter.OrganizationID)

	// Apply filters
	if filter.DealID != nil {
		query = query.Where("deal_tasks.deal_id = ?", *filter.DealID)
	}
	if filter.Status != nil {
		query = query.Where("deal_tasks.status = ?", *filter.Status)
	}
	if filter.CreatorID != nil {
		query = query.Where("deal_tasks.creator_id = ?", *filter.CreatorID)
	}
	if filter.AssigneeID != nil {
		query = query.Where("deal_tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("deal_tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("deal_tasks.due_date < ?", *filter.DueDateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	if filter.SortByDueDate {
		listQuery = listQuery.Order("CASE WHEN deal_tasks.due_date IS NULL THEN 1 ELSE 0 END, deal_tasks.due_date ASC")
	} else {
		listQuery = listQuery.Order("deal_tasks.created_at DESC, deal_tasks.id DESC")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Creator").Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormDealTaskRepository) Update(task *models.DealTask) error {
	return r.db.Omit("Creator", "Assignee", "Deal").Save(task).Error
}

// Delete deletes a task
func (r *GormDealTaskRepository) Delete(organizationID, id uint64) error {
	result := r.db.Scopes(database.ScopeOrganization(organizationID)).Delete(&models.DealTask{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsMember reports whether the user belongs to the organization
func (r *GormDealTaskRepository) IsMember(organizationID, userID uint64) (bool, error) {
	var count int64

	err := r.db.Model(&models.User{}).
		Joins("JOIN organization_members ON users.id = organization_members.user_id").
		Where("organization_members.organization_id = ? AND users.id = ?", organizationID, userID).
		Count(&count).Error

	return count > 0, err
}
