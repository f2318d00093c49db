package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/crm-pipeline-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// ScopeOrganization restricts a query to one tenant. Every query on
// tenant-owned tables goes through it.
func ScopeOrganization(orgID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("organization_id = ?", orgID)
	}
}
