package database

import (
	"fmt"

	"github.com/yukikurage/crm-pipeline-api/internal/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns string
}

// extraIndexes are the lookups the model tags don't already declare.
var extraIndexes = []index{
	// Dashboard and stale-deal scans
	{"deals", "idx_deals_org_updated_at", "organization_id, updated_at"},
	{"deal_activities", "idx_deal_activities_deal_created", "deal_id, created_at"},
	{"deal_tasks", "idx_deal_tasks_org_status", "organization_id, status"},

	// Membership lookups by the authorization gate
	{"organization_members", "idx_org_members_user_id", "user_id"},
	{"organization_members", "idx_org_members_org_role", "organization_id, role"},

	{"companies", "idx_companies_org_name", "organization_id, name"},
	{"contacts", "idx_contacts_org_last_name", "organization_id, last_name"},
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range extraIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		logger.L().Info("created index",
			zap.String("index", idx.name),
			zap.String("table", idx.table),
			zap.String("columns", idx.columns),
		)
	}

	return nil
}

// MigrateDatabase runs the steps that follow AutoMigrate
func MigrateDatabase(db *gorm.DB) error {
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
