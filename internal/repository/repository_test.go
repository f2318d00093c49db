package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/crm-pipeline-api/internal/database"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "hashed"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createOrganization(t *testing.T, db *gorm.DB, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name, InviteCode: name + "-code"}
	require.NoError(t, db.Create(org).Error)
	return org
}

func addMember(t *testing.T, db *gorm.DB, orgID, userID uint64, role models.OrganizationRole) {
	t.Helper()
	require.NoError(t, db.Create(&models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		JoinedAt:       time.Now(),
	}).Error)
}

func createDeal(t *testing.T, repo DealRepository, orgID uint64, title string, stage models.DealStage) *models.Deal {
	t.Helper()
	deal := &models.Deal{OrganizationID: orgID, Title: title, Stage: stage, Currency: "USD", CreatedBy: 1}
	require.NoError(t, repo.Create(deal))
	return deal
}

func columnIDs(t *testing.T, repo DealRepository, orgID uint64, stage models.DealStage) []uint64 {
	t.Helper()
	deals, err := repo.ListColumn(orgID, stage)
	require.NoError(t, err)
	ids := make([]uint64, len(deals))
	for i, d := range deals {
		ids[i] = d.ID
	}
	return ids
}
