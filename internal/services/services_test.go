package services

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/database"
	"github.com/yukikurage/crm-pipeline-api/internal/metrics"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db      *gorm.DB
	metrics *metrics.Metrics

	orgRepo      repository.OrganizationRepository
	dealRepo     repository.DealRepository
	activityRepo repository.ActivityRepository
	taskRepo     repository.DealTaskRepository
	companyRepo  repository.CompanyRepository
	contactRepo  repository.ContactRepository

	orgs       *OrganizationService
	deals      *DealService
	activities *ActivityService
	tasks      *DealTaskService
	companies  *CompanyService
	contacts   *ContactService
	dashboard  *DashboardService
}

func setupServiceTestEnv(t *testing.T) *serviceTestEnv {
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

	env := &serviceTestEnv{
		db:           db,
		metrics:      metrics.New(prometheus.NewRegistry()),
		orgRepo:      repository.NewOrganizationRepository(db),
		dealRepo:     repository.NewDealRepository(db),
		activityRepo: repository.NewActivityRepository(db),
		taskRepo:     repository.NewDealTaskRepository(db),
		companyRepo:  repository.NewCompanyRepository(db),
		contactRepo:  repository.NewContactRepository(db),
	}
	env.orgs = NewOrganizationService(env.orgRepo, repository.NewInvitationRepository(db), repository.NewUserRepository(db))
	env.deals = NewDealService(env.dealRepo, env.orgRepo, env.contactRepo, env.companyRepo, env.metrics)
	env.activities = NewActivityService(env.activityRepo, env.dealRepo)
	env.tasks = NewDealTaskService(env.taskRepo, env.dealRepo, nil)
	env.companies = NewCompanyService(env.companyRepo)
	env.contacts = NewContactService(env.contactRepo, env.companyRepo)
	env.dashboard = NewDashboardService(env.dealRepo, env.activityRepo, env.taskRepo, 0)
	return env
}

func (e *serviceTestEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "hashed"}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *serviceTestEnv) createOrganization(t *testing.T, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name, InviteCode: name + "-code"}
	require.NoError(t, e.db.Create(org).Error)
	return org
}

// member adds the user to the organization and returns the AuthContext the
// gate would produce for them.
func (e *serviceTestEnv) member(t *testing.T, org *models.Organization, user *models.User, role models.OrganizationRole) *authz.AuthContext {
	t.Helper()
	require.NoError(t, e.db.Create(&models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           role,
		JoinedAt:       time.Now(),
	}).Error)
	return &authz.AuthContext{OrganizationID: org.ID, UserID: user.ID, Role: role}
}

func (e *serviceTestEnv) createDeal(t *testing.T, auth *authz.AuthContext, title string, stage models.DealStage) *models.Deal {
	t.Helper()
	deal := &models.Deal{
		OrganizationID: auth.OrganizationID,
		Title:          title,
		Stage:          stage,
		Currency:       "USD",
		CreatedBy:      auth.UserID,
	}
	require.NoError(t, e.dealRepo.Create(deal))
	return deal
}

func (e *serviceTestEnv) column(t *testing.T, orgID uint64, stage models.DealStage) []uint64 {
	t.Helper()
	deals, err := e.dealRepo.ListColumn(orgID, stage)
	require.NoError(t, err)
	ids := make([]uint64, len(deals))
	for i, d := range deals {
		ids[i] = d.ID
	}
	return ids
}

func (e *serviceTestEnv) countActivities(t *testing.T, dealID uint64) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.DealActivity{}).Where("deal_id = ?", dealID).Count(&count).Error)
	return count
}

func ptr[T any](v T) *T {
	return &v
}
