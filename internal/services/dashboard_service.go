package services

import (
	"fmt"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/dashboard"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
)

// DashboardService assembles the organization's dashboard
type DashboardService struct {
	dealRepo     repository.DealRepository
	activityRepo repository.ActivityRepository
	taskRepo     repository.DealTaskRepository
	staleDays    int
	now          func() time.Time
}

// Dashboard is the payload of the dashboard view
type Dashboard struct {
	KPIs       dashboard.KPIs             `json:"kpis"`
	Pipeline   []dashboard.PipelineBucket `json:"pipeline"`
	StaleDeals []dashboard.StaleDeal      `json:"stale_deals"`
	StaleDays  int                        `json:"stale_days"`
}

// NewDashboardService creates a new DashboardService. A non-positive
// staleDays falls back to the default threshold.
func NewDashboardService(
	dealRepo repository.DealRepository,
	activityRepo repository.ActivityRepository,
	taskRepo repository.DealTaskRepository,
	staleDays int,
) *DashboardService {
	if staleDays <= 0 {
		staleDays = constants.DefaultStaleDays
	}
	return &DashboardService{
		dealRepo:     dealRepo,
		activityRepo: activityRepo,
		taskRepo:     taskRepo,
		staleDays:    staleDays,
		now:          time.Now,
	}
}

// Dashboard loads the organization's deals, activities and tasks and derives
// the KPIs, the pipeline chart and the stale deal list from them.
func (s *DashboardService) Dashboard(auth *authz.AuthContext) (*Dashboard, error) {
	if err := authorize(auth, authz.PermDashboardView); err != nil {
		return nil, err
	}

	deals, err := s.dealRepo.List(auth.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	activities, err := s.activityRepo.ListByOrganization(auth.OrganizationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	todo := models.TaskStatusTodo
	tasks, _, err := s.taskRepo.List(repository.TaskFilter{OrganizationID: auth.OrganizationID, Status: &todo})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := s.now()
	return &Dashboard{
		KPIs:       dashboard.Summarize(deals, tasks, now),
		Pipeline:   dashboard.PipelineChartData(deals),
		StaleDeals: dashboard.StaleDeals(deals, activities, s.staleDays, now),
		StaleDays:  s.staleDays,
	}, nil
}
