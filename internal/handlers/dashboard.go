package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard returns KPIs, the per-stage pipeline chart and stale deals
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	dashboard, err := h.dashboardService.Dashboard(auth)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"dashboard": dashboard})
}
