package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
	"github.com/yukikurage/crm-pipeline-api/internal/utils"
)

type CompanyHandler struct {
	companyService *services.CompanyService
}

func NewCompanyHandler(companyService *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
	}
}

type companyRequest struct {
	Name     *string `json:"name"`
	Domain   *string `json:"domain"`
	Industry *string `json:"industry"`
	Notes    *string `json:"notes"`
}

func (r companyRequest) input() services.CompanyInput {
	return services.CompanyInput{
		Name:     r.Name,
		Domain:   r.Domain,
		Industry: r.Industry,
		Notes:    r.Notes,
	}
}

// ListCompanies returns a page of companies, optionally filtered by ?search=
func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	companies, total, err := h.companyService.ListCompanies(auth, repository.ListFilter{
		Search:   c.Query("search"),
		Page:     params.Page,
		PageSize: params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"companies": companies,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

func (h *CompanyHandler) GetCompany(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	companyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	company, err := h.companyService.GetCompany(auth, companyID)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"company": company})
}

func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.CreateCompany(auth, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusCreated, gin.H{"company": company})
}

func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	companyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	company, err := h.companyService.UpdateCompany(auth, companyID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"company": company})
}

// DeleteCompany removes a company; its contacts and deals are detached, not deleted
func (h *CompanyHandler) DeleteCompany(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	companyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.companyService.DeleteCompany(auth, companyID); err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"message": "Company deleted successfully"})
}
