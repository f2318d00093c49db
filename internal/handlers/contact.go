package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/crm-pipeline-api/internal/errors"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
	"github.com/yukikurage/crm-pipeline-api/internal/services"
	"github.com/yukikurage/crm-pipeline-api/internal/utils"
)

type ContactHandler struct {
	contactService *services.ContactService
}

func NewContactHandler(contactService *services.ContactService) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
	}
}

type contactRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Title     *string `json:"title"`
	CompanyID *uint64 `json:"company_id"`
}

func (r contactRequest) input() services.ContactInput {
	return services.ContactInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Title:     r.Title,
		CompanyID: r.CompanyID,
	}
}

// ListContacts supports ?search= and ?company_id= filters
func (h *ContactHandler) ListContacts(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	companyID, ok := parseOptionalUint64Query(c, "company_id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	contacts, total, err := h.contactService.ListContacts(auth, repository.ListFilter{
		Search:    c.Query("search"),
		CompanyID: companyID,
		Page:      params.Page,
		PageSize:  params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{
		"contacts": contacts,
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	})
}

func (h *ContactHandler) GetContact(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	contactID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	contact, err := h.contactService.GetContact(auth, contactID)
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"contact": contact})
}

func (h *ContactHandler) CreateContact(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	contact, err := h.contactService.CreateContact(auth, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusCreated, gin.H{"contact": contact})
}

// UpdateContact edits a contact. company_id 0 unlinks the company.
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	contactID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	contact, err := h.contactService.UpdateContact(auth, contactID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"contact": contact})
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	auth, ok := requireAuthContext(c)
	if !ok {
		return
	}
	contactID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.contactService.DeleteContact(auth, contactID); err != nil {
		respondError(c, err)
		return
	}

	apierrors.Success(c, http.StatusOK, gin.H{"message": "Contact deleted successfully"})
}
