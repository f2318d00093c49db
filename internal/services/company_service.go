package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
)

var (
	ErrCompanyNotFound    = errors.New("company not found")
	ErrInvalidCompanyName = errors.New("company name is required and must be at most 255 characters")
)

// CompanyService handles company records
type CompanyService struct {
	companyRepo repository.CompanyRepository
}

// NewCompanyService creates a new CompanyService
func NewCompanyService(companyRepo repository.CompanyRepository) *CompanyService {
	return &CompanyService{companyRepo: companyRepo}
}

// CompanyInput carries company fields. Nil fields are left unchanged on update.
type CompanyInput struct {
	Name     *string
	Domain   *string
	Industry *string
	Notes    *string
}

// ListCompanies returns a page of companies, optionally filtered by name or domain
func (s *CompanyService) ListCompanies(auth *authz.AuthContext, filter repository.ListFilter) ([]models.Company, int64, error) {
	if err := authorize(auth, authz.PermDealView); err != nil {
		return nil, 0, err
	}

	companies, total, err := s.companyRepo.List(auth.OrganizationID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, total, nil
}

// GetCompany returns one company
func (s *CompanyService) GetCompany(auth *authz.AuthContext, companyID uint64) (*models.Company, error) {
	if err := authorize(auth, authz.PermDealView); err != nil {
		return nil, err
	}

	company, err := s.companyRepo.FindByID(auth.OrganizationID, companyID)
	if err != nil {
		return nil, lookupError(err, ErrCompanyNotFound, "company")
	}
	return company, nil
}

// CreateCompany creates a company
func (s *CompanyService) CreateCompany(auth *authz.AuthContext, input CompanyInput) (*models.Company, error) {
	if err := authorize(auth, authz.PermCompanyCreate); err != nil {
		return nil, err
	}
	if input.Name == nil {
		return nil, ErrInvalidCompanyName
	}

	company := &models.Company{OrganizationID: auth.OrganizationID, CreatedBy: auth.UserID}
	if err := applyCompanyInput(company, input); err != nil {
		return nil, err
	}

	if err := s.companyRepo.Create(company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}

// UpdateCompany changes a company's fields
func (s *CompanyService) UpdateCompany(auth *authz.AuthContext, companyID uint64, input CompanyInput) (*models.Company, error) {
	if err := authorize(auth, authz.PermCompanyEdit); err != nil {
		return nil, err
	}

	company, err := s.companyRepo.FindByID(auth.OrganizationID, companyID)
	if err != nil {
		return nil, lookupError(err, ErrCompanyNotFound, "company")
	}
	if err := applyCompanyInput(company, input); err != nil {
		return nil, err
	}

	if err := s.companyRepo.Update(company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}
	return company, nil
}

// DeleteCompany removes a company. Its contacts and deals stay, unlinked.
func (s *CompanyService) DeleteCompany(auth *authz.AuthContext, companyID uint64) error {
	if err := authorize(auth, authz.PermCompanyDelete); err != nil {
		return err
	}
	if err := s.companyRepo.Delete(auth.OrganizationID, companyID); err != nil {
		return lookupError(err, ErrCompanyNotFound, "company")
	}
	return nil
}

func applyCompanyInput(company *models.Company, input CompanyInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > constants.MaxNameLength {
			return ErrInvalidCompanyName
		}
		company.Name = name
	}
	if input.Domain != nil {
		company.Domain = strings.ToLower(strings.TrimSpace(*input.Domain))
	}
	if input.Industry != nil {
		company.Industry = strings.TrimSpace(*input.Industry)
	}
	if input.Notes != nil {
		company.Notes = *input.Notes
	}
	return nil
}
