package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
)

var (
	ErrContactNotFound     = errors.New("contact not found")
	ErrContactNameRequired = errors.New("contact first name is required")
	ErrInvalidContactEmail = errors.New("contact email is invalid")
)

// ContactService handles contact records
type ContactService struct {
	contactRepo repository.ContactRepository
	companyRepo repository.CompanyRepository
}

// NewContactService creates a new ContactService
func NewContactService(contactRepo repository.ContactRepository, companyRepo repository.CompanyRepository) *ContactService {
	return &ContactService{contactRepo: contactRepo, companyRepo: companyRepo}
}

// ContactInput carries contact fields. Nil fields are left unchanged on
// update; a zero CompanyID unlinks the company.
type ContactInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Title     *string
	CompanyID *uint64
}

// ListContacts returns a page of contacts, optionally filtered by name, email or company
func (s *ContactService) ListContacts(auth *authz.AuthContext, filter repository.ListFilter) ([]models.Contact, int64, error) {
	if err := authorize(auth, authz.PermDealView); err != nil {
		return nil, 0, err
	}

	contacts, total, err := s.contactRepo.List(auth.OrganizationID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contacts: %w", err)
	}
	return contacts, total, nil
}

// GetContact returns one contact
func (s *ContactService) GetContact(auth *authz.AuthContext, contactID uint64) (*models.Contact, error) {
	if err := authorize(auth, authz.PermDealView); err != nil {
		return nil, err
	}

	contact, err := s.contactRepo.FindByID(auth.OrganizationID, contactID)
	if err != nil {
		return nil, lookupError(err, ErrContactNotFound, "contact")
	}
	return contact, nil
}

// CreateContact creates a contact
func (s *ContactService) CreateContact(auth *authz.AuthContext, input ContactInput) (*models.Contact, error) {
	if err := authorize(auth, authz.PermContactCreate); err != nil {
		return nil, err
	}
	if input.FirstName == nil {
		return nil, ErrContactNameRequired
	}

	contact := &models.Contact{OrganizationID: auth.OrganizationID, CreatedBy: auth.UserID}
	if err := s.applyContactInput(auth.OrganizationID, contact, input); err != nil {
		return nil, err
	}

	if err := s.contactRepo.Create(contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return contact, nil
}

// UpdateContact changes a contact's fields
func (s *ContactService) UpdateContact(auth *authz.AuthContext, contactID uint64, input ContactInput) (*models.Contact, error) {
	if err := authorize(auth, authz.PermContactEdit); err != nil {
		return nil, err
	}

	contact, err := s.contactRepo.FindByID(auth.OrganizationID, contactID)
	if err != nil {
		return nil, lookupError(err, ErrContactNotFound, "contact")
	}
	if err := s.applyContactInput(auth.OrganizationID, contact, input); err != nil {
		return nil, err
	}

	if err := s.contactRepo.Update(contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return contact, nil
}

// DeleteContact removes a contact. Deals referencing it are unlinked.
func (s *ContactService) DeleteContact(auth *authz.AuthContext, contactID uint64) error {
	if err := authorize(auth, authz.PermContactDelete); err != nil {
		return err
	}
	if err := s.contactRepo.Delete(auth.OrganizationID, contactID); err != nil {
		return lookupError(err, ErrContactNotFound, "contact")
	}
	return nil
}

func (s *ContactService) applyContactInput(orgID uint64, contact *models.Contact, input ContactInput) error {
	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" || len(name) > 100 {
			return ErrContactNameRequired
		}
		contact.FirstName = name
	}
	if input.LastName != nil {
		contact.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				return ErrInvalidContactEmail
			}
		}
		contact.Email = email
	}
	if input.Phone != nil {
		contact.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Title != nil {
		contact.Title = strings.TrimSpace(*input.Title)
	}
	if input.CompanyID != nil {
		companyID := nonZero(input.CompanyID)
		if companyID != nil {
			if _, err := s.companyRepo.FindByID(orgID, *companyID); err != nil {
				return lookupError(err, ErrCompanyNotFound, "company")
			}
		}
		contact.CompanyID = companyID
		contact.Company = nil
	}
	return nil
}
