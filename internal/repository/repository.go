package repository

import (
	"errors"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/pipeline"
)

// ErrStaleColumn is returned when a reorder touches a deal that is no longer
// where the caller believed it was.
var ErrStaleColumn = errors.New("repository: column changed during reorder")

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(org *models.Organization) error

	// CreateWithOwner creates an organization and its first owner in one transaction
	CreateWithOwner(org *models.Organization, ownerID uint64) error

	// FindByID finds an organization by ID
	FindByID(id uint64) (*models.Organization, error)

	// FindByInviteCode finds an organization by invite code
	FindByInviteCode(code string) (*models.Organization, error)

	// Update updates an organization
	Update(org *models.Organization) error

	// Delete deletes an organization and all related data
	Delete(id uint64) error

	// AddMember adds a member to an organization
	AddMember(member *models.OrganizationMember) error

	// RemoveMember removes a member from an organization
	RemoveMember(organizationID, userID uint64) error

	// RemoveMembers removes several members in one transaction
	RemoveMembers(organizationID uint64, userIDs []uint64) error

	// UpdateMemberRole changes a member's role
	UpdateMemberRole(organizationID, userID uint64, role models.OrganizationRole) error

	// CountOwners counts the owners of an organization
	CountOwners(organizationID uint64) (int64, error)

	// FindMember finds a specific organization member
	FindMember(organizationID, userID uint64) (*models.OrganizationMember, error)

	// ListMembersByUserID lists all organizations a user is a member of
	ListMembersByUserID(userID uint64) ([]models.OrganizationMember, error)

	// ListMembers lists all members of an organization
	ListMembers(organizationID uint64) ([]models.OrganizationMember, error)
}

// InvitationRepository defines the interface for invitation data access
type InvitationRepository interface {
	Create(invitation *models.Invitation) error

	// FindByToken finds an invitation by its secret token
	FindByToken(token string) (*models.Invitation, error)

	// ListPending lists unaccepted, unexpired invitations of an organization
	ListPending(organizationID uint64, now time.Time) ([]models.Invitation, error)

	// Accept marks the invitation accepted and adds the membership in one transaction
	Accept(invitation *models.Invitation, member *models.OrganizationMember) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// CreateWithWorkspace creates a user and the workspace they own in one transaction
	CreateWithWorkspace(user *models.User, workspace *models.Organization) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindByEmail finds a user by email, ignoring case
	FindByEmail(email string) (*models.User, error)
}

// ListFilter holds the search and paging options shared by company and contact lists
type ListFilter struct {
	Search    string
	CompanyID *uint64
	Page      int
	PageSize  int
}

// CompanyRepository defines the interface for company data access.
// Every method is scoped to one organization.
type CompanyRepository interface {
	Create(company *models.Company) error
	FindByID(organizationID, id uint64) (*models.Company, error)
	List(organizationID uint64, filter ListFilter) ([]models.Company, int64, error)
	Update(company *models.Company) error

	// Delete removes the company and detaches its contacts and deals
	Delete(organizationID, id uint64) error
}

// ContactRepository defines the interface for contact data access.
// Every method is scoped to one organization.
type ContactRepository interface {
	Create(contact *models.Contact) error
	FindByID(organizationID, id uint64) (*models.Contact, error)
	List(organizationID uint64, filter ListFilter) ([]models.Contact, int64, error)
	Update(contact *models.Contact) error

	// Delete removes the contact and detaches its deals
	Delete(organizationID, id uint64) error
}

// DealRepository defines the interface for deal data access.
// Every method is scoped to one organization.
type DealRepository interface {
	// Create appends the deal to the end of its stage column
	Create(deal *models.Deal) error

	// FindByID finds a deal with optional preloading
	FindByID(organizationID, id uint64, preload ...string) (*models.Deal, error)

	// FindByIDs returns the deals among ids that belong to the organization
	FindByIDs(organizationID uint64, ids []uint64) ([]models.Deal, error)

	// List returns every deal ordered by stage column then position
	List(organizationID uint64) ([]models.Deal, error)

	// ListColumn returns one stage column ordered by position
	ListColumn(organizationID uint64, stage models.DealStage) ([]models.Deal, error)

	// Update saves the editable fields. Stage and position only change
	// through TransitionStage and ReorderColumn.
	Update(deal *models.Deal) error

	// Delete removes the deal with its activities and tasks
	Delete(organizationID, id uint64) error

	// TransitionStage writes deal's new stage at the end of the destination
	// column together with its stage_change activity, atomically.
	TransitionStage(deal *models.Deal, activity *models.DealActivity) error

	// ReorderColumn rewrites the positions of a destination column. When
	// activity is non-nil the moved deal also changes stage and the activity
	// is recorded in the same transaction.
	ReorderColumn(organizationID uint64, stage models.DealStage, placements []pipeline.Placement, moved *models.Deal, activity *models.DealActivity) error
}

// ActivityRepository defines the interface for deal activity data access
type ActivityRepository interface {
	Create(activity *models.DealActivity) error
	FindByID(organizationID, id uint64) (*models.DealActivity, error)

	// ListByDeal lists a deal's timeline, newest first
	ListByDeal(organizationID, dealID uint64) ([]models.DealActivity, error)

	// ListByOrganization lists activities created since the given time
	ListByOrganization(organizationID uint64, since *time.Time) ([]models.DealActivity, error)

	Update(activity *models.DealActivity) error
	Delete(organizationID, id uint64) error
}

// DealTaskRepository defines the interface for deal task data access
type DealTaskRepository interface {
	// Create creates a new task
	Create(task *models.DealTask) error

	// CreateBatch creates several tasks in one statement
	CreateBatch(tasks []models.DealTask) error

	// FindByID finds a task by ID with optional preloading
	FindByID(organizationID, id uint64, preload ...string) (*models.DealTask, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.DealTask, int64, error)

	// Update updates a task
	Update(task *models.DealTask) error

	// Delete deletes a task
	Delete(organizationID, id uint64) error

	// IsMember reports whether the user belongs to the organization
	IsMember(organizationID, userID uint64) (bool, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	OrganizationID uint64
	DealID         *uint64
	Status         *models.TaskStatus
	CreatorID      *uint64
	AssigneeID     *uint64
	DueDateFrom    *time.Time
	DueDateTo      *time.Time
	SortByDueDate  bool
	Page           int
	PageSize       int
}
