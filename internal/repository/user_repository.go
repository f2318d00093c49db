package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrCreateUser wraps a failed user insert during signup.
	ErrCreateUser = errors.New("user repository: create user failed")
	// ErrCreateWorkspace wraps a failed insert of the signup workspace or its owner membership.
	ErrCreateWorkspace = errors.New("user repository: create workspace failed")
)

// GormUserRepository stores users and resolves them for sessions and invitations.
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// CreateWithWorkspace inserts user and workspace, making the user the
// workspace's owner. Nothing is kept if any insert fails.
func (r *GormUserRepository) CreateWithWorkspace(user *models.User, workspace *models.Organization) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}
		if err := tx.Create(workspace).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateWorkspace, err)
		}

		owner := &models.OrganizationMember{
			OrganizationID: workspace.ID,
			UserID:         user.ID,
			Role:           models.RoleOwner,
			JoinedAt:       time.Now(),
		}
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateWorkspace, err)
		}
		return nil
	})
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail matches the address case-insensitively. Blank addresses never match.
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var user models.User
	if err := r.db.Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
