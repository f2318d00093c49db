package repository

import (
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"gorm.io/gorm"
)

// GormInvitationRepository is a GORM implementation of InvitationRepository
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &GormInvitationRepository{db: db}
}

func (r *GormInvitationRepository) Create(invitation *models.Invitation) error {
	return r.db.Create(invitation).Error
}

// FindByToken finds an invitation by its secret token
func (r *GormInvitationRepository) FindByToken(token string) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ListPending lists unaccepted, unexpired invitations of an organization
func (r *GormInvitationRepository) ListPending(organizationID uint64, now time.Time) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := r.db.
		Where("organization_id = ? AND accepted_at IS NULL AND expires_at > ?", organizationID, now).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

// Accept marks the invitation accepted and adds the membership in one transaction.
// The update is conditional so a token can only be redeemed once.
func (r *GormInvitationRepository) Accept(invitation *models.Invitation, member *models.OrganizationMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.Invitation{}).
			Where("id = ? AND accepted_at IS NULL", invitation.ID).
			Updates(map[string]interface{}{
				"accepted_at": now,
				"accepted_by": member.UserID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Create(member).Error; err != nil {
			return err
		}

		invitation.AcceptedAt = &now
		invitation.AcceptedBy = &member.UserID
		return nil
	})
}
