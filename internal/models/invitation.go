package models

import "time"

// Invitation grants a role in an organization to whoever accepts its token.
// Delivery happens outside this service.
type Invitation struct {
	ID             uint64           `gorm:"primarykey" json:"id"`
	OrganizationID uint64           `gorm:"not null;index" json:"organization_id"`
	Email          string           `gorm:"type:varchar(255);not null" json:"email"`
	Role           OrganizationRole `gorm:"type:varchar(20);not null" json:"role"`
	Token          string           `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	InvitedBy      uint64           `gorm:"not null" json:"invited_by"`
	ExpiresAt      time.Time        `json:"expires_at"`
	AcceptedAt     *time.Time       `json:"accepted_at"`
	AcceptedBy     *uint64          `json:"accepted_by"`
	CreatedAt      time.Time        `json:"created_at"`

	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}
