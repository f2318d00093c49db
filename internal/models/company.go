package models

import "time"

type Company struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	OrganizationID uint64    `gorm:"not null;index" json:"organization_id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Domain         string    `gorm:"type:varchar(255)" json:"domain"`
	Industry       string    `gorm:"type:varchar(100)" json:"industry"`
	Notes          string    `gorm:"type:text" json:"notes"`
	CreatedBy      uint64    `gorm:"not null" json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
