package model

import "time"

// Role is a reference record for the RBAC tiers. The three seeded roles
// (admin, manager, employee) are the only ones with defined policy; the
// table stays extensible for future tiers.
type Role struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;size:50;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Users []User `json:"-" gorm:"foreignKey:RoleID"`
}
