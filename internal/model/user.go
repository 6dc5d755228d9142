package model

import (
	"strings"
	"time"
)

// User is an identity record. Email doubles as the authentication
// identifier. RoleID is nullable only transiently while the bootstrap
// super-account is created; every regular user carries a role.
//
// Deletion is always a soft delete: Active flips to false and the row,
// its sessions, and its place in the manager graph are retained.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:150;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	FirstName    string    `json:"first_name" gorm:"size:150"`
	LastName     string    `json:"last_name" gorm:"size:150"`
	EmployeeID   *string   `json:"employee_id" gorm:"uniqueIndex;size:20"`
	PhoneNumber  string    `json:"phone_number" gorm:"size:15"`
	Department   string    `json:"department" gorm:"size:100;index"`
	RoleID       *uint     `json:"-" gorm:"index"`
	ManagerID    *uint     `json:"manager_id" gorm:"index"`
	Active       bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Role         *Role  `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	Manager      *User  `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
	Subordinates []User `json:"subordinates,omitempty" gorm:"foreignKey:ManagerID"`
}

// FullName joins first and last name, trimming when either is empty.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// RoleName returns the role name or "" while the role is unset.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}
