package model

import "time"

// Session is one issued refresh token, kept for security auditing. The
// JTI ties the row to the JWT; logout or revocation flips Active to
// false. Expiry is advisory, the active flag is authoritative.
type Session struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	TokenJTI  string    `json:"-" gorm:"uniqueIndex;size:255;not null"`
	IPAddress string    `json:"ip_address" gorm:"size:45"`
	UserAgent string    `json:"user_agent" gorm:"type:text"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID"`
}
