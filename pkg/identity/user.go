package identity

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// User is a signed-up account. Its ID is the owner id stamped on folders
// and files.
type User struct {
	ID           string     `gorm:"primaryKey;size:36" json:"uid"`
	Email        string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	DisplayName  string     `gorm:"size:255" json:"displayName"`
	PhotoURL     string     `gorm:"size:1024" json:"photoURL,omitempty"`
	PasswordHash string     `gorm:"not null" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// GetDisplayName returns the display name, or the email when unset.
func (u *User) GetDisplayName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// RevokedToken records a signed-out session until its token would have
// expired anyway.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"size:36;index"`
	ExpiresAt time.Time `gorm:"index"`
}

// TableName returns the table name for RevokedToken.
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

// allModels lists every table migrated on open.
func allModels() []any {
	return []any{&User{}, &RevokedToken{}}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DefaultPhotoURL returns a generated avatar URL for email.
func DefaultPhotoURL(email string) string {
	return fmt.Sprintf("https://i.pravatar.cc/150?u=%s", url.QueryEscape(email))
}
