package store

import "time"

// User is a registered account.
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;size:320;not null"`
	DisplayName  string `gorm:"size:100"`
	Bio          string `gorm:"size:1000"`
	PasswordHash []byte `gorm:"not null"`
	AvatarPNG    []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Contact links an owner to another user in the owner's contact list.
type Contact struct {
	OwnerID   string `gorm:"primaryKey;size:36"`
	ContactID string `gorm:"primaryKey;size:36"`
	Blocked   bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// ResetToken is a single-use password reset token.
type ResetToken struct {
	Token     string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"index;size:36;not null"`
	ExpiresAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t *ResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func cloneUser(u *User) *User {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	if u.AvatarPNG != nil {
		c.AvatarPNG = append([]byte(nil), u.AvatarPNG...)
	}
	return &c
}
