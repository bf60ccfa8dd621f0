package entity

import (
	"time"
)

// User is a message participant.
// Passwords are stored as bcrypt hashes in Password field.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName is the name shown in quotes and notifications.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
