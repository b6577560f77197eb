package domain

import (
	"errors"
	"strings"

	"ai-prompt-generator/admin/internal/platform/rbac"
)

// User is an admin panel account loaded from the user directory file.
type User struct {
	ID           string     `yaml:"id"`
	Username     string     `yaml:"username"`
	PasswordHash string     `yaml:"password_hash"`
	Role         rbac.Role  `yaml:"role"`
	Status       UserStatus `yaml:"status"`
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate checks the user before it is accepted into the directory. Returns an error describing the first failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password_hash is required")
	}
	role, err := rbac.ParseRole(string(u.Role))
	if err != nil {
		return err
	}
	u.Role = role
	switch u.Status {
	case "":
		u.Status = UserStatusActive
	case UserStatusActive, UserStatusDisabled:
	default:
		return errors.New("status must be active or disabled")
	}
	return nil
}

// Active reports whether the user may log in.
func (u *User) Active() bool {
	return u != nil && u.Status == UserStatusActive
}
