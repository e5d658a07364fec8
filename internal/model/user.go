package model

import (
	"fmt"
	"time"
)

// User represents an account that can sign in. Platform admins have no company.
type User struct {
	ID              int64      `json:"id"`
	CompanyID       *int64     `json:"company_id,omitempty"`
	BranchID        *int64     `json:"branch_id,omitempty"`
	RoleID          *int64     `json:"role_id,omitempty"`
	Username        string     `json:"username"`
	FullName        string     `json:"full_name,omitempty"`
	Email           string     `json:"email,omitempty"`
	PasswordHash    string     `json:"-"`
	IsAdmin         bool       `json:"is_admin"`
	IsPlatformAdmin bool       `json:"is_platform_admin"`
	CreatedAt       time.Time  `json:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	RoleName string `json:"role_name,omitempty"`
}

// Me is the authenticated user together with the effective permissions
// and tenant context, as returned by /auth/me/ and login.
type Me struct {
	User
	CompanyName string   `json:"company_name,omitempty"`
	BranchName  string   `json:"branch_name,omitempty"`
	Permissions []string `json:"permissions"`
}

// Can reports whether the user holds the given permission.
func (m *Me) Can(perm string) bool {
	if m == nil {
		return false
	}
	if m.IsAdmin {
		return true
	}
	for _, p := range m.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidatePassword checks the password rules shared by all account flows.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
