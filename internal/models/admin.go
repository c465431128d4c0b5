package models

import (
	"time"
)

// Admin is the internal projection of the administrator account. It carries
// the password hash, the TOTP secret and the reset-token digest, and must
// never be serialized to a client. Handlers work with AdminProfile instead.
type Admin struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	TwoFactorSecret     string // base32, empty until 2FA setup
	TwoFactorEnabled    bool
	ResetPasswordToken  string     // hex SHA-256 of the raw reset token
	ResetPasswordExpire *time.Time
	Role                string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AdminProfile is the public projection returned by auth endpoints.
type AdminProfile struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// Profile strips every secret-bearing field.
func (a *Admin) Profile() *AdminProfile {
	return &AdminProfile{
		ID:               a.ID,
		Name:             a.Name,
		Email:            a.Email,
		Role:             a.Role,
		TwoFactorEnabled: a.TwoFactorEnabled,
	}
}
