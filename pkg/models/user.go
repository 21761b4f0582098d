package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole distinguishes platform administrators from organization accounts.
type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleOrganization UserRole = "organization"
)

// AppUser represents an account in the system. Administrators have no
// organization binding (OrganizationID == nil); organization accounts are
// scoped to exactly one organization.
type AppUser struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID *string   `json:"organization_id,omitempty" db:"organization_id"`
	Role           UserRole  `json:"role" db:"role"`
	Email          string    `json:"email" db:"email"`
	FullName       string    `json:"full_name,omitempty" db:"full_name"`
	Password       string    `json:"-" db:"password_hash"` // Never return password hash in JSON
	Archived       bool      `json:"archived" db:"archived"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *AppUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// OrgID returns the bound organization id, or "" for admins.
func (u *AppUser) OrgID() string {
	if u.OrganizationID == nil {
		return ""
	}
	return *u.OrganizationID
}

// UserLoginRequest represents the request payload for login
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserLoginResponse represents the response payload for login
type UserLoginResponse struct {
	User         AppUser `json:"user"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CreateUserRequest is the admin payload for provisioning an account.
// OrganizationID is required unless Role is admin.
type CreateUserRequest struct {
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	FullName       string   `json:"full_name"`
	Role           UserRole `json:"role"`
	OrganizationID string   `json:"organization_id,omitempty"`
}

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	UserID         string   `json:"user_id"`
	Email          string   `json:"email"`
	Role           UserRole `json:"role"`
	OrganizationID string   `json:"organization_id,omitempty"`
	TokenID        string   `json:"jti"`
	Type           string   `json:"type"` // "access" or "refresh"
	Exp            int64    `json:"exp"`
	Iat            int64    `json:"iat"`
}

// GetExpirationTime implements jwt.Claims interface
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims interface
func (c *TokenClaims) GetSubject() (string, error) {
	return c.UserID, nil
}

// GetAudience implements jwt.Claims interface
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
