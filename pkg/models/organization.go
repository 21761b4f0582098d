package models

import "time"

// Organization represents a youth organization account on the platform.
// Branding colors and logo feed the public site; Active gates public
// visibility, Archived is the reversible soft delete.
type Organization struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	PrimaryColor   string    `json:"primary_color,omitempty" db:"primary_color"`
	SecondaryColor string    `json:"secondary_color,omitempty" db:"secondary_color"`
	LogoURL        string    `json:"logo_url,omitempty" db:"logo_url"`
	Active         bool      `json:"active" db:"active"`
	Archived       bool      `json:"archived" db:"archived"`
	CreatedBy      string    `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy      string    `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// CreateOrganizationRequest is the admin payload for creating an organization.
type CreateOrganizationRequest struct {
	Name           string `json:"name"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	LogoURL        string `json:"logo_url"`
}

// UpdateOrganizationRequest patches an organization; empty fields are left
// untouched.
type UpdateOrganizationRequest struct {
	Name           string `json:"name"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	LogoURL        string `json:"logo_url"`
	Active         *bool  `json:"active"`
}
