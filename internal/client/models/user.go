// Package models defines the client-side data model of a DocScrib session:
// the canonical User, the server response envelopes it is extracted from,
// request payloads, and the derived AuthState.
package models

import (
	"strings"
	"time"
)

// User is the canonical representation of the authenticated principal.
//
// Server fields keep the backend's snake_case names. The camelCase fields
// are client aliases derived from them during normalization; they are
// stored alongside so readers written against either naming keep working.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`

	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Title            string `json:"title,omitempty"`
	Specialization   string `json:"specialization,omitempty"`
	OrganisationName string `json:"organisation_name,omitempty"`
	CompanySize      string `json:"company_size,omitempty"`
	Country          string `json:"country,omitempty"`
	Role             string `json:"role,omitempty"`
	ProfileImageURL  string `json:"profile_image_url,omitempty"`

	IsActive              bool       `json:"is_active"`
	SubscriptionStatus    string     `json:"subscription_status,omitempty"`
	TrialExpiresAt        *time.Time `json:"trial_expires_at,omitempty"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	CreatedAt             *time.Time `json:"created_at,omitempty"`
	UpdatedAt             *time.Time `json:"updated_at,omitempty"`

	AuthProvider string `json:"auth_provider,omitempty"`
	GoogleID     string `json:"google_id,omitempty"`

	FirstNameAlias string `json:"firstName,omitempty"`
	LastNameAlias  string `json:"lastName,omitempty"`
	Organisation   string `json:"organisation,omitempty"`
	Picture        string `json:"picture,omitempty"`
	Name           string `json:"name,omitempty"`
}

// legacyUser lists the camelCase spellings older backends used for fields
// that now travel in snake_case.
type legacyUser struct {
	OrganisationName   string `json:"organisationName"`
	CompanySize        string `json:"companySize"`
	ProfileImageURL    string `json:"profileImageUrl"`
	ProfileImage       string `json:"profile_image"`
	SubscriptionStatus string `json:"subscriptionStatus"`
	AuthProvider       string `json:"authProvider"`
	GoogleID           string `json:"googleId"`
	IsActive           *bool  `json:"isActive"`
}

// ImageRef returns the profile image reference: the provider-assigned URL,
// or the legacy picture alias when the URL is absent.
func (u *User) ImageRef() string {
	if u == nil {
		return ""
	}
	if u.ProfileImageURL != "" {
		return u.ProfileImageURL
	}
	return u.Picture
}

// DisplayName is what a header or prompt shows for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// NeedsOnboarding reports whether any field collected by onboarding is
// still missing.
func (u *User) NeedsOnboarding() bool {
	if u == nil {
		return false
	}
	return u.Specialization == "" || u.OrganisationName == "" ||
		u.CompanySize == "" || u.Country == "" || u.Role == ""
}

// Clone returns a deep copy; AuthState snapshots hand out clones so callers
// cannot mutate the manager's copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.TrialExpiresAt = cloneTime(u.TrialExpiresAt)
	c.SubscriptionExpiresAt = cloneTime(u.SubscriptionExpiresAt)
	c.CreatedAt = cloneTime(u.CreatedAt)
	c.UpdatedAt = cloneTime(u.UpdatedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// applyLegacy copies legacy spellings into server fields that are empty.
func (u *User) applyLegacy(l legacyUser) {
	fill(&u.OrganisationName, l.OrganisationName)
	fill(&u.CompanySize, l.CompanySize)
	fill(&u.ProfileImageURL, l.ProfileImageURL)
	fill(&u.ProfileImageURL, l.ProfileImage)
	fill(&u.SubscriptionStatus, l.SubscriptionStatus)
	fill(&u.AuthProvider, l.AuthProvider)
	fill(&u.GoogleID, l.GoogleID)
	if l.IsActive != nil && !u.IsActive {
		u.IsActive = *l.IsActive
	}
}

// fillAliases makes server fields and client aliases agree. Whichever side
// is present wins over an empty counterpart; server fields win when both
// are set.
func (u *User) fillAliases() {
	if u.FirstName != "" {
		u.FirstNameAlias = u.FirstName
	} else {
		u.FirstName = u.FirstNameAlias
	}
	if u.LastName != "" {
		u.LastNameAlias = u.LastName
	} else {
		u.LastName = u.LastNameAlias
	}
	if u.OrganisationName != "" {
		u.Organisation = u.OrganisationName
	} else {
		u.OrganisationName = u.Organisation
	}
	if u.ProfileImageURL != "" {
		u.Picture = u.ProfileImageURL
	}
	if u.Name == "" {
		u.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	if u.Name == "" {
		u.Name = u.Email
	}
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
