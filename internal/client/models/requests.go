package models

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

const minPasswordLength = 8

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("validation error")

// ValidationError maps a field name to a short reason code such as
// "email_required" or "password_too_short".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s (%s)", ErrValidation, strings.Join(parts, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationResult(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func checkEmail(fields map[string]string, email string) {
	switch {
	case strings.TrimSpace(email) == "":
		fields["email"] = "email_required"
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			fields["email"] = "invalid_email_format"
		}
	}
}

// Credentials is the body of POST /api/auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	fields := make(map[string]string)
	checkEmail(fields, c.Email)
	if c.Password == "" {
		fields["password"] = "password_required"
	}
	return validationResult(fields)
}

// Registration is the body of POST /api/auth/register.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r Registration) Validate() error {
	fields := make(map[string]string)
	checkEmail(fields, r.Email)
	switch {
	case r.Password == "":
		fields["password"] = "password_required"
	case len(r.Password) < minPasswordLength:
		fields["password"] = "password_too_short"
	}
	if strings.TrimSpace(r.FirstName) == "" {
		fields["first_name"] = "first_name_required"
	}
	if strings.TrimSpace(r.LastName) == "" {
		fields["last_name"] = "last_name_required"
	}
	return validationResult(fields)
}

// ProfileUpdate is the body of PUT /api/auth/me from the settings form.
// Empty fields are omitted and left unchanged by the server.
type ProfileUpdate struct {
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Title            string `json:"title,omitempty"`
	Specialization   string `json:"specialization,omitempty"`
	OrganisationName string `json:"organisation_name,omitempty"`
	CompanySize      string `json:"company_size,omitempty"`
	Country          string `json:"country,omitempty"`
	Role             string `json:"role,omitempty"`
}

func (p ProfileUpdate) IsEmpty() bool {
	return p == ProfileUpdate{}
}

// OnboardingData is collected once after the first login; every field is
// mandatory.
type OnboardingData struct {
	Specialization   string `json:"specialization"`
	OrganisationName string `json:"organisation_name"`
	CompanySize      string `json:"company_size"`
	Country          string `json:"country"`
	Role             string `json:"role"`
}

func (o OnboardingData) Validate() error {
	fields := make(map[string]string)
	required := map[string]string{
		"specialization":    o.Specialization,
		"organisation_name": o.OrganisationName,
		"company_size":      o.CompanySize,
		"country":           o.Country,
		"role":              o.Role,
	}
	for name, v := range required {
		if strings.TrimSpace(v) == "" {
			fields[name] = name + "_required"
		}
	}
	return validationResult(fields)
}

// GoogleCallback is the body of POST /api/auth/google/callback.
type GoogleCallback struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}
