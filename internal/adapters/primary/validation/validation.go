// Package validation checks form input before it reaches the backend.
package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Field limits for the forms.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 10000
	MaxTagsLength        = 500
	MaxFullNameLength    = 120
	MaxBioLength         = 1000
)

var (
	priorities = []string{
		string(domain.PriorityCritical),
		string(domain.PriorityHigh),
		string(domain.PriorityMedium),
		string(domain.PriorityLow),
	}
	statuses = []string{string(domain.StatusOpen), string(domain.StatusSolved)}
	roles    = []string{string(domain.RoleAdmin), string(domain.RoleManager), string(domain.RoleUser)}
)

// Validator collects field errors
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Err returns the collected errors, or nil.
func (v *Validator) Err() error {
	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

// MaxLength validates maximum string length in characters
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len([]rune(value)) > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max)+" characters")
	}
	return v
}

// Email validates email format
func (v *Validator) Email(field, value string) *Validator {
	if value != "" && !emailRegex.MatchString(value) {
		v.errors.Add(field, "Must be a valid email address")
	}
	return v
}

// OneOf validates value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v // Empty is handled by Required
	}

	for _, a := range allowed {
		if value == a {
			return v
		}
	}

	v.errors.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Custom adds a custom validation
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// NewTicket validates the new ticket form.
func NewTicket(title, description, priority, tags string) (domain.CreateTicketParams, error) {
	v := NewValidator()
	v.Required("title", title).MaxLength("title", title, MaxTitleLength)
	v.Required("description", description).MaxLength("description", description, MaxDescriptionLength)
	v.Required("priority", priority).OneOf("priority", priority, priorities)
	v.MaxLength("tags", tags, MaxTagsLength)

	if err := v.Err(); err != nil {
		return domain.CreateTicketParams{}, err
	}
	return domain.CreateTicketParams{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Priority:    domain.TicketPriority(priority),
		Tags:        tags,
	}, nil
}

// TicketFilter validates list filters. Empty values mean no filter.
func TicketFilter(query, status, priority string) (domain.TicketFilter, error) {
	v := NewValidator()
	v.OneOf("status", status, statuses)
	v.OneOf("priority", priority, priorities)

	if err := v.Err(); err != nil {
		return domain.TicketFilter{}, err
	}
	return domain.TicketFilter{
		Query:    strings.TrimSpace(query),
		Status:   domain.TicketStatus(status),
		Priority: domain.TicketPriority(priority),
	}, nil
}

// UserFilter validates the admin user list filters.
func UserFilter(query, role string) (domain.UserFilter, error) {
	v := NewValidator()
	v.OneOf("role", role, roles)

	if err := v.Err(); err != nil {
		return domain.UserFilter{}, err
	}
	return domain.UserFilter{Query: strings.TrimSpace(query), Role: domain.Role(role)}, nil
}

// Profile validates a profile update. Nil fields are left unchanged.
func Profile(update domain.ProfileUpdate) error {
	v := NewValidator()
	if update.FullName != nil {
		v.MaxLength("full_name", *update.FullName, MaxFullNameLength)
	}
	if update.Email != nil {
		v.Email("email", *update.Email)
	}
	if update.Bio != nil {
		v.MaxLength("bio", *update.Bio, MaxBioLength)
	}
	return v.Err()
}

// Login validates the login form.
func Login(username, password string) error {
	return NewValidator().
		Required("username", username).
		Custom("password", password != "", "This field is required").
		Err()
}
