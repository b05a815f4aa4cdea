package domain

// Role is the capability tag carried by a credential and a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// IsValid reports whether the role is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// User is the identity returned by /users/me and the admin user list.
type User struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Role       Role    `json:"role"`
	FullName   *string `json:"full_name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	Reputation int     `json:"reputation"`
	IsActive   bool    `json:"is_active"`
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ProfileUpdate is the body of PATCH /users/me. Nil fields are left unset.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (p ProfileUpdate) IsEmpty() bool {
	return p.FullName == nil && p.Email == nil && p.Bio == nil
}

// UserFilter narrows the admin user list.
type UserFilter struct {
	Query string
	Role  Role
}
