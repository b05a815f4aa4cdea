package domain

// Credential is the bearer token and role tag held for the session.
type Credential struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role"`
}

// IsZero reports whether no credential is held.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the backend's answer to a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        Role   `json:"role"`
}

// Credential converts the response to the stored form.
func (r LoginResponse) Credential() Credential {
	return Credential{AccessToken: r.AccessToken, Role: r.Role}
}
