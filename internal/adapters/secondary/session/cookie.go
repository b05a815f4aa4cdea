package session

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// CookieMaxAge matches the lifetime the login surface gives the mirror.
const CookieMaxAge = 24 * time.Hour

// CookieMirror copies the token into a cookie on the frontend origin so
// the edge guard can route without calling the backend. It is never an
// authorization boundary.
type CookieMirror struct {
	jar    http.CookieJar
	origin *url.URL
	name   string
}

// NewCookieMirror mirrors into jar for frontendURL under name. A nil jar
// gets a fresh in-memory jar.
func NewCookieMirror(jar http.CookieJar, frontendURL, name string) (*CookieMirror, error) {
	origin, err := url.Parse(frontendURL)
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("invalid frontend url %q", frontendURL)
	}
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
	}
	return &CookieMirror{jar: jar, origin: origin, name: name}, nil
}

// Set writes the token cookie.
func (m *CookieMirror) Set(token string) {
	m.jar.SetCookies(m.origin, []*http.Cookie{{
		Name:   m.name,
		Value:  token,
		Path:   "/",
		MaxAge: int(CookieMaxAge.Seconds()),
	}})
}

// Clear expires the token cookie.
func (m *CookieMirror) Clear() {
	m.jar.SetCookies(m.origin, []*http.Cookie{{
		Name:    m.name,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(1, 0),
	}})
}

// Value returns the mirrored token, if present.
func (m *CookieMirror) Value() (string, bool) {
	for _, c := range m.jar.Cookies(m.origin) {
		if c.Name == m.name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// Jar exposes the jar so HTTP clients talking to the frontend origin send
// the mirror.
func (m *CookieMirror) Jar() http.CookieJar {
	return m.jar
}
