// Package identity is the mock identity provider: it turns an email into a
// user id and role and keeps the session in the durable cache.
//
// Roles come from a configured allowlist of admin emails. Nothing here
// verifies that the caller owns the email.
//
// This is a stand-in, not an access control boundary. There is one session
// per process, shared by every caller of the HTTP API and the CLI, so logging
// in with any allowlisted email makes every caller an admin until Logout.
// Put a real identity provider in front before exposing the API.
package identity

import (
	"context"
	"strings"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/syncstate"
)

// SessionKey holds the current user in the durable cache.
const SessionKey = "empower_current_user"

// DefaultName is used when Login is called without a name.
const DefaultName = "User"

// Role is a user's access level.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// User is the signed-in identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// DeriveID lower-cases email and keeps only ASCII letters and digits.
func DeriveID(email string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(email) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Provider manages the single session of this process.
type Provider struct {
	deps    syncstate.Deps
	admins  map[string]bool
	session *syncstate.Binding[*User]
}

// NewProvider restores any session left in the cache. admins is matched
// case-insensitively.
func NewProvider(ctx context.Context, deps syncstate.Deps, admins []string) *Provider {
	set := make(map[string]bool, len(admins))
	for _, a := range admins {
		set[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return &Provider{
		deps:    deps,
		admins:  set,
		session: syncstate.Open[*User](ctx, deps, SessionKey, nil),
	}
}

// Login starts a session for email. An email with no letters or digits
// yields INVALID_INPUT.
func (p *Provider) Login(email, name string) (User, error) {
	email = strings.TrimSpace(email)
	id := DeriveID(email)
	if id == "" {
		return User{}, ferrors.InvalidInput("login", "email has no usable characters")
	}
	if name == "" {
		name = DefaultName
	}
	u := User{ID: id, Name: name, Email: email, Role: RoleUser}
	if p.admins[strings.ToLower(email)] {
		u.Role = RoleAdmin
	}
	if err := p.session.Set(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Current returns the signed-in user.
func (p *Provider) Current() (User, bool) {
	u := p.session.Get()
	if u == nil {
		return User{}, false
	}
	return *u, true
}

// Logout ends the session and removes it from the cache.
func (p *Provider) Logout() error {
	if err := p.session.Set(nil); err != nil {
		return err
	}
	if p.deps.Cache != nil {
		return p.deps.Cache.Delete(SessionKey)
	}
	return nil
}

// Close releases the session binding.
func (p *Provider) Close() error {
	return p.session.Close()
}
