package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the session token payload. Subject and role are always
// present for an authenticated user; gym appears only after attachment.
type SessionClaims struct {
	jwt.RegisteredClaims
	Name        string  `json:"name,omitempty"`
	Email       string  `json:"email,omitempty"`
	UserRole    Role    `json:"role,omitempty"`
	Gym         *GymRef `json:"gym,omitempty"`
	AccessToken string  `json:"access_token,omitempty"`
}

// UserID returns the subject claim.
func (c *SessionClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Role returns the user's role.
func (c *SessionClaims) Role() Role {
	return c.UserRole
}

// HasRole reports whether the claims carry a known role.
func (c *SessionClaims) HasRole() bool {
	return IsValidRole(c.UserRole)
}

// HasGym reports whether the session completed gym attachment.
func (c *SessionClaims) HasGym() bool {
	return c.Gym != nil && c.Gym.ID != ""
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedTime returns the issued at time
func (c *SessionClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// SessionPatch is a partial claims update merged during a refresh. Nil
// fields keep their current value; this is what lets mid-session gym
// attachment avoid a re-login.
type SessionPatch struct {
	Role        *Role
	Gym         *GymRef
	AccessToken *string
}

// apply merges the patch into a copy of the claims.
func (p SessionPatch) apply(c *SessionClaims) *SessionClaims {
	next := *c
	if p.Role != nil {
		next.UserRole = *p.Role
	}
	if p.Gym != nil {
		gym := *p.Gym
		next.Gym = &gym
	}
	if p.AccessToken != nil {
		next.AccessToken = *p.AccessToken
	}
	return &next
}
