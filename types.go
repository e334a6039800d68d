package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// IdentityAPI is the surface of the backend identity service this module
// consumes. Implementations talk HTTP; callers only see the error taxonomy.
type IdentityAPI interface {
	// Login verifies email+password and returns the canonical user.
	Login(ctx context.Context, email, password string) (*AuthenticatedUser, error)
	// Signup registers a user and returns the canonical user.
	Signup(ctx context.Context, input SignupInput) (*AuthenticatedUser, error)
	// LookupByEmail finds a user by email. A missing user is reported as a
	// backend rejection with code USER_NOT_FOUND, never invented locally.
	LookupByEmail(ctx context.Context, email string) (*AuthenticatedUser, error)
	// GoogleSignup registers a user from an OAuth profile with the role the
	// user selected before the redirect.
	GoogleSignup(ctx context.Context, email, name string, role Role) error
	// GoogleSignin fetches the canonical user+gym for an OAuth email.
	GoogleSignin(ctx context.Context, email string) (*AuthenticatedUser, error)
	// AttachToGym verifies a QR-derived attachment request.
	AttachToGym(ctx context.Context, input AttachGymInput) (*GymRef, error)
	// VerifyAuthToken verifies a trainer onboarding token.
	VerifyAuthToken(ctx context.Context, token string, role Role) (*GymRef, error)
	// RecordAttendance records an attendance scan. Never touches gym state.
	RecordAttendance(ctx context.Context, input AttendanceInput) error
}

// TokenIssuer issues, refreshes, and validates session tokens.
type TokenIssuer interface {
	Issue(user *AuthenticatedUser) (string, error)
	Refresh(claims *SessionClaims, patch SessionPatch) (string, error)
	Validate(raw string) (*SessionClaims, error)
	NeedsReissue(claims *SessionClaims) bool
}

// Authenticator holds methods to deal with credential authentication
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*AuthenticatedUser, error)
	SessionFromToken(raw string) (*SessionObject, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	// GetTokenExpiration is the absolute session lifetime in hours.
	GetTokenExpiration() int
	// GetReissueWindow is the rolling re-issue threshold in hours; a token
	// accessed after this age is transparently re-signed with fresh expiry.
	GetReissueWindow() int
	// GetContextKey is the session cookie name.
	GetContextKey() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetCookieSecure() bool
}

// DefaultLogger returns the stdout fallback logger used when a collaborator
// is constructed without one.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
