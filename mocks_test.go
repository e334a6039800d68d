package auth_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	auth "github.com/fitcrew/gym-auth"
)

// MockIdentityAPI implements auth.IdentityAPI for testing.
type MockIdentityAPI struct {
	mock.Mock
}

func (m *MockIdentityAPI) Login(ctx context.Context, email, password string) (*auth.AuthenticatedUser, error) {
	args := m.Called(ctx, email, password)
	if u := args.Get(0); u != nil {
		return u.(*auth.AuthenticatedUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityAPI) Signup(ctx context.Context, input auth.SignupInput) (*auth.AuthenticatedUser, error) {
	args := m.Called(ctx, input)
	if u := args.Get(0); u != nil {
		return u.(*auth.AuthenticatedUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityAPI) LookupByEmail(ctx context.Context, email string) (*auth.AuthenticatedUser, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*auth.AuthenticatedUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityAPI) GoogleSignup(ctx context.Context, email, name string, role auth.Role) error {
	args := m.Called(ctx, email, name, role)
	return args.Error(0)
}

func (m *MockIdentityAPI) GoogleSignin(ctx context.Context, email string) (*auth.AuthenticatedUser, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*auth.AuthenticatedUser), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityAPI) AttachToGym(ctx context.Context, input auth.AttachGymInput) (*auth.GymRef, error) {
	args := m.Called(ctx, input)
	if g := args.Get(0); g != nil {
		return g.(*auth.GymRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityAPI) VerifyAuthToken(ctx context.Context, token string, role auth.Role) (*auth.GymRef, error) {
	args := m.Called(ctx, token, role)
	if g := args.Get(0); g != nil {
		return g.(*auth.GymRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityAPI) RecordAttendance(ctx context.Context, input auth.AttendanceInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

// MockTokenIssuer implements auth.TokenIssuer for testing.
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(user *auth.AuthenticatedUser) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *MockTokenIssuer) Refresh(claims *auth.SessionClaims, patch auth.SessionPatch) (string, error) {
	args := m.Called(claims, patch)
	return args.String(0), args.Error(1)
}

func (m *MockTokenIssuer) Validate(raw string) (*auth.SessionClaims, error) {
	args := m.Called(raw)
	if c := args.Get(0); c != nil {
		return c.(*auth.SessionClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenIssuer) NeedsReissue(claims *auth.SessionClaims) bool {
	args := m.Called(claims)
	return args.Bool(0)
}
