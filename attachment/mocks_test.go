package attachment_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	auth "github.com/fitcrew/gym-auth"
)

type MockIdentityAPI struct {
	mock.Mock
}

func (m *MockIdentityAPI) Login(ctx context.Context, email, password string) (*auth.AuthenticatedUser, error) {
	args := m.Called(ctx, email, password)
	var user *auth.AuthenticatedUser
	if v := args.Get(0); v != nil {
		user = v.(*auth.AuthenticatedUser)
	}
	return user, args.Error(1)
}

func (m *MockIdentityAPI) Signup(ctx context.Context, input auth.SignupInput) (*auth.AuthenticatedUser, error) {
	args := m.Called(ctx, input)
	var user *auth.AuthenticatedUser
	if v := args.Get(0); v != nil {
		user = v.(*auth.AuthenticatedUser)
	}
	return user, args.Error(1)
}

func (m *MockIdentityAPI) LookupByEmail(ctx context.Context, email string) (*auth.AuthenticatedUser, error) {
	args := m.Called(ctx, email)
	var user *auth.AuthenticatedUser
	if v := args.Get(0); v != nil {
		user = v.(*auth.AuthenticatedUser)
	}
	return user, args.Error(1)
}

func (m *MockIdentityAPI) GoogleSignup(ctx context.Context, email, name string, role auth.Role) error {
	return m.Called(ctx, email, name, role).Error(0)
}

func (m *MockIdentityAPI) GoogleSignin(ctx context.Context, email string) (*auth.AuthenticatedUser, error) {
	args := m.Called(ctx, email)
	var user *auth.AuthenticatedUser
	if v := args.Get(0); v != nil {
		user = v.(*auth.AuthenticatedUser)
	}
	return user, args.Error(1)
}

func (m *MockIdentityAPI) AttachToGym(ctx context.Context, input auth.AttachGymInput) (*auth.GymRef, error) {
	args := m.Called(ctx, input)
	var gym *auth.GymRef
	if v := args.Get(0); v != nil {
		gym = v.(*auth.GymRef)
	}
	return gym, args.Error(1)
}

func (m *MockIdentityAPI) VerifyAuthToken(ctx context.Context, token string, role auth.Role) (*auth.GymRef, error) {
	args := m.Called(ctx, token, role)
	var gym *auth.GymRef
	if v := args.Get(0); v != nil {
		gym = v.(*auth.GymRef)
	}
	return gym, args.Error(1)
}

func (m *MockIdentityAPI) RecordAttendance(ctx context.Context, input auth.AttendanceInput) error {
	return m.Called(ctx, input).Error(0)
}

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
	var claims *auth.SessionClaims
	if v := args.Get(0); v != nil {
		claims = v.(*auth.SessionClaims)
	}
	return claims, args.Error(1)
}

func (m *MockTokenIssuer) NeedsReissue(claims *auth.SessionClaims) bool {
	return m.Called(claims).Bool(0)
}
