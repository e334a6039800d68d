package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/fitcrew/gym-auth"
)

func invalidPasswordError() error {
	return errors.New("wrong password", errors.CategoryAuth).
		WithTextCode("INVALID_PASSWORD").
		WithCode(errors.CodeUnauthorized).
		WithMetadata(map[string]any{"backend_code": "INVALID_PASSWORD"})
}

func TestAuther_Authenticate_SignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return the backend user", func(t *testing.T) {
		api := &MockIdentityAPI{}
		tokens := &MockTokenIssuer{}
		api.On("Login", ctx, "asha@example.com", "secret").
			Return(&auth.AuthenticatedUser{ID: "user-42", Role: auth.RoleClient}, nil)

		auther := auth.NewAuthenticator(api, tokens)
		user, err := auther.Authenticate(ctx, auth.Credentials{
			Email:    "asha@example.com",
			Password: "secret",
		})

		require.NoError(t, err)
		assert.Equal(t, "user-42", user.ID)
		api.AssertExpectations(t)
	})

	t.Run("wrong password surfaces INVALID_PASSWORD verbatim", func(t *testing.T) {
		api := &MockIdentityAPI{}
		api.On("Login", ctx, "asha@example.com", "nope").
			Return(nil, invalidPasswordError())

		auther := auth.NewAuthenticator(api, &MockTokenIssuer{})
		_, err := auther.Authenticate(ctx, auth.Credentials{
			Email:    "asha@example.com",
			Password: "nope",
		})

		require.Error(t, err)
		assert.Equal(t, auth.KindBackendRejected, auth.Kind(err))
		assert.Equal(t, "INVALID_PASSWORD", auth.BackendCode(err))
	})

	t.Run("missing credentials never reach the backend", func(t *testing.T) {
		api := &MockIdentityAPI{}

		auther := auth.NewAuthenticator(api, &MockTokenIssuer{})
		_, err := auther.Authenticate(ctx, auth.Credentials{Email: "asha@example.com"})

		require.Error(t, err)
		assert.Equal(t, auth.KindInvalidInput, auth.Kind(err))
		api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
		api.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
	})

	t.Run("malformed email never reaches the backend", func(t *testing.T) {
		api := &MockIdentityAPI{}

		auther := auth.NewAuthenticator(api, &MockTokenIssuer{})
		_, err := auther.Authenticate(ctx, auth.Credentials{
			Email:    "not-an-email",
			Password: "secret",
		})

		require.Error(t, err)
		assert.Equal(t, auth.KindInvalidInput, auth.Kind(err))
		api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty backend user maps to identity not found", func(t *testing.T) {
		api := &MockIdentityAPI{}
		api.On("Login", ctx, "asha@example.com", "secret").
			Return(&auth.AuthenticatedUser{}, nil)

		auther := auth.NewAuthenticator(api, &MockTokenIssuer{})
		_, err := auther.Authenticate(ctx, auth.Credentials{
			Email:    "asha@example.com",
			Password: "secret",
		})

		require.Error(t, err)
		assert.Equal(t, "USER_NOT_FOUND", auth.BackendCode(err))
	})
}

func TestAuther_Authenticate_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("name and role dispatch to sign-up", func(t *testing.T) {
		api := &MockIdentityAPI{}
		api.On("Signup", ctx, auth.SignupInput{
			Name:     "Asha Kapoor",
			Email:    "asha@example.com",
			Password: "secret",
			Role:     auth.RoleTrainer,
			Phone:    "9876543210",
		}).Return(&auth.AuthenticatedUser{ID: "user-42", Role: auth.RoleTrainer}, nil)

		auther := auth.NewAuthenticator(api, &MockTokenIssuer{})
		user, err := auther.Authenticate(ctx, auth.Credentials{
			Email:    "asha@example.com",
			Password: "secret",
			Name:     "Asha Kapoor",
			Role:     auth.RoleTrainer,
			Phone:    "9876543210",
		})

		require.NoError(t, err)
		assert.Equal(t, auth.RoleTrainer, user.Role)
		api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown role is rejected before the backend", func(t *testing.T) {
		api := &MockIdentityAPI{}

		auther := auth.NewAuthenticator(api, &MockTokenIssuer{})
		_, err := auther.Authenticate(ctx, auth.Credentials{
			Email:    "asha@example.com",
			Password: "secret",
			Name:     "Asha Kapoor",
			Role:     "superadmin",
		})

		require.Error(t, err)
		assert.Equal(t, auth.KindInvalidInput, auth.Kind(err))
		api.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
	})

	t.Run("invalid phone is rejected before the backend", func(t *testing.T) {
		api := &MockIdentityAPI{}

		auther := auth.NewAuthenticator(api, &MockTokenIssuer{})
		_, err := auther.Authenticate(ctx, auth.Credentials{
			Email:    "asha@example.com",
			Password: "secret",
			Name:     "Asha Kapoor",
			Role:     auth.RoleClient,
			Phone:    "123",
		})

		require.Error(t, err)
		assert.Equal(t, auth.KindInvalidInput, auth.Kind(err))
		api.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
	})
}

func TestAuther_SessionFromToken(t *testing.T) {
	svc := auth.NewTokenService(testSigningKey, "gym-auth")
	auther := auth.NewAuthenticator(&MockIdentityAPI{}, svc)

	t.Run("valid token yields a session view", func(t *testing.T) {
		raw, err := svc.Issue(testUser())
		require.NoError(t, err)

		session, err := auther.SessionFromToken(raw)
		require.NoError(t, err)
		assert.Equal(t, "user-42", session.GetUserID())
		assert.Equal(t, auth.RoleTrainer, session.GetRole())
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := auther.SessionFromToken("garbage")
		assert.Error(t, err)
	})
}
