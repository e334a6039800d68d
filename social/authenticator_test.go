package social_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/fitcrew/gym-auth"
	"github.com/fitcrew/gym-auth/social"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return m.Called().String(0)
}

func (m *MockProvider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	return m.Called(state).String(0)
}

func (m *MockProvider) Exchange(ctx context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	args := m.Called(ctx, code)
	var token *social.Token
	if v := args.Get(0); v != nil {
		token = v.(*social.Token)
	}
	return token, args.Error(1)
}

func (m *MockProvider) UserInfo(ctx context.Context, token *social.Token) (*social.Profile, error) {
	args := m.Called(ctx, token)
	var profile *social.Profile
	if v := args.Get(0); v != nil {
		profile = v.(*social.Profile)
	}
	return profile, args.Error(1)
}

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

func userNotFoundError() error {
	return errors.New("user not found", errors.CategoryAuth).
		WithTextCode("USER_NOT_FOUND").
		WithCode(errors.CodeUnauthorized).
		WithMetadata(map[string]any{"backend_code": "USER_NOT_FOUND"})
}

func googleProfile(email string) *social.Profile {
	return &social.Profile{
		Provider:       "google",
		ProviderUserID: "g-123",
		Email:          email,
		EmailVerified:  true,
		Name:           "Asha Kapoor",
	}
}

func existingUser(role auth.Role) *auth.AuthenticatedUser {
	return &auth.AuthenticatedUser{
		ID:    "user-42",
		Name:  "Asha Kapoor",
		Email: "asha@example.com",
		Role:  role,
	}
}

type socialFixture struct {
	provider *MockProvider
	api      *MockIdentityAPI
	tokens   *MockTokenIssuer
	states   *social.EncryptedStateManager
	auther   *social.Authenticator
}

func newSocialFixture(t *testing.T) *socialFixture {
	t.Helper()

	f := &socialFixture{
		provider: &MockProvider{},
		api:      &MockIdentityAPI{},
		tokens:   &MockTokenIssuer{},
		states:   newStateManager(t, 10*time.Minute),
	}
	f.provider.On("Name").Return("google").Maybe()
	f.auther = social.NewAuthenticator(f.provider, f.api, f.tokens, f.states)

	return f
}

func (f *socialFixture) encodeState(t *testing.T, state *social.OAuthState) string {
	t.Helper()
	if state.Provider == "" {
		state.Provider = "google"
	}
	token, err := f.states.Encode(state)
	require.NoError(t, err)
	return token
}

func TestSocialAuthenticator_BeginAuth(t *testing.T) {
	f := newSocialFixture(t)

	f.provider.On("AuthCodeURL", mock.AnythingOfType("string")).
		Return("https://accounts.google.com/o/oauth2/auth?state=x")

	redirect, err := f.auther.BeginAuth(context.Background(), "/dashboard/client")
	require.NoError(t, err)

	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?state=x", redirect.URL)
	require.NotEmpty(t, redirect.State)

	state, err := f.states.Decode(redirect.State)
	require.NoError(t, err)
	assert.Equal(t, "google", state.Provider)
	assert.NotEmpty(t, state.CodeVerifier, "PKCE verifier must survive the redirect")
	assert.Equal(t, "/dashboard/client", state.RedirectURL)
}

func TestSocialAuthenticator_CompleteAuth_ExistingUser(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture(t)

	stateToken := f.encodeState(t, &social.OAuthState{CodeVerifier: "verifier"})

	f.provider.On("Exchange", ctx, "auth-code").Return(&social.Token{AccessToken: "at"}, nil)
	f.provider.On("UserInfo", ctx, mock.Anything).Return(googleProfile("asha@example.com"), nil)

	user := existingUser(auth.RoleTrainer)
	f.api.On("LookupByEmail", ctx, "asha@example.com").Return(user, nil)
	f.api.On("GoogleSignin", ctx, "asha@example.com").Return(user, nil)
	f.tokens.On("Issue", user).Return("session-jwt", nil)

	outcome, err := f.auther.CompleteAuth(ctx, "auth-code", stateToken, "")
	require.NoError(t, err)

	assert.Equal(t, social.OutcomeSignedIn, outcome.Status)
	assert.Equal(t, "session-jwt", outcome.SessionToken)
	assert.False(t, outcome.IsNewUser)
	assert.Equal(t, "/dashboard/trainer", outcome.RedirectPath)
	f.api.AssertNotCalled(t, "GoogleSignup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSocialAuthenticator_CompleteAuth_NewUser(t *testing.T) {
	ctx := context.Background()

	t.Run("no pending role routes to role selection", func(t *testing.T) {
		f := newSocialFixture(t)
		stateToken := f.encodeState(t, &social.OAuthState{CodeVerifier: "verifier"})

		f.provider.On("Exchange", ctx, "auth-code").Return(&social.Token{AccessToken: "at"}, nil)
		f.provider.On("UserInfo", ctx, mock.Anything).Return(googleProfile("new@example.com"), nil)
		f.api.On("LookupByEmail", ctx, "new@example.com").Return(nil, userNotFoundError())

		outcome, err := f.auther.CompleteAuth(ctx, "auth-code", stateToken, "")
		require.NoError(t, err)

		assert.Equal(t, social.OutcomeNeedsRole, outcome.Status)
		assert.Equal(t, "/signup/role", outcome.RedirectPath)
		assert.Empty(t, outcome.SessionToken)
		f.api.AssertNotCalled(t, "GoogleSignup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.api.AssertNotCalled(t, "GoogleSignin", mock.Anything, mock.Anything)
	})

	t.Run("pending role signs the user up then in", func(t *testing.T) {
		f := newSocialFixture(t)
		stateToken := f.encodeState(t, &social.OAuthState{CodeVerifier: "verifier"})

		f.provider.On("Exchange", ctx, "auth-code").Return(&social.Token{AccessToken: "at"}, nil)
		f.provider.On("UserInfo", ctx, mock.Anything).Return(googleProfile("new@example.com"), nil)
		f.api.On("LookupByEmail", ctx, "new@example.com").Return(nil, userNotFoundError())
		f.api.On("GoogleSignup", ctx, "new@example.com", "Asha Kapoor", auth.RoleClient).Return(nil)

		user := existingUser(auth.RoleClient)
		f.api.On("GoogleSignin", ctx, "new@example.com").Return(user, nil)
		f.tokens.On("Issue", user).Return("session-jwt", nil)

		outcome, err := f.auther.CompleteAuth(ctx, "auth-code", stateToken, auth.RoleClient)
		require.NoError(t, err)

		assert.Equal(t, social.OutcomeSignedIn, outcome.Status)
		assert.True(t, outcome.IsNewUser)
		assert.Equal(t, "session-jwt", outcome.SessionToken)
	})

	t.Run("signup failure aborts the whole attempt", func(t *testing.T) {
		f := newSocialFixture(t)
		stateToken := f.encodeState(t, &social.OAuthState{CodeVerifier: "verifier"})

		f.provider.On("Exchange", ctx, "auth-code").Return(&social.Token{AccessToken: "at"}, nil)
		f.provider.On("UserInfo", ctx, mock.Anything).Return(googleProfile("new@example.com"), nil)
		f.api.On("LookupByEmail", ctx, "new@example.com").Return(nil, userNotFoundError())
		f.api.On("GoogleSignup", ctx, "new@example.com", "Asha Kapoor", auth.RoleOwner).
			Return(errors.New("backend down", errors.CategoryOperation))

		_, err := f.auther.CompleteAuth(ctx, "auth-code", stateToken, auth.RoleOwner)
		require.Error(t, err)
		f.api.AssertNotCalled(t, "GoogleSignin", mock.Anything, mock.Anything)
		f.tokens.AssertNotCalled(t, "Issue", mock.Anything)
	})

	t.Run("signin failure after signup is still a failure", func(t *testing.T) {
		f := newSocialFixture(t)
		stateToken := f.encodeState(t, &social.OAuthState{CodeVerifier: "verifier"})

		f.provider.On("Exchange", ctx, "auth-code").Return(&social.Token{AccessToken: "at"}, nil)
		f.provider.On("UserInfo", ctx, mock.Anything).Return(googleProfile("new@example.com"), nil)
		f.api.On("LookupByEmail", ctx, "new@example.com").Return(nil, userNotFoundError())
		f.api.On("GoogleSignup", ctx, "new@example.com", "Asha Kapoor", auth.RoleClient).Return(nil)
		f.api.On("GoogleSignin", ctx, "new@example.com").
			Return(nil, errors.New("backend down", errors.CategoryOperation))

		_, err := f.auther.CompleteAuth(ctx, "auth-code", stateToken, auth.RoleClient)
		require.Error(t, err)
		f.tokens.AssertNotCalled(t, "Issue", mock.Anything)
	})
}

func TestSocialAuthenticator_CompleteAuth_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup transport error aborts instead of signing up", func(t *testing.T) {
		f := newSocialFixture(t)
		stateToken := f.encodeState(t, &social.OAuthState{CodeVerifier: "verifier"})

		f.provider.On("Exchange", ctx, "auth-code").Return(&social.Token{AccessToken: "at"}, nil)
		f.provider.On("UserInfo", ctx, mock.Anything).Return(googleProfile("asha@example.com"), nil)
		f.api.On("LookupByEmail", ctx, "asha@example.com").
			Return(nil, errors.New("connection refused", errors.CategoryOperation))

		_, err := f.auther.CompleteAuth(ctx, "auth-code", stateToken, auth.RoleClient)
		require.Error(t, err)
		f.api.AssertNotCalled(t, "GoogleSignup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid state token is rejected before the exchange", func(t *testing.T) {
		f := newSocialFixture(t)

		_, err := f.auther.CompleteAuth(ctx, "auth-code", "not-a-state-token", "")
		assert.ErrorIs(t, err, social.ErrInvalidState)
		f.provider.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
	})

	t.Run("state minted for another provider is rejected", func(t *testing.T) {
		f := newSocialFixture(t)
		stateToken := f.encodeState(t, &social.OAuthState{Provider: "github", CodeVerifier: "verifier"})

		_, err := f.auther.CompleteAuth(ctx, "auth-code", stateToken, "")
		assert.ErrorIs(t, err, social.ErrInvalidState)
		f.provider.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
	})

	t.Run("exchange failure is reported as such", func(t *testing.T) {
		f := newSocialFixture(t)
		stateToken := f.encodeState(t, &social.OAuthState{CodeVerifier: "verifier"})

		f.provider.On("Exchange", ctx, "bad-code").
			Return(nil, errors.New("invalid_grant", errors.CategoryAuth))

		_, err := f.auther.CompleteAuth(ctx, "bad-code", stateToken, "")
		require.Error(t, err)

		var rich *errors.Error
		require.ErrorAs(t, err, &rich)
		assert.Equal(t, social.TextCodeTokenExchangeFail, rich.TextCode)
	})

	t.Run("profile without an email passes through", func(t *testing.T) {
		f := newSocialFixture(t)
		stateToken := f.encodeState(t, &social.OAuthState{CodeVerifier: "verifier", RedirectURL: "/welcome"})

		f.provider.On("Exchange", ctx, "auth-code").Return(&social.Token{AccessToken: "at"}, nil)
		f.provider.On("UserInfo", ctx, mock.Anything).Return(googleProfile(""), nil)

		outcome, err := f.auther.CompleteAuth(ctx, "auth-code", stateToken, "")
		require.NoError(t, err)

		assert.Equal(t, social.OutcomePassThrough, outcome.Status)
		assert.Equal(t, "/welcome", outcome.RedirectPath)
		f.api.AssertNotCalled(t, "LookupByEmail", mock.Anything, mock.Anything)
	})
}
