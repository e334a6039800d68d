package social

import (
	"context"

	auth "github.com/fitcrew/gym-auth"
)

// OutcomeStatus discriminates the three results of an OAuth callback.
type OutcomeStatus string

const (
	// OutcomeSignedIn: the user is authenticated and a session token was
	// issued.
	OutcomeSignedIn OutcomeStatus = "signed_in"
	// OutcomeNeedsRole: a new user arrived without a pending role
	// selection; the flow must route to role-selection rather than
	// defaulting a role.
	OutcomeNeedsRole OutcomeStatus = "needs_role"
	// OutcomePassThrough: the callback payload is not one we run gym
	// logic for (unrecognized provider shape or missing email); nothing
	// was authenticated and nothing failed.
	OutcomePassThrough OutcomeStatus = "pass_through"
)

// Outcome is the result of a completed OAuth callback. Redirection is an
// explicit variant, not a success value smuggled through a URL string.
type Outcome struct {
	Status       OutcomeStatus
	User         *auth.AuthenticatedUser
	SessionToken string
	RedirectPath string
	IsNewUser    bool
}

// Authenticator orchestrates the Google sign-in flow against the backend.
type Authenticator struct {
	provider       Provider
	api            auth.IdentityAPI
	tokens         auth.TokenIssuer
	states         StateManager
	logger         auth.Logger
	roleSelectPath string
}

// AuthenticatorOption configures the social authenticator.
type AuthenticatorOption func(*Authenticator)

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) AuthenticatorOption {
	return func(sa *Authenticator) {
		if sm != nil {
			sa.states = sm
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger auth.Logger) AuthenticatorOption {
	return func(sa *Authenticator) {
		if logger != nil {
			sa.logger = logger
		}
	}
}

// WithRoleSelectPath overrides where a role-less new user is routed.
func WithRoleSelectPath(path string) AuthenticatorOption {
	return func(sa *Authenticator) {
		if path != "" {
			sa.roleSelectPath = path
		}
	}
}

// NewAuthenticator creates a social authenticator.
func NewAuthenticator(
	provider Provider,
	api auth.IdentityAPI,
	tokens auth.TokenIssuer,
	states StateManager,
	opts ...AuthenticatorOption,
) *Authenticator {
	sa := &Authenticator{
		provider:       provider,
		api:            api,
		tokens:         tokens,
		states:         states,
		logger:         auth.DefaultLogger(),
		roleSelectPath: "/signup/role",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sa)
		}
	}

	return sa
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL   string
	State string
}

// BeginAuth starts the OAuth flow: a fresh PKCE verifier and an encrypted
// state token the callback will verify.
func (sa *Authenticator) BeginAuth(ctx context.Context, redirectURL string) (*AuthRedirect, error) {
	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, wrapProviderError(ErrInvalidState, sa.provider.Name(), "code_verifier", err)
	}

	state := &OAuthState{
		Provider:     sa.provider.Name(),
		CodeVerifier: codeVerifier,
		RedirectURL:  redirectURL,
	}

	stateToken, err := sa.states.Encode(state)
	if err != nil {
		return nil, err
	}

	authURL := sa.provider.AuthCodeURL(stateToken, WithPKCE(computeCodeChallenge(codeVerifier), "S256"))

	return &AuthRedirect{URL: authURL, State: stateToken}, nil
}

// CompleteAuth finishes the OAuth flow after the provider callback.
//
// pendingRole is the consumed PendingRoleSelection cookie value, empty when
// the cookie was absent or invalid. Any backend failure at any step aborts
// the whole attempt; the flow never leaves a session partially populated.
func (sa *Authenticator) CompleteAuth(ctx context.Context, code, stateToken string, pendingRole auth.Role) (*Outcome, error) {
	state, err := sa.states.Decode(stateToken)
	if err != nil {
		return nil, err
	}

	if state.Provider != sa.provider.Name() {
		return nil, ErrInvalidState
	}

	token, err := sa.provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, sa.provider.Name(), "exchange", err)
	}

	profile, err := sa.provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, sa.provider.Name(), "user_info", err)
	}

	// Unrecognized provider shape or missing email: no gym logic applies.
	if profile == nil || profile.Provider != sa.provider.Name() || profile.Email == "" {
		return &Outcome{Status: OutcomePassThrough, RedirectPath: state.RedirectURL}, nil
	}

	isNew := false
	if _, err := sa.api.LookupByEmail(ctx, profile.Email); err != nil {
		// Only the backend's explicit "no such user" selects the
		// sign-up branch. A transport error here must abort: treating
		// it as a new user risks duplicate sign-up attempts.
		if auth.BackendCode(err) != "USER_NOT_FOUND" {
			sa.logger.Error("google lookup failed for %s: %v", profile.Email, err)
			return nil, err
		}

		if pendingRole == "" {
			sa.logger.Info("new google user %s has no role selection", profile.Email)
			return &Outcome{Status: OutcomeNeedsRole, RedirectPath: sa.roleSelectPath}, nil
		}

		if err := sa.api.GoogleSignup(ctx, profile.Email, profile.Name, pendingRole); err != nil {
			sa.logger.Error("google signup failed for %s: %v", profile.Email, err)
			return nil, err
		}
		isNew = true
	}

	user, err := sa.api.GoogleSignin(ctx, profile.Email)
	if err != nil {
		sa.logger.Error("google signin failed for %s: %v", profile.Email, err)
		return nil, err
	}

	sessionToken, err := sa.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	redirect := state.RedirectURL
	if redirect == "" {
		redirect = auth.DashboardPath(user.Role)
	}

	return &Outcome{
		Status:       OutcomeSignedIn,
		User:         user,
		SessionToken: sessionToken,
		RedirectPath: redirect,
		IsNewUser:    isNew,
	}, nil
}
