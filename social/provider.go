package social

import (
	"context"
	"time"
)

// Provider defines the interface for OAuth2 identity providers.
type Provider interface {
	// Name returns the provider identifier (e.g., "google").
	Name() string

	// AuthCodeURL returns the URL to redirect users for authorization.
	// The state parameter must be included for CSRF protection.
	AuthCodeURL(state string, opts ...AuthCodeOption) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error)

	// UserInfo fetches the user's profile using the access token.
	UserInfo(ctx context.Context, token *Token) (*Profile, error)
}

// AuthCodeOption configures the authorization URL.
type AuthCodeOption func(*authCodeConfig)

// WithPKCE enables PKCE with the given code challenge.
func WithPKCE(codeChallenge, method string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.codeChallenge = codeChallenge
		c.codeChallengeMethod = method
	}
}

// WithPrompt sets the prompt parameter (e.g., "consent", "select_account").
func WithPrompt(prompt string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.prompt = prompt
	}
}

// ExchangeOption configures the token exchange.
type ExchangeOption func(*exchangeConfig)

// WithCodeVerifier sets the PKCE code verifier for token exchange.
func WithCodeVerifier(verifier string) ExchangeOption {
	return func(c *exchangeConfig) {
		c.codeVerifier = verifier
	}
}

type authCodeConfig struct {
	codeChallenge       string
	codeChallengeMethod string
	prompt              string
}

type exchangeConfig struct {
	codeVerifier string
}

func applyAuthCodeOptions(opts ...AuthCodeOption) authCodeConfig {
	cfg := authCodeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func applyExchangeOptions(opts ...ExchangeOption) exchangeConfig {
	cfg := exchangeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Token represents an OAuth2 token response.
type Token struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	IDToken      string
	ExpiresAt    time.Time
}

// Profile represents normalized user information from a provider.
type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
	Raw            map[string]any
}
