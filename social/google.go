package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	defaultJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleConfig holds Google OAuth configuration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	JWKSURL     string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Google implements Provider for Google.
type Google struct {
	config     GoogleConfig
	httpClient *http.Client

	jwksOnce sync.Once
	jwks     *keyfunc.JWKS
	jwksErr  error
}

var _ Provider = (*Google)(nil)

// NewGoogle creates a new Google provider.
func NewGoogle(cfg GoogleConfig) *Google {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Google{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements Provider.
func (p *Google) Name() string {
	return "google"
}

// AuthCodeURL implements Provider.
func (p *Google) AuthCodeURL(state string, opts ...AuthCodeOption) string {
	cfg := applyAuthCodeOptions(opts...)

	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(p.config.Scopes, " ")},
		"state":         {state},
		"access_type":   {"offline"},
	}

	if cfg.codeChallenge != "" {
		method := cfg.codeChallengeMethod
		if method == "" {
			method = "S256"
		}
		params.Set("code_challenge", cfg.codeChallenge)
		params.Set("code_challenge_method", method)
	}

	if cfg.prompt != "" {
		params.Set("prompt", cfg.prompt)
	}

	return p.config.AuthURL + "?" + params.Encode()
}

// Exchange implements Provider.
func (p *Google) Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error) {
	cfg := applyExchangeOptions(opts...)

	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.CallbackURL},
		"grant_type":    {"authorization_code"},
	}
	if cfg.codeVerifier != "" {
		data.Set("code_verifier", cfg.codeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("google: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: token exchange: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("google: token exchange failed (%d): %s", res.StatusCode, string(body))
	}

	var tr struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		RefreshToken string `json:"refresh_token"`
		IDToken      string `json:"id_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("google: decode token response: %w", err)
	}

	token := &Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
		IDToken:      tr.IDToken,
	}
	if tr.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return token, nil
}

// UserInfo implements Provider. When the token carries an ID token it is
// verified against Google's JWKS first; the userinfo endpoint is the
// fallback for opaque access tokens.
func (p *Google) UserInfo(ctx context.Context, token *Token) (*Profile, error) {
	if token == nil {
		return nil, fmt.Errorf("google: nil token")
	}

	if token.IDToken != "" {
		profile, err := p.profileFromIDToken(token.IDToken)
		if err == nil {
			return profile, nil
		}
		// fall through to the userinfo endpoint only on JWKS fetch
		// trouble, not on a bad signature
		if _, bad := err.(*idTokenError); bad {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google: create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	res, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: userinfo: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("google: userinfo failed (%d): %s", res.StatusCode, string(body))
	}

	var ui struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(res.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("google: decode userinfo: %w", err)
	}

	return &Profile{
		Provider:       p.Name(),
		ProviderUserID: ui.Sub,
		Email:          ui.Email,
		EmailVerified:  ui.EmailVerified,
		Name:           ui.Name,
		AvatarURL:      ui.Picture,
	}, nil
}

type idTokenError struct {
	cause error
}

func (e *idTokenError) Error() string {
	return "google: invalid id token: " + e.cause.Error()
}

func (e *idTokenError) Unwrap() error {
	return e.cause
}

func (p *Google) profileFromIDToken(raw string) (*Profile, error) {
	p.jwksOnce.Do(func() {
		p.jwks, p.jwksErr = keyfunc.Get(p.config.JWKSURL, keyfunc.Options{
			RefreshInterval: time.Hour,
		})
	})
	if p.jwksErr != nil {
		return nil, fmt.Errorf("google: fetch jwks: %w", p.jwksErr)
	}

	var claims struct {
		jwt.RegisteredClaims
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}

	_, err := jwt.ParseWithClaims(raw, &claims, p.jwks.Keyfunc,
		jwt.WithAudience(p.config.ClientID),
	)
	if err != nil {
		return nil, &idTokenError{cause: err}
	}

	return &Profile{
		Provider:       p.Name(),
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		Name:           claims.Name,
		AvatarURL:      claims.Picture,
	}, nil
}
