package config

import (
	"os"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"

	auth "github.com/fitcrew/gym-auth"
)

// BaseConfig is the root configuration container. Structural settings come
// from the config file; secrets and deploy-specific values come from the
// environment and are applied by ApplyEnv after load.
type BaseConfig struct {
	App     App     `json:"app"`
	Auth    Auth    `json:"auth"`
	Backend Backend `json:"backend"`
	Google  Google  `json:"google"`
}

type App struct {
	Name    string `json:"name"`
	Env     string `json:"env"`
	Address string `json:"address"`
}

type Auth struct {
	SigningKey           string `json:"signing_key"`
	Issuer               string `json:"issuer"`
	TokenExpiration      int    `json:"token_expiration"`
	ReissueWindow        int    `json:"reissue_window"`
	ContextKey           string `json:"context_key"`
	RejectedRouteKey     string `json:"rejected_route_key"`
	RejectedRouteDefault string `json:"rejected_route_default"`

	cookieSecure bool
}

type Backend struct {
	BaseURL string `json:"base_url"`
}

type Google struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURL  string `json:"redirect_url"`
}

// ApplyEnv folds environment variables over the file-based configuration.
// Secrets never live in the config file.
func (c *BaseConfig) ApplyEnv() {
	setFromEnv(&c.App.Env, "APP_ENV")
	setFromEnv(&c.App.Address, "APP_ADDRESS")
	setFromEnv(&c.Auth.SigningKey, "SESSION_SIGNING_KEY")
	setFromEnv(&c.Auth.Issuer, "SESSION_ISSUER")
	setFromEnv(&c.Backend.BaseURL, "BACKEND_API_URL")
	setFromEnv(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setFromEnv(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setFromEnv(&c.Google.RedirectURL, "GOOGLE_REDIRECT_URL")

	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.App.Address == "" {
		c.App.Address = ":8590"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "gym-auth"
	}
	if c.Auth.ContextKey == "" {
		c.Auth.ContextKey = auth.DefaultSessionCookie
	}
	if c.Auth.RejectedRouteKey == "" {
		c.Auth.RejectedRouteKey = "gym-auth.rejected-route"
	}
	if c.Auth.RejectedRouteDefault == "" {
		c.Auth.RejectedRouteDefault = "/"
	}

	// secure unless explicitly running in development
	c.Auth.cookieSecure = c.App.Env != "development"
}

// Validate fails fast when a required secret or endpoint is missing: a
// process without them must not come up looking healthy. Environment
// overrides are folded in first so the check sees the final values
// regardless of when the loader runs it.
func (c *BaseConfig) Validate() error {
	c.ApplyEnv()

	err := validation.Errors{
		"auth.signing_key":     validation.Validate(c.Auth.SigningKey, validation.Required),
		"backend.base_url":     validation.Validate(c.Backend.BaseURL, validation.Required, is.URL),
		"google.client_id":     validation.Validate(c.Google.ClientID, validation.Required),
		"google.client_secret": validation.Validate(c.Google.ClientSecret, validation.Required),
	}.Filter()
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "incomplete server configuration")
	}
	return nil
}

// GetAuth returns the auth section; it satisfies the auth.Config interface.
func (c *BaseConfig) GetAuth() *Auth {
	return &c.Auth
}

func (a *Auth) GetSigningKey() string { return a.SigningKey }

func (a *Auth) GetIssuer() string { return a.Issuer }

func (a *Auth) GetTokenExpiration() int { return a.TokenExpiration }

func (a *Auth) GetReissueWindow() int { return a.ReissueWindow }

func (a *Auth) GetContextKey() string { return a.ContextKey }

func (a *Auth) GetRejectedRouteKey() string { return a.RejectedRouteKey }

func (a *Auth) GetRejectedRouteDefault() string { return a.RejectedRouteDefault }

func (a *Auth) GetCookieSecure() bool { return a.cookieSecure }

// IsDevelopment reports whether the process runs with relaxed transport
// requirements.
func (c *BaseConfig) IsDevelopment() bool {
	return c.App.Env == "development"
}

func setFromEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}
