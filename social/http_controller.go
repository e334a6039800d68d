package social

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	auth "github.com/fitcrew/gym-auth"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController handles the Google OAuth HTTP routes and the pending-role
// cookie the callback consumes.
type HTTPController struct {
	authenticator *Authenticator
	pendingRoles  *PendingRoleCodec
	config        HTTPConfig
	logger        auth.Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// BeginPath starts the OAuth flow (default: "/auth/google")
	BeginPath string

	// CallbackPath receives the provider redirect (default: "/auth/google/callback")
	CallbackPath string

	// RoleSelectPath accepts the pre-redirect role choice (default: "/signup/role")
	RoleSelectPath string

	// SessionCookieName stores the issued session token
	// (default: auth.DefaultSessionCookie)
	SessionCookieName string

	// SessionCookieTTL bounds the session cookie lifetime
	// (default: auth.DefaultTokenExpiration)
	SessionCookieTTL time.Duration

	// CookieSecure sets the Secure flag on every cookie the controller writes
	CookieSecure bool

	// SuccessRedirect is the fallback redirect after a pass-through callback
	SuccessRedirect string

	// ErrorRedirect is the redirect for auth errors
	ErrorRedirect string

	// ErrorHandler handles errors (optional)
	ErrorHandler func(ctx router.Context, err error) error

	// Logger (optional)
	Logger auth.Logger
}

// NewHTTPController creates the Google OAuth HTTP controller.
func NewHTTPController(authenticator *Authenticator, pendingRoles *PendingRoleCodec, cfg HTTPConfig) *HTTPController {
	if cfg.BeginPath == "" {
		cfg.BeginPath = "/auth/google"
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = "/auth/google/callback"
	}
	if cfg.RoleSelectPath == "" {
		cfg.RoleSelectPath = "/signup/role"
	}
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = auth.DefaultSessionCookie
	}
	if cfg.SessionCookieTTL <= 0 {
		cfg.SessionCookieTTL = auth.DefaultTokenExpiration
	}
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/signin?error=auth_failed"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	return &HTTPController{
		authenticator: authenticator,
		pendingRoles:  pendingRoles,
		config:        cfg,
		logger:        logger,
	}
}

// RegisterRoutes mounts the OAuth endpoints.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get(c.config.BeginPath, c.BeginAuth)
	group.Get(c.config.CallbackPath, c.Callback)
	group.Post(c.config.RoleSelectPath, c.SelectRolePost)
}

// BeginAuth starts the OAuth flow and redirects to the provider.
func (c *HTTPController) BeginAuth(ctx router.Context) error {
	redirectURL := ctx.Query("redirect_url", "")

	redirect, err := c.authenticator.BeginAuth(ctx.Context(), redirectURL)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback handles the provider redirect. The pending-role cookie is
// consumed and expired on every callback, signed in or not, so a stale
// choice can never leak into a later attempt.
func (c *HTTPController) Callback(ctx router.Context) error {
	code := ctx.Query("code", "")
	state := ctx.Query("state", "")

	if errCode := ctx.Query("error", ""); errCode != "" {
		c.logger.Info("provider returned error %s", errCode)
		redirectURL := appendQueryParam(c.config.ErrorRedirect, "oauth_error", errCode)
		return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
	}

	if code == "" || state == "" {
		redirectURL := appendQueryParam(c.config.ErrorRedirect, "error", "missing_params")
		return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
	}

	pendingRole := c.consumePendingRole(ctx)

	outcome, err := c.authenticator.CompleteAuth(ctx.Context(), code, state, pendingRole)
	if err != nil {
		return c.handleError(ctx, err)
	}

	switch outcome.Status {
	case OutcomeNeedsRole:
		return ctx.Redirect(outcome.RedirectPath, http.StatusSeeOther)

	case OutcomePassThrough:
		redirectURL := outcome.RedirectPath
		if redirectURL == "" {
			redirectURL = c.config.SuccessRedirect
		}
		return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
	}

	c.setSessionCookie(ctx, outcome.SessionToken)

	redirectURL := outcome.RedirectPath
	if outcome.IsNewUser {
		redirectURL = appendQueryParam(redirectURL, "new_user", "true")
	}

	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

type selectRolePayload struct {
	Role string `json:"role" form:"role"`
}

// SelectRolePost records a pre-redirect role choice in a signed short-lived
// cookie and points the client back at the OAuth entry route.
func (c *HTTPController) SelectRolePost(ctx router.Context) error {
	payload := new(selectRolePayload)

	if err := ctx.Bind(payload); err != nil {
		return c.renderError(ctx, router.StatusBadRequest, auth.ErrInvalidInput)
	}

	role, ok := auth.ParseRole(payload.Role)
	if !ok {
		return c.renderError(ctx, router.StatusBadRequest, auth.ErrInvalidInput)
	}

	value, err := c.pendingRoles.Encode(role)
	if err != nil {
		return c.renderError(ctx, router.StatusInternalServerError, err)
	}

	ctx.Cookie(&router.Cookie{
		Name:     PendingRoleCookie,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(PendingRoleTTL),
		HTTPOnly: true,
		Secure:   c.config.CookieSecure,
		SameSite: "Lax",
	})

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":  true,
		"redirect": c.config.BeginPath,
	})
}

// consumePendingRole reads, expires, and decodes the pending-role cookie.
// A missing or invalid cookie is an empty role, never an error: the
// callback decides what an absent role means.
func (c *HTTPController) consumePendingRole(ctx router.Context) auth.Role {
	raw := ctx.Cookies(PendingRoleCookie)
	if raw == "" {
		return ""
	}

	c.expireCookie(ctx, PendingRoleCookie)

	role, err := c.pendingRoles.Decode(raw)
	if err != nil {
		c.logger.Warn("discarding pending role cookie: %v", err)
		return ""
	}
	return role
}

func (c *HTTPController) setSessionCookie(ctx router.Context, token string) {
	ctx.Cookie(&router.Cookie{
		Name:     c.config.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(c.config.SessionCookieTTL),
		HTTPOnly: true,
		Secure:   c.config.CookieSecure,
		SameSite: "Lax",
	})
}

func (c *HTTPController) expireCookie(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   c.config.CookieSecure,
		SameSite: "Lax",
	})
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	if c.config.ErrorHandler != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	c.logger.Error("oauth callback failed: %v", err)

	redirectURL := appendQueryParam(c.config.ErrorRedirect, "kind", string(auth.Kind(err)))
	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

func (c *HTTPController) renderError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]any{
		"success": false,
		"error": map[string]any{
			"kind":    auth.Kind(err),
			"code":    auth.BackendCode(err),
			"message": err.Error(),
		},
	})
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
