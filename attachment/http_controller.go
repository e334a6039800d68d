package attachment

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"

	auth "github.com/fitcrew/gym-auth"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the attachment HTTP controller.
type HTTPConfig struct {
	// AttachPath accepts QR scans (default: "/gym/attach")
	AttachPath string

	// TokenPath accepts trainer onboarding tokens (default: "/gym/token")
	TokenPath string

	// SessionContextKey is the Locals key the gate stores claims under
	// (default: "session")
	SessionContextKey string

	// SessionCookieName carries the refreshed session after attachment
	// (default: auth.DefaultSessionCookie)
	SessionCookieName string

	// SessionCookieTTL bounds the refreshed cookie
	// (default: auth.DefaultTokenExpiration)
	SessionCookieTTL time.Duration

	// CookieSecure sets the Secure flag on the refreshed cookie
	CookieSecure bool

	// Logger (optional)
	Logger auth.Logger
}

// HTTPController exposes the gym-attachment flow over HTTP. Each request
// rebuilds the flow from the session claims; the server holds no per-user
// state between requests.
type HTTPController struct {
	api    auth.IdentityAPI
	tokens auth.TokenIssuer
	config HTTPConfig
	logger auth.Logger
}

// NewHTTPController creates the attachment HTTP controller.
func NewHTTPController(api auth.IdentityAPI, tokens auth.TokenIssuer, cfg HTTPConfig) *HTTPController {
	if cfg.AttachPath == "" {
		cfg.AttachPath = "/gym/attach"
	}
	if cfg.TokenPath == "" {
		cfg.TokenPath = "/gym/token"
	}
	if cfg.SessionContextKey == "" {
		cfg.SessionContextKey = "session"
	}
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = auth.DefaultSessionCookie
	}
	if cfg.SessionCookieTTL <= 0 {
		cfg.SessionCookieTTL = auth.DefaultTokenExpiration
	}

	logger := cfg.Logger
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	return &HTTPController{
		api:    api,
		tokens: tokens,
		config: cfg,
		logger: logger,
	}
}

// RegisterRoutes mounts the attachment endpoints. They sit behind the
// authorization gate, so claims are always present in Locals.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Post(c.config.AttachPath, c.AttachPost)
	group.Post(c.config.TokenPath, c.TokenPost)
}

type attachPayload struct {
	// Payload is the raw scanned QR string, verbatim.
	Payload string `json:"payload" form:"payload"`
}

type tokenPayload struct {
	Token string `json:"token" form:"token"`
}

// AttachPost runs one scan through the flow: decode the QR, route
// attendance scans to the attendance endpoint, verify onboarding scans
// against the backend, and fold the confirmed gym into the session cookie.
func (c *HTTPController) AttachPost(ctx router.Context) error {
	claims, ok := auth.GetRouterClaims(ctx, c.config.SessionContextKey)
	if !ok {
		return c.renderError(ctx, router.StatusUnauthorized, auth.ErrUnableToFindSession, "")
	}

	payload := new(attachPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.renderError(ctx, router.StatusBadRequest, auth.ErrInvalidInput, "")
	}

	flow := NewFlow(c.api, c.tokens,
		WithSelectedRole(claims.Role()),
		WithFlowLogger(c.logger),
	)

	if err := flow.StartScanning(); err != nil {
		return c.renderError(ctx, router.StatusBadRequest, err, string(flow.State()))
	}

	scanned, err := flow.Scan(payload.Payload)
	if err != nil {
		return c.renderError(ctx, router.StatusBadRequest, err, string(flow.State()))
	}

	if scanned.IsAttendance() {
		if err := flow.RecordAttendance(ctx.Context(), claims, scanned.Attendance); err != nil {
			return c.renderError(ctx, statusFor(err), err, string(flow.State()))
		}
		return ctx.JSON(router.StatusOK, map[string]any{
			"success": true,
			"action":  "attendance",
		})
	}

	result, err := flow.Verify(ctx.Context(), claims)
	if err != nil {
		return c.renderError(ctx, statusFor(err), err, string(flow.State()))
	}

	return c.renderAttached(ctx, result)
}

// TokenPost attaches a trainer through a 7-character onboarding token.
func (c *HTTPController) TokenPost(ctx router.Context) error {
	claims, ok := auth.GetRouterClaims(ctx, c.config.SessionContextKey)
	if !ok {
		return c.renderError(ctx, router.StatusUnauthorized, auth.ErrUnableToFindSession, "")
	}

	payload := new(tokenPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.renderError(ctx, router.StatusBadRequest, auth.ErrInvalidInput, "")
	}

	flow := NewFlow(c.api, c.tokens,
		WithSelectedRole(claims.Role()),
		WithFlowLogger(c.logger),
	)

	result, err := flow.VerifyTrainerToken(ctx.Context(), claims, payload.Token)
	if err != nil {
		return c.renderError(ctx, statusFor(err), err, string(flow.State()))
	}

	return c.renderAttached(ctx, result)
}

func (c *HTTPController) renderAttached(ctx router.Context, result *Result) error {
	ctx.Cookie(&router.Cookie{
		Name:     c.config.SessionCookieName,
		Value:    result.SessionToken,
		Path:     "/",
		Expires:  time.Now().Add(c.config.SessionCookieTTL),
		HTTPOnly: true,
		Secure:   c.config.CookieSecure,
		SameSite: "Lax",
	})

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"action":  "attached",
		"gym":     result.Gym,
	})
}

// renderError carries the error kind so the client can render a specific
// state: expired asks for a fresh scan, server errors offer a retry with
// the same payload, rejections show the backend message.
func (c *HTTPController) renderError(ctx router.Context, status int, err error, state string) error {
	kind := auth.Kind(err)

	body := map[string]any{
		"success": false,
		"error": map[string]any{
			"kind":    kind,
			"code":    auth.BackendCode(err),
			"message": err.Error(),
		},
		"retry": retryGuidance(kind),
	}
	if state != "" {
		body["state"] = state
	}

	return ctx.JSON(status, body)
}

func statusFor(err error) int {
	switch auth.Kind(err) {
	case auth.KindInvalidInput:
		return http.StatusBadRequest
	case auth.KindExpired, auth.KindBackendRejected:
		return http.StatusUnprocessableEntity
	case auth.KindServerError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func retryGuidance(kind auth.ErrorKind) string {
	switch kind {
	case auth.KindInvalidInput:
		return "fix_input"
	case auth.KindExpired:
		return "rescan"
	case auth.KindServerError:
		return "retry_same_payload"
	case auth.KindBackendRejected:
		return "new_input"
	default:
		return "none"
	}
}
