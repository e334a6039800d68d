// Package authgate is the route authorization gate: one decision per
// request, evaluated before any page logic. The gate never surfaces an
// error to the client; every refusal is a redirect.
package authgate

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-router"

	auth "github.com/fitcrew/gym-auth"
)

// Config configures the gate.
type Config struct {
	// Tokens validates and re-issues session tokens. Required.
	Tokens auth.TokenIssuer

	// CookieName is the session cookie (default: auth.DefaultSessionCookie).
	CookieName string

	// ContextKey is the Locals key for decoded claims (default: "session").
	ContextKey string

	// PublicRoutes pass through without a session. Exact paths or
	// trailing-/* prefixes, e.g. "/about", "/blog/*".
	PublicRoutes []string

	// ProtectedPrefixes require a fully-formed session
	// (default: /dashboard, /settings, /profile).
	ProtectedPrefixes []string

	// AuthPrefix marks the auth subsystem's own routes; they always pass
	// (default: "/auth").
	AuthPrefix string

	SignInPath       string // default "/signin"
	SignUpPath       string // default "/signup"
	RoleSelectPath   string // default "/signup/role"
	GymSelectPath    string // default "/gym-selection"
	UnauthorizedPath string // default "/unauthorized"

	// RejectedRouteCookie preserves the original URL across the sign-in
	// redirect (default: "gym-auth.rejected-route").
	RejectedRouteCookie string

	// CookieSecure sets the Secure flag on cookies the gate writes.
	CookieSecure bool

	// SessionCookieTTL bounds re-issued session cookies
	// (default: auth.DefaultTokenExpiration).
	SessionCookieTTL time.Duration

	Logger auth.Logger
}

// Decision is the outcome of evaluating one request. Zero Redirect means
// pass through.
type Decision struct {
	Allow    bool
	Redirect string
}

func (cfg *Config) setDefaults() {
	if cfg.CookieName == "" {
		cfg.CookieName = auth.DefaultSessionCookie
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = "session"
	}
	if len(cfg.ProtectedPrefixes) == 0 {
		cfg.ProtectedPrefixes = []string{"/dashboard", "/settings", "/profile"}
	}
	if cfg.AuthPrefix == "" {
		cfg.AuthPrefix = "/auth"
	}
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/signin"
	}
	if cfg.SignUpPath == "" {
		cfg.SignUpPath = "/signup"
	}
	if cfg.RoleSelectPath == "" {
		cfg.RoleSelectPath = "/signup/role"
	}
	if cfg.GymSelectPath == "" {
		cfg.GymSelectPath = "/gym-selection"
	}
	if cfg.UnauthorizedPath == "" {
		cfg.UnauthorizedPath = "/unauthorized"
	}
	if cfg.RejectedRouteCookie == "" {
		cfg.RejectedRouteCookie = "gym-auth.rejected-route"
	}
	if cfg.SessionCookieTTL <= 0 {
		cfg.SessionCookieTTL = auth.DefaultTokenExpiration
	}
	if cfg.Logger == nil {
		cfg.Logger = auth.DefaultLogger()
	}
}

// Decide evaluates the routing rules for a path given the decoded claims
// (nil when the request has no valid session). It is a pure function of its
// inputs; cookie and context side effects live in the middleware.
//
// The rule order is load-bearing: auth and public routes must short-circuit
// before any protected-prefix rule runs, otherwise a signed-in user hitting
// /signin would be bounced through the protected-route checks before the
// gate has decided their role even matters.
func Decide(claims *auth.SessionClaims, path string, cfg Config) Decision {
	// 1. the auth subsystem's own routes always pass
	if strings.HasPrefix(path, cfg.AuthPrefix+"/") || path == cfg.AuthPrefix {
		return Decision{Allow: true}
	}

	// 2. sign-in/sign-up bounce an authenticated user to their dashboard
	if path == cfg.SignInPath || path == cfg.SignUpPath {
		if claims != nil && claims.HasRole() {
			return Decision{Redirect: auth.DashboardPath(claims.Role())}
		}
		return Decision{Allow: true}
	}

	// 3. explicitly public routes
	for _, route := range cfg.PublicRoutes {
		if matchRoute(route, path) {
			return Decision{Allow: true}
		}
	}

	// 4. protected prefixes
	for _, prefix := range cfg.ProtectedPrefixes {
		if path != prefix && !strings.HasPrefix(path, prefix+"/") {
			continue
		}

		if claims == nil {
			return Decision{Redirect: cfg.SignInPath}
		}

		if !claims.HasRole() {
			return Decision{Redirect: cfg.RoleSelectPath}
		}

		// a trainer with no gym goes to gym selection and nowhere else,
		// even when the sub-path would be role-mismatched
		if claims.Role() == auth.RoleTrainer && !claims.HasGym() {
			return Decision{Redirect: cfg.GymSelectPath}
		}

		if prefix == "/dashboard" {
			if scoped := roleScope(path); scoped != "" && scoped != claims.Role() {
				return Decision{Redirect: cfg.UnauthorizedPath}
			}
			if path == prefix {
				return Decision{Redirect: auth.DashboardPath(claims.Role())}
			}
		}

		return Decision{Allow: true}
	}

	// 5. everything else passes
	return Decision{Allow: true}
}

// New builds the gate middleware. The session token is decoded at most once
// per request; decoded claims are published to router Locals and the
// standard context for downstream reads. A token past its rolling reissue
// window is transparently re-signed and the cookie replaced on the way in.
func New(cfg Config) router.MiddlewareFunc {
	cfg.setDefaults()

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims := decodeSession(ctx, cfg)

			decision := Decide(claims, ctx.Path(), cfg)

			if decision.Redirect != "" {
				// an anonymous redirect to sign-in remembers where the
				// user was headed
				if claims == nil && decision.Redirect == cfg.SignInPath {
					setRejectedRoute(ctx, cfg)
				}
				return redirect(ctx, decision.Redirect)
			}

			if claims != nil {
				ctx.Locals(cfg.ContextKey, claims)
				ctx.SetContext(auth.WithClaimsContext(ctx.Context(), claims))

				if cfg.Tokens.NeedsReissue(claims) {
					reissue(ctx, claims, cfg)
				}
			}

			return hf(ctx)
		}
	}
}

func decodeSession(ctx router.Context, cfg Config) *auth.SessionClaims {
	raw := ctx.Cookies(cfg.CookieName)
	if raw == "" {
		return nil
	}

	claims, err := cfg.Tokens.Validate(raw)
	if err != nil {
		if auth.IsTokenExpiredError(err) {
			cfg.Logger.Info("expired session token on %s", ctx.Path())
		} else {
			cfg.Logger.Warn("rejecting session token: %v", err)
		}
		return nil
	}
	return claims
}

func reissue(ctx router.Context, claims *auth.SessionClaims, cfg Config) {
	token, err := cfg.Tokens.Refresh(claims, auth.SessionPatch{})
	if err != nil {
		// the current token is still valid; skip the rolling refresh
		cfg.Logger.Warn("session reissue failed: %v", err)
		return
	}

	ctx.Cookie(&router.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cfg.SessionCookieTTL),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: "Lax",
	})
}

func setRejectedRoute(ctx router.Context, cfg Config) {
	ctx.Cookie(&router.Cookie{
		Name:     cfg.RejectedRouteCookie,
		Value:    ctx.OriginalURL(),
		Path:     "/",
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: "Lax",
	})
}

func redirect(ctx router.Context, target string) error {
	status := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		status = http.StatusFound
	}
	return ctx.Redirect(target, status)
}

// roleScope extracts the role segment of /dashboard/{role}/... paths.
// Unknown segments are not role-scoped.
func roleScope(path string) auth.Role {
	rest := strings.TrimPrefix(path, "/dashboard/")
	if rest == path {
		return ""
	}
	seg := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		seg = rest[:i]
	}
	if role, ok := auth.ParseRole(seg); ok {
		return role
	}
	return ""
}

func matchRoute(pattern, path string) bool {
	if pattern == "" {
		return false
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return pattern == path
}
