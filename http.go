package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// DefaultSessionCookie is the session cookie name; the payload is an opaque
// signed token.
const DefaultSessionCookie = "gym-auth.session-token"

// RouteAuthenticator owns the HTTP binding of the session: the session
// cookie and the rejected-route side-channel used to restore the original
// URL after a sign-in redirect. Cookie attributes are the security
// invariants of the system: HttpOnly, SameSite=Lax, Secure outside
// development. They are set in exactly one place.
type RouteAuthenticator struct {
	auther           *Auther
	tokens           TokenIssuer
	cfg              Config
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther *Auther, tokens TokenIssuer, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := DefaultTokenExpiration
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auther:         auther,
		tokens:         tokens,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a *RouteAuthenticator) SessionCookieName() string {
	name := a.cfg.GetContextKey()
	if name == "" {
		name = DefaultSessionCookie
	}
	return name
}

// SignIn authenticates credentials and binds the session token to the
// response cookie.
func (a *RouteAuthenticator) SignIn(ctx router.Context, creds Credentials) (*AuthenticatedUser, error) {
	user, err := a.auther.Authenticate(ctx.Context(), creds)
	if err != nil {
		a.Logger.Error("SignIn error", "error", err)
		return nil, err
	}

	token, err := a.tokens.Issue(user)
	if err != nil {
		a.Logger.Error("SignIn token issue error", "error", err)
		return nil, err
	}

	a.SetSessionCookie(ctx, token)
	return user, nil
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.SessionCookieName())
}

// SetSessionCookie binds a signed session token to the response.
func (a *RouteAuthenticator) SetSessionCookie(c router.Context, token string) {
	c.Cookie(&router.Cookie{
		Name:     a.SessionCookieName(),
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.cookieDuration),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

// SessionFromRequest reads and validates the session cookie.
func (a *RouteAuthenticator) SessionFromRequest(c router.Context) (*SessionClaims, error) {
	raw := c.Cookies(a.SessionCookieName())
	if raw == "" {
		return nil, ErrUnableToFindSession
	}
	return a.tokens.Validate(raw)
}

func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Path:     "/",
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to sign-in",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect("/signin", statusCode)
}
