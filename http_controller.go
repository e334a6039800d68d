package auth

import (
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the credential auth endpoints.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.SignIn, controller.SignInPost).SetName("sign-in.post")
	app.Post(controller.Routes.SignUp, controller.SignUpPost).SetName("sign-up.post")
	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")
}

type AuthControllerRoutes struct {
	SignIn string
	SignUp string
	Logout string
}

type AuthController struct {
	Debug  bool
	Logger Logger
	Routes *AuthControllerRoutes
	Auther *RouteAuthenticator
}

type AuthControllerOption func(*AuthController) *AuthController

// WithRouteAuthenticator sets the HTTP authenticator for the controller.
func WithRouteAuthenticator(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			SignIn: "/signin",
			SignUp: "/signup",
			Logout: "/logout",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	return c
}

// SignInPost handles credential sign-in. The payload carries only email and
// password; name/role presence would make it a sign-up, which has its own
// route so the two cannot be conflated by a stray form field.
func (a *AuthController) SignInPost(ctx router.Context) error {
	payload := new(Credentials)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign-in parse payload: %v", err)
		return a.renderError(ctx, router.StatusBadRequest, ErrInvalidInput)
	}

	payload.Name = ""
	payload.Role = ""

	return a.authenticate(ctx, *payload)
}

// SignUpPost handles credential sign-up.
func (a *AuthController) SignUpPost(ctx router.Context) error {
	payload := new(Credentials)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign-up parse payload: %v", err)
		return a.renderError(ctx, router.StatusBadRequest, ErrInvalidInput)
	}

	return a.authenticate(ctx, *payload)
}

func (a *AuthController) authenticate(ctx router.Context, creds Credentials) error {
	if a.Debug {
		fmt.Println("======= AUTH ======")
		fmt.Println(print.MaybePrettyJSON(creds))
		fmt.Println("===================")
	}

	user, err := a.Auther.SignIn(ctx, creds)
	if err != nil {
		status := router.StatusUnauthorized
		if Kind(err) == KindInvalidInput {
			status = router.StatusBadRequest
		}
		return a.renderError(ctx, status, err)
	}

	redirect := a.Auther.GetRedirect(ctx, DashboardPath(user.Role))

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":  true,
		"data":     user,
		"redirect": redirect,
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusSeeOther)
}

func (a *AuthController) renderError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]any{
		"success": false,
		"error": map[string]any{
			"kind":    Kind(err),
			"code":    BackendCode(err),
			"message": err.Error(),
		},
	})
}
