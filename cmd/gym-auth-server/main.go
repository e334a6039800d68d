package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/joho/godotenv"

	auth "github.com/fitcrew/gym-auth"
	"github.com/fitcrew/gym-auth/attachment"
	"github.com/fitcrew/gym-auth/backend"
	"github.com/fitcrew/gym-auth/cmd/gym-auth-server/config"
	"github.com/fitcrew/gym-auth/middleware/authgate"
	"github.com/fitcrew/gym-auth/social"
)

// App wires the auth subsystem: backend client, token service, credential
// and OAuth authenticators, the attachment flow, and the route gate.
type App struct {
	config *gconfig.Container[*config.BaseConfig]
	logger *glog.BaseLogger

	api    auth.IdentityAPI
	tokens *auth.TokenService
	auther *auth.RouteAuthenticator
	srv    router.Server[*fiber.App]
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	// local development convenience; production injects real env vars
	_ = godotenv.Load()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("gym-auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	// fail fast: a server without its secrets must not come up
	if err := app.Config().Validate(); err != nil {
		panic(err)
	}

	if app.Config().IsDevelopment() {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(app.Config()))
		fmt.Println("============")
	}

	if err := WithHTTPServer(app); err != nil {
		panic(err)
	}

	if err := WithAuth(app); err != nil {
		panic(err)
	}

	WithRoutes(app)

	app.srv.Serve(app.Config().App.Address)

	WaitExitSignal()
}

func WithHTTPServer(app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       app.Config().App.Name,
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	app.srv = srv

	return nil
}

func WithAuth(app *App) error {
	c := app.Config()
	acfg := c.GetAuth()

	app.api = backend.New(c.Backend.BaseURL,
		backend.WithLogger(app.GetLogger("backend")),
	)

	tokenOpts := []auth.TokenServiceOption{
		auth.WithTokenLogger(app.GetLogger("auth:tokens")),
	}
	if acfg.GetTokenExpiration() > 0 {
		tokenOpts = append(tokenOpts, auth.WithTokenExpiration(time.Duration(acfg.GetTokenExpiration())*time.Hour))
	}
	if acfg.GetReissueWindow() > 0 {
		tokenOpts = append(tokenOpts, auth.WithReissueWindow(time.Duration(acfg.GetReissueWindow())*time.Hour))
	}

	app.tokens = auth.NewTokenService(
		[]byte(acfg.GetSigningKey()),
		acfg.GetIssuer(),
		tokenOpts...,
	)

	authenticator := auth.NewAuthenticator(app.api, app.tokens).
		WithLogger(app.GetLogger("auth:creds"))

	auther, err := auth.NewHTTPAuthenticator(authenticator, app.tokens, acfg)
	if err != nil {
		return err
	}
	auther.Logger = app.GetLogger("auth:http")
	app.auther = auther

	return nil
}

func WithRoutes(app *App) {
	c := app.Config()
	acfg := c.GetAuth()

	r := app.srv.Router()

	r.Use(authgate.New(authgate.Config{
		Tokens:              app.tokens,
		CookieName:          acfg.GetContextKey(),
		RejectedRouteCookie: acfg.GetRejectedRouteKey(),
		CookieSecure:        acfg.GetCookieSecure(),
		Logger:              app.GetLogger("gate"),
	}))

	auth.RegisterAuthRoutes(r,
		auth.WithRouteAuthenticator(app.auther),
		auth.WithControllerLogger(app.GetLogger("auth:ctrl")),
	)

	// the OAuth state and pending-role cookies are sealed with keys
	// derived from the session signing key
	stateKey := sha256.Sum256([]byte(acfg.GetSigningKey() + ":oauth-state"))
	macKey := sha256.Sum256([]byte(acfg.GetSigningKey() + ":oauth-mac"))
	roleKey := sha256.Sum256([]byte(acfg.GetSigningKey() + ":pending-role"))

	google := social.NewGoogle(social.GoogleConfig{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		CallbackURL:  c.Google.RedirectURL,
	})

	states := social.NewEncryptedStateManager(stateKey[:], macKey[:], 10*time.Minute)

	socialAuth := social.NewAuthenticator(google, app.api, app.tokens, states,
		social.WithLogger(app.GetLogger("auth:google")),
	)

	socialCtrl := social.NewHTTPController(
		socialAuth,
		social.NewPendingRoleCodec(roleKey[:]),
		social.HTTPConfig{
			SessionCookieName: acfg.GetContextKey(),
			CookieSecure:      acfg.GetCookieSecure(),
			Logger:            app.GetLogger("auth:google:http"),
		},
	)
	socialCtrl.RegisterRoutes(r)

	attachCtrl := attachment.NewHTTPController(app.api, app.tokens, attachment.HTTPConfig{
		SessionCookieName: acfg.GetContextKey(),
		CookieSecure:      acfg.GetCookieSecure(),
		Logger:            app.GetLogger("attach"),
	})
	attachCtrl.RegisterRoutes(r)
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
