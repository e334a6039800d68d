// Package backend is the HTTP client for the identity API that owns user
// records, credential verification, and gym membership. Every response is
// the envelope {success, data?, error?}; errors are tagged into the auth
// taxonomy here, once, at the HTTP boundary.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	auth "github.com/fitcrew/gym-auth"
	"github.com/goliatone/go-errors"
)

const defaultTimeout = 10 * time.Second

// Client talks to the backend identity API. It holds no package-level
// state; construct one per process and inject it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     auth.Logger
}

var _ auth.IdentityAPI = (*Client)(nil)

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (useful for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger auth.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a backend client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Login verifies email+password.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.AuthenticatedUser, error) {
	var payload userPayload
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.toUser()
}

// Signup registers a new user.
func (c *Client) Signup(ctx context.Context, input auth.SignupInput) (*auth.AuthenticatedUser, error) {
	var payload userPayload
	if err := c.do(ctx, http.MethodPost, "/signup", input, &payload); err != nil {
		return nil, err
	}
	return payload.toUser()
}

// LookupByEmail finds a user by email. A missing user surfaces as the
// backend's own USER_NOT_FOUND rejection.
func (c *Client) LookupByEmail(ctx context.Context, email string) (*auth.AuthenticatedUser, error) {
	var payload userPayload
	path := "/google/lookup?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.toUser()
}

// GoogleSignup registers a user from an OAuth profile.
func (c *Client) GoogleSignup(ctx context.Context, email, name string, role auth.Role) error {
	return c.do(ctx, http.MethodPost, "/google/signup", map[string]string{
		"email": email,
		"name":  name,
		"role":  role,
	}, nil)
}

// GoogleSignin fetches the canonical user+gym for an OAuth email.
func (c *Client) GoogleSignin(ctx context.Context, email string) (*auth.AuthenticatedUser, error) {
	var payload userPayload
	err := c.do(ctx, http.MethodPost, "/google/signin", map[string]string{
		"email": email,
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.toUser()
}

// AttachToGym verifies a QR-derived attachment request. The backend owns
// idempotency; calling twice with the same hash must yield the same gym.
func (c *Client) AttachToGym(ctx context.Context, input auth.AttachGymInput) (*auth.GymRef, error) {
	var payload gymPayload
	if err := c.do(ctx, http.MethodPost, "/gym/attachtogym", input, &payload); err != nil {
		return nil, err
	}
	return payload.toGymRef()
}

// VerifyAuthToken verifies a trainer onboarding token. The token format was
// already checked client-side; the backend re-validates regardless.
func (c *Client) VerifyAuthToken(ctx context.Context, token string, role auth.Role) (*auth.GymRef, error) {
	var payload gymPayload
	err := c.do(ctx, http.MethodPost, "/onboarding/authtokenverify", map[string]string{
		"token": token,
		"role":  role,
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.toGymRef()
}

// RecordAttendance records an attendance scan.
func (c *Client) RecordAttendance(ctx context.Context, input auth.AttendanceInput) error {
	return c.do(ctx, http.MethodPost, "/attendance/mark", input, nil)
}

// envelope is the invariant response shape of every backend endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *apiError       `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

type apiError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to encode backend request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build backend request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err, path)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return serverError(res.StatusCode, path)
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "backend returned an unreadable response").
			WithTextCode(auth.TextCodeServerError)
	}

	if !env.Success {
		return rejectionError(env, path)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, errors.CategoryOperation, "backend returned an unexpected payload").
				WithTextCode(auth.TextCodeServerError)
		}
	}

	return nil
}

func transportError(err error, path string) error {
	return errors.Wrap(err, errors.CategoryOperation, "backend unreachable").
		WithTextCode(auth.TextCodeServerError).
		WithMetadata(map[string]any{"path": path})
}

func serverError(status int, path string) error {
	return errors.New(fmt.Sprintf("backend returned status %d", status), errors.CategoryOperation).
		WithTextCode(auth.TextCodeServerError).
		WithMetadata(map[string]any{"path": path, "status": status})
}

// rejectionError maps success=false into the taxonomy. Expiry is the only
// backend refusal promoted to its own kind: it calls for a fresh scan, not
// a resubmission, so the UI must be able to tell it apart.
func rejectionError(env envelope, path string) error {
	code := "API_ERROR"
	message := env.Message
	if env.Error != nil {
		if env.Error.Code != "" {
			code = env.Error.Code
		}
		if env.Error.Message != "" {
			message = env.Error.Message
		}
	}
	if message == "" {
		message = "backend rejected the request"
	}

	if isExpiredRejection(code, message) {
		return errors.New(message, errors.CategoryAuth).
			WithTextCode(auth.TextCodeExpired).
			WithCode(errors.CodeUnauthorized).
			WithMetadata(map[string]any{"backend_code": code, "path": path})
	}

	return errors.New(message, errors.CategoryAuth).
		WithTextCode(code).
		WithCode(errors.CodeUnauthorized).
		WithMetadata(map[string]any{"backend_code": code, "path": path})
}

func isExpiredRejection(code, message string) bool {
	switch code {
	case "EXPIRED", "TOKEN_EXPIRED", "HASH_EXPIRED", "QR_EXPIRED":
		return true
	}
	return strings.Contains(strings.ToLower(message), "expired")
}
