package social

import (
	auth "github.com/fitcrew/gym-auth"
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidState      = "OAUTH_INVALID_STATE"
	TextCodeStateExpired      = auth.TextCodeExpired
	TextCodeTokenExchangeFail = "OAUTH_TOKEN_EXCHANGE_FAILED"
	TextCodeUserInfoFail      = "OAUTH_USER_INFO_FAILED"
	TextCodeIDTokenInvalid    = "OAUTH_ID_TOKEN_INVALID"
)

// ErrInvalidState is returned when the OAuth state is invalid or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryAuth).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrTokenExchangeFailed is returned when the provider token exchange fails.
var ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryOperation).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrUserInfoFailed is returned when fetching user info fails.
var ErrUserInfoFailed = errors.New("failed to fetch user info", errors.CategoryOperation).
	WithTextCode(TextCodeUserInfoFail).
	WithCode(errors.CodeUnauthorized)

// ErrIDTokenInvalid is returned when the provider ID token fails JWKS
// verification.
var ErrIDTokenInvalid = errors.New("invalid provider id token", errors.CategoryAuth).
	WithTextCode(TextCodeIDTokenInvalid).
	WithCode(errors.CodeUnauthorized)

func wrapProviderError(base *errors.Error, provider, step string, cause error) error {
	return errors.Wrap(cause, base.Category, base.Message).
		WithTextCode(base.TextCode).
		WithMetadata(map[string]any{
			"provider": provider,
			"step":     step,
		})
}
