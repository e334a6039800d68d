package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidInput   = "INVALID_INPUT"
	TextCodeExpired        = "EXPIRED"
	TextCodeServerError    = "SERVER_ERROR"
	TextCodeTokenExpired   = "TOKEN_EXPIRED"
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
)

// ErrInvalidInput is returned for malformed client requests; no backend
// call has been made when it surfaces.
var ErrInvalidInput = errors.New("invalid input", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidInput).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned when the session token is past its expiry.
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when the session token cannot be decoded.
var ErrTokenMalformed = errors.New("session token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return when the backend has no user
// for the given identifier.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrUnableToFindSession is the error when the request has no session cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode claims from the session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrorKind is the discriminant of the auth error taxonomy. Every failure
// leaving this module maps to exactly one kind; callers branch on the kind,
// never on message contents.
type ErrorKind string

const (
	// KindInvalidInput: malformed client request, recoverable locally.
	KindInvalidInput ErrorKind = "INVALID_INPUT"
	// KindBackendRejected: the backend explicitly refused; the backend's
	// own code travels in the error TextCode and is surfaced verbatim.
	KindBackendRejected ErrorKind = "BACKEND_REJECTED"
	// KindExpired: token or hash past its validity window; retry requires
	// a fresh credential, not resubmission.
	KindExpired ErrorKind = "EXPIRED"
	// KindServerError: transport failure or 5xx; retry with the same
	// payload is appropriate.
	KindServerError ErrorKind = "SERVER_ERROR"
	// KindUnauthorizedRole: authenticated but lacking permission for the
	// requested route; handled by redirect, not by an error dialog.
	KindUnauthorizedRole ErrorKind = "UNAUTHORIZED_ROLE"
	// KindUnknown: not produced by this module.
	KindUnknown ErrorKind = "UNKNOWN"
)

// Kind classifies an error into the auth taxonomy. Errors are tagged once
// at the HTTP boundary (see package backend); everything downstream matches
// on the kind instead of probing messages.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var rich *errors.Error
	if !errors.As(err, &rich) {
		return KindUnknown
	}

	if rich.TextCode == TextCodeExpired {
		return KindExpired
	}

	switch rich.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return KindInvalidInput
	case errors.CategoryAuthz:
		return KindUnauthorizedRole
	case errors.CategoryOperation, errors.CategoryInternal:
		return KindServerError
	case errors.CategoryAuth, errors.CategoryConflict, errors.CategoryNotFound:
		return KindBackendRejected
	}

	return KindUnknown
}

// BackendCode extracts the backend-reported code (e.g. USER_NOT_FOUND,
// INVALID_PASSWORD) from a rejected-request error. Empty for errors that
// did not originate from a backend refusal.
func BackendCode(err error) string {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return ""
	}

	if code, ok := rich.Metadata["backend_code"].(string); ok {
		return code
	}

	if Kind(err) == KindBackendRejected {
		return rich.TextCode
	}

	return ""
}

// IsTokenExpiredError will check for expired session tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for undecodable session tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
