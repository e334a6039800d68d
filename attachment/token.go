package attachment

import (
	"github.com/goliatone/go-errors"

	auth "github.com/fitcrew/gym-auth"
)

// AuthTokenLength is the exact length of a trainer onboarding token.
const AuthTokenLength = 7

// ErrBadAuthToken is returned for tokens that fail the local format check;
// no backend call has been made when it surfaces.
var ErrBadAuthToken = errors.New("auth token must be exactly 7 allowed characters", errors.CategoryValidation).
	WithTextCode(auth.TextCodeInvalidInput).
	WithCode(errors.CodeBadRequest)

// ValidateAuthToken fail-fasts a trainer onboarding token: exactly 7
// characters drawn from letters, digits, and !@#$%^&*. The backend
// re-validates; this check only saves a round trip on obvious typos.
func ValidateAuthToken(token string) error {
	if len(token) != AuthTokenLength {
		return ErrBadAuthToken
	}
	for i := 0; i < len(token); i++ {
		if !isAuthTokenChar(token[i]) {
			return ErrBadAuthToken
		}
	}
	return nil
}

func isAuthTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '@', '#', '$', '%', '^', '&', '*':
		return true
	}
	return false
}
