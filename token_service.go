package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultTokenExpiration is the absolute session lifetime.
	DefaultTokenExpiration = 30 * 24 * time.Hour
	// DefaultReissueWindow is the rolling re-issue threshold; tokens older
	// than this are re-signed with fresh expiry on next access.
	DefaultReissueWindow = 7 * 24 * time.Hour
)

// TokenService signs, refreshes, and validates session tokens.
type TokenService struct {
	signingKey   []byte
	issuer       string
	expiration   time.Duration
	reissueAfter time.Duration
	logger       Logger
	now          func() time.Time
}

var _ TokenIssuer = (*TokenService)(nil)

// TokenServiceOption customizes token service construction.
type TokenServiceOption func(*TokenService)

// WithTokenExpiration overrides the absolute token lifetime.
func WithTokenExpiration(d time.Duration) TokenServiceOption {
	return func(ts *TokenService) {
		if d > 0 {
			ts.expiration = d
		}
	}
}

// WithReissueWindow overrides the rolling re-issue threshold.
func WithReissueWindow(d time.Duration) TokenServiceOption {
	return func(ts *TokenService) {
		if d > 0 {
			ts.reissueAfter = d
		}
	}
}

// WithTokenLogger overrides the logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, issuer string, opts ...TokenServiceOption) *TokenService {
	ts := &TokenService{
		signingKey:   signingKey,
		issuer:       issuer,
		expiration:   DefaultTokenExpiration,
		reissueAfter: DefaultReissueWindow,
		logger:       defLogger{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// Issue creates a session token for a freshly authenticated user. The
// subject is always the backend user id, overriding any transport-level
// subject the caller might carry.
func (ts *TokenService) Issue(user *AuthenticatedUser) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("cannot issue token without a user id", errors.CategoryInternal)
	}

	now := ts.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.expiration)),
		},
		Name:        user.Name,
		Email:       user.Email,
		UserRole:    user.Role,
		Gym:         user.Gym,
		AccessToken: user.AccessToken,
	}

	return ts.signClaims(claims)
}

// Refresh merges a patch into existing claims and re-signs with fresh
// issue and expiry times. Claims are merged, never re-derived, so a gym
// attached mid-session survives without re-authentication. Refreshing
// twice with the same patch yields the same resulting claims.
func (ts *TokenService) Refresh(claims *SessionClaims, patch SessionPatch) (string, error) {
	if claims == nil {
		return "", errors.New("cannot refresh nil claims", errors.CategoryInternal)
	}

	now := ts.now()
	next := patch.apply(claims)
	next.RegisteredClaims.ID = uuid.NewString()
	next.RegisteredClaims.Issuer = ts.issuer
	next.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	next.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ts.expiration))

	return ts.signClaims(next)
}

// NeedsReissue reports whether a valid token is old enough that the next
// response should carry a re-signed cookie with fresh expiry.
func (ts *TokenService) NeedsReissue(claims *SessionClaims) bool {
	if claims == nil || claims.RegisteredClaims.IssuedAt == nil {
		return false
	}
	return ts.now().Sub(claims.IssuedTime()) >= ts.reissueAfter
}

// Validate parses and validates a raw token, returning structured claims
func (ts *TokenService) Validate(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToDecodeSession
}

func (ts *TokenService) signClaims(claims *SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	return signedString, nil
}
