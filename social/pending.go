package social

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	auth "github.com/fitcrew/gym-auth"
)

// PendingRoleCookie is the cookie bridging the role chosen before a Google
// sign-up across the OAuth redirect. Single purpose, consumed exactly once.
const PendingRoleCookie = "gym-auth.pending-role"

// PendingRoleTTL bounds how long a pre-OAuth role selection stays valid.
const PendingRoleTTL = 10 * time.Minute

// PendingRoleCodec signs and verifies the pending-role cookie value. The
// role is not secret, so an HMAC signature is enough; tampering and
// staleness are what we guard against.
type PendingRoleCodec struct {
	hmacKey []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewPendingRoleCodec creates a codec with the default 10-minute TTL.
func NewPendingRoleCodec(hmacKey []byte) *PendingRoleCodec {
	return &PendingRoleCodec{
		hmacKey: hmacKey,
		ttl:     PendingRoleTTL,
		now:     time.Now,
	}
}

// WithClock injects a custom clock (useful for tests).
func (c *PendingRoleCodec) WithClock(clock func() time.Time) *PendingRoleCodec {
	if clock != nil {
		c.now = clock
	}
	return c
}

type pendingRolePayload struct {
	Role      string `json:"r"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Encode signs a role selection.
func (c *PendingRoleCodec) Encode(role auth.Role) (string, error) {
	if !auth.IsValidRole(role) {
		return "", auth.ErrInvalidInput
	}

	now := c.now()
	payload, err := json.Marshal(pendingRolePayload{
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
	})
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, c.hmacKey)
	mac.Write(payload)

	return base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Decode verifies a signed role selection. Tampered values, unknown roles,
// and values older than the TTL are all rejected the same way: the caller
// treats the selection as absent and routes to role-selection again.
func (c *PendingRoleCodec) Decode(value string) (auth.Role, error) {
	parts := strings.SplitN(value, ".", 2)
	if len(parts) != 2 {
		return "", ErrInvalidState
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidState
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidState
	}

	mac := hmac.New(sha256.New, c.hmacKey)
	mac.Write(payload)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return "", ErrInvalidState
	}

	var p pendingRolePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", ErrInvalidState
	}

	if c.now().Unix() > p.ExpiresAt {
		return "", ErrStateExpired
	}

	role, ok := auth.ParseRole(p.Role)
	if !ok {
		return "", ErrInvalidState
	}

	return role, nil
}
