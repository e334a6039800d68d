package auth

import (
	"fmt"
	"time"
)

// SessionObject is a decoded, read-only view of the session claims, handed
// to request handlers that should not touch the raw JWT.
type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Role           Role       `json:"role,omitempty"`
	Gym            *GymRef    `json:"gym,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetRole() Role {
	return s.Role
}

func (s *SessionObject) GetGym() *GymRef {
	return s.Gym
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s SessionObject) String() string {
	gym := "<none>"
	if s.Gym != nil {
		gym = s.Gym.ID
	}
	return fmt.Sprintf("user=%s role=%s gym=%s iss=%s", s.UserID, s.Role, gym, s.Issuer)
}

// sessionFromClaims creates a SessionObject from validated claims
func sessionFromClaims(claims *SessionClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	issuedAt := claims.IssuedTime()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Role:           claims.Role(),
		Gym:            claims.Gym,
		Issuer:         claims.RegisteredClaims.Issuer,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
