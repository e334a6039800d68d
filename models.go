package auth

// Role is the user's role within a gym tenant
type Role = string

const (
	// RoleOwner runs one or more gyms
	RoleOwner Role = "owner"
	// RoleTrainer coaches clients at a gym they are attached to
	RoleTrainer Role = "trainer"
	// RoleClient is a gym member
	RoleClient Role = "client"
)

// GymRef identifies the gym tenant a user is attached to.
// The ID is always a string; numeric backend identifiers are
// normalized before a GymRef is built.
type GymRef struct {
	ID      string `json:"id"`
	GymName string `json:"gym_name"`
}

// AuthenticatedUser is the canonical result of a successful credential or
// OAuth verification. It is immutable for a given sign-in; a token refresh
// produces a new instance.
type AuthenticatedUser struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Role  Role    `json:"role"`
	Gym   *GymRef `json:"gym,omitempty"`
	// AccessToken is the backend-issued API token, carried into the
	// session claims so server actions can call the backend on the
	// user's behalf.
	AccessToken string `json:"-"`
}

// HasGym reports whether the user completed gym attachment.
func (u *AuthenticatedUser) HasGym() bool {
	return u != nil && u.Gym != nil && u.Gym.ID != ""
}

// SignupInput is the payload for a credential sign-up against the backend.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Phone    string `json:"phone,omitempty"`
}

// AttachGymInput is the payload for the backend attach-to-gym endpoint.
// AttemptID is deterministic for a given payload so duplicate submissions
// are observable as retries of the same attempt.
type AttachGymInput struct {
	GymName   string `json:"gymname"`
	GymID     string `json:"gymid"`
	Hash      string `json:"hash"`
	Role      Role   `json:"role"`
	AttemptID string `json:"attempt_id,omitempty"`
}

// AttendanceInput is the payload for the backend attendance endpoint.
type AttendanceInput struct {
	GymName   string `json:"gymname"`
	GymID     string `json:"gymid"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
}
