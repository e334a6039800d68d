package attachment

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"

	auth "github.com/fitcrew/gym-auth"
)

const textCodeInvalidTransition = "INVALID_ATTACHMENT_TRANSITION"

// ErrInvalidTransition is returned when a requested flow step is not allowed
// from the current state.
var ErrInvalidTransition = errors.New("invalid attachment flow transition", errors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(errors.CodeBadRequest)

// ErrNoPayload is returned when verification is requested before a QR scan.
var ErrNoPayload = errors.New("no onboarding payload to verify", errors.CategoryValidation).
	WithTextCode(auth.TextCodeInvalidInput).
	WithCode(errors.CodeBadRequest)

// State is a step in the gym-attachment flow.
type State string

const (
	StateNoRole       State = "no_role"
	StateRoleSelected State = "role_selected"
	StateScanning     State = "scanning"
	StateVerifying    State = "verifying"
	StateAttached     State = "attached"
	StateFailed       State = "failed"
)

// Result is the outcome of a successful verification: the gym the user is
// now attached to and the refreshed session token carrying it.
type Result struct {
	Gym          *auth.GymRef
	SessionToken string
}

// FlowOption customizes flow construction.
type FlowOption func(*Flow)

// WithFlowClock injects a custom clock (useful for tests).
func WithFlowClock(clock func() time.Time) FlowOption {
	return func(f *Flow) {
		if clock != nil {
			f.now = clock
		}
	}
}

// WithFlowLogger overrides the flow logger.
func WithFlowLogger(logger auth.Logger) FlowOption {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithSelectedRole starts the flow past role selection, for users whose
// session already carries a role.
func WithSelectedRole(role auth.Role) FlowOption {
	return func(f *Flow) {
		if auth.IsValidRole(role) {
			f.role = role
			f.state = StateRoleSelected
		}
	}
}

// Flow drives one user's gym attachment. It is scoped to a single request
// sequence and is not safe for concurrent use; each verification attempt
// carries a deterministic attempt ID so a double submission is observable as
// a retry, not a new attempt. The backend owns idempotency of attachment.
type Flow struct {
	api         auth.IdentityAPI
	tokens      auth.TokenIssuer
	logger      auth.Logger
	now         func() time.Time
	transitions map[State]map[State]struct{}

	state     State
	role      auth.Role
	payload   *OnboardingAction
	attemptID string
	startedAt time.Time
	lastErr   error
}

// NewFlow builds an attachment flow in the NoRole state.
func NewFlow(api auth.IdentityAPI, tokens auth.TokenIssuer, opts ...FlowOption) *Flow {
	f := &Flow{
		api:    api,
		tokens: tokens,
		logger: auth.DefaultLogger(),
		now:    time.Now,
		state:  StateNoRole,
		transitions: map[State]map[State]struct{}{
			StateNoRole: {
				StateRoleSelected: {},
			},
			StateRoleSelected: {
				StateScanning: {},
			},
			StateScanning: {
				StateVerifying: {},
				StateFailed:    {},
			},
			StateVerifying: {
				StateAttached: {},
				StateFailed:   {},
			},
			StateFailed: {
				// Rescan with a fresh QR code, or retry the same payload.
				StateScanning:  {},
				StateVerifying: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	f.startedAt = f.now()

	return f
}

// State reports the current flow state.
func (f *Flow) State() State {
	return f.state
}

// Role reports the selected role.
func (f *Flow) Role() auth.Role {
	return f.role
}

// LastError reports the failure that put the flow in StateFailed.
func (f *Flow) LastError() error {
	return f.lastErr
}

// FailureKind classifies the last failure; callers pick retry guidance from
// the kind (expired asks for a new scan, server errors retry the same
// payload) without probing messages.
func (f *Flow) FailureKind() auth.ErrorKind {
	if f.lastErr == nil {
		return auth.KindUnknown
	}
	return auth.Kind(f.lastErr)
}

// SelectRole records the user's role choice.
func (f *Flow) SelectRole(role auth.Role) error {
	if !auth.IsValidRole(role) {
		return auth.ErrInvalidInput
	}
	if err := f.transition(StateRoleSelected); err != nil {
		return err
	}
	f.role = role
	return nil
}

// StartScanning arms the scanner. From StateFailed this is the rescan path:
// the stored payload and attempt ID are discarded, the next scan is a fresh
// attempt.
func (f *Flow) StartScanning() error {
	if err := f.transition(StateScanning); err != nil {
		return err
	}
	f.payload = nil
	f.attemptID = ""
	f.lastErr = nil
	return nil
}

// Scan decodes a QR string. Onboarding payloads are staged for Verify;
// attendance payloads are returned to the caller for RecordAttendance and
// never staged. A malformed payload fails the flow recoverably: call
// StartScanning and scan again.
func (f *Flow) Scan(raw string) (*QRPayload, error) {
	if f.state != StateScanning {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": f.state,
			"step": "scan",
		})
	}

	payload, err := ParseQR(raw)
	if err != nil {
		f.fail(err)
		return nil, err
	}

	if payload.IsOnboarding() {
		f.payload = payload.Onboarding
		f.attemptID = attemptID(payload.Onboarding)
	}

	return payload, nil
}

// Verify forwards the staged onboarding payload to the backend and, on
// confirmation, folds the returned gym into the session. The flow reports
// Attached only after the session refresh succeeds; a confirmed backend
// attachment with a failed refresh is still a failed attempt.
func (f *Flow) Verify(ctx context.Context, claims *auth.SessionClaims) (*Result, error) {
	if f.payload == nil {
		return nil, ErrNoPayload
	}

	if err := f.transition(StateVerifying); err != nil {
		return nil, err
	}

	gym, err := f.api.AttachToGym(ctx, auth.AttachGymInput{
		GymName:   f.payload.GymName,
		GymID:     f.payload.GymID,
		Hash:      f.payload.Hash,
		Role:      f.role,
		AttemptID: f.attemptID,
	})
	if err != nil {
		f.fail(err)
		return nil, err
	}

	return f.attach(claims, gym)
}

// Retry re-submits the staged payload after a failure. The attempt ID is
// unchanged, so the backend sees the retry for what it is. Expired-hash
// failures need a rescan instead; retrying them just fails again.
func (f *Flow) Retry(ctx context.Context, claims *auth.SessionClaims) (*Result, error) {
	if f.state != StateFailed {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": f.state,
			"step": "retry",
		})
	}
	return f.Verify(ctx, claims)
}

// VerifyTrainerToken is the attachment path for trainers holding a
// 7-character onboarding token instead of a QR code. The token format is
// checked locally before any network call; the backend re-validates.
func (f *Flow) VerifyTrainerToken(ctx context.Context, claims *auth.SessionClaims, token string) (*Result, error) {
	if err := ValidateAuthToken(token); err != nil {
		return nil, err
	}

	if err := f.transition(StateVerifying); err != nil {
		return nil, err
	}

	gym, err := f.api.VerifyAuthToken(ctx, token, f.role)
	if err != nil {
		f.fail(err)
		return nil, err
	}

	return f.attach(claims, gym)
}

// RecordAttendance forwards an attendance scan to the backend. Attendance
// never touches the session gym or the flow state; the scanner simply
// returns to scanning.
func (f *Flow) RecordAttendance(ctx context.Context, claims *auth.SessionClaims, action *AttendanceAction) error {
	if action == nil {
		return auth.ErrInvalidInput
	}
	if err := action.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "incomplete attendance payload").
			WithTextCode(auth.TextCodeInvalidInput).
			WithCode(errors.CodeBadRequest)
	}

	return f.api.RecordAttendance(ctx, auth.AttendanceInput{
		GymName:   action.GymName,
		GymID:     action.GymID,
		Timestamp: action.Timestamp,
		UserID:    claims.UserID(),
	})
}

func (f *Flow) attach(claims *auth.SessionClaims, gym *auth.GymRef) (*Result, error) {
	token, err := f.tokens.Refresh(claims, auth.SessionPatch{Gym: gym})
	if err != nil {
		f.logger.Error("session refresh after attach failed: %v", err)
		f.fail(err)
		return nil, err
	}

	if err := f.transition(StateAttached); err != nil {
		return nil, err
	}

	f.logger.Info("user %s attached to gym %s", claims.UserID(), gym.ID)

	return &Result{Gym: gym, SessionToken: token}, nil
}

func (f *Flow) fail(err error) {
	f.lastErr = err
	f.state = StateFailed
}

func (f *Flow) transition(to State) error {
	if allowed, ok := f.transitions[f.state]; ok {
		if _, exists := allowed[to]; exists {
			f.state = to
			return nil
		}
	}
	return ErrInvalidTransition.WithMetadata(map[string]any{
		"from": f.state,
		"to":   to,
	})
}

// attemptID derives a stable identifier from the payload so submitting the
// same scan twice produces the same attempt.
func attemptID(action *OnboardingAction) string {
	id, err := hashid.NewUUID(action.GymID + ":" + action.Hash)
	if err != nil {
		return ""
	}
	return id.String()
}
