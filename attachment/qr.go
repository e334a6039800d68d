package attachment

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"

	auth "github.com/fitcrew/gym-auth"
)

// OnboardingAction is the QR sub-payload that attaches a user to a gym.
type OnboardingAction struct {
	GymName string `json:"gymname"`
	GymID   string `json:"gymid"`
	Hash    string `json:"hash"`
}

// Validate ensures all onboarding fields are present.
func (a OnboardingAction) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.GymName, validation.Required),
		validation.Field(&a.GymID, validation.Required),
		validation.Field(&a.Hash, validation.Required),
	)
}

// AttendanceAction is the QR sub-payload for an attendance scan. It belongs
// to a different sub-flow and never drives gym attachment.
type AttendanceAction struct {
	GymName   string `json:"gymname"`
	GymID     string `json:"gymid"`
	Timestamp string `json:"timestamp"`
}

// Validate ensures all attendance fields are present.
func (a AttendanceAction) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.GymName, validation.Required),
		validation.Field(&a.GymID, validation.Required),
		validation.Field(&a.Timestamp, validation.Required),
	)
}

// QRPayload is the decoded QR code. Exactly one of the two actions is set;
// the top-level key is the discriminator.
type QRPayload struct {
	Onboarding *OnboardingAction `json:"OnboardingAction,omitempty"`
	Attendance *AttendanceAction `json:"AttendanceAction,omitempty"`
}

// IsOnboarding reports whether the payload drives gym attachment.
func (p *QRPayload) IsOnboarding() bool {
	return p != nil && p.Onboarding != nil
}

// IsAttendance reports whether the payload is an attendance scan.
func (p *QRPayload) IsAttendance() bool {
	return p != nil && p.Attendance != nil
}

// ParseQR decodes a scanned QR string. Malformed JSON, an unknown
// discriminator, or missing fields all produce an invalid-input error; no
// network call has happened yet and the user can simply rescan.
func ParseQR(raw string) (*QRPayload, error) {
	if raw == "" {
		return nil, invalidQR("empty payload", nil)
	}

	payload := &QRPayload{}
	if err := json.Unmarshal([]byte(raw), payload); err != nil {
		return nil, invalidQR("malformed JSON", err)
	}

	switch {
	case payload.Onboarding != nil && payload.Attendance != nil:
		return nil, invalidQR("ambiguous payload: both actions present", nil)

	case payload.Onboarding != nil:
		if err := payload.Onboarding.Validate(); err != nil {
			return nil, invalidQR("incomplete onboarding payload", err)
		}

	case payload.Attendance != nil:
		if err := payload.Attendance.Validate(); err != nil {
			return nil, invalidQR("incomplete attendance payload", err)
		}

	default:
		return nil, invalidQR("unrecognized payload", nil)
	}

	return payload, nil
}

func invalidQR(reason string, cause error) error {
	if cause != nil {
		return errors.Wrap(cause, errors.CategoryValidation, "invalid QR payload: "+reason).
			WithTextCode(auth.TextCodeInvalidInput).
			WithCode(errors.CodeBadRequest)
	}
	return errors.New("invalid QR payload: "+reason, errors.CategoryValidation).
		WithTextCode(auth.TextCodeInvalidInput).
		WithCode(errors.CodeBadRequest)
}
