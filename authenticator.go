package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// defaultPhoneRegion is the region used to parse phone numbers submitted
// without a country prefix.
const defaultPhoneRegion = "IN"

// Credentials is the input of a credential authentication attempt. Name and
// Role present means sign-up; absent means sign-in.
type Credentials struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Name     string `form:"name" json:"name,omitempty"`
	Role     Role   `form:"role" json:"role,omitempty"`
	Phone    string `form:"phone" json:"phone,omitempty"`
}

// IsSignup reports whether the credentials describe a sign-up attempt.
func (c Credentials) IsSignup() bool {
	return c.Name != "" && c.Role != ""
}

// Validate will run validation rules
func (c Credentials) Validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	}

	if c.IsSignup() {
		rules = append(rules,
			validation.Field(&c.Name, validation.Required, validation.Length(1, 200)),
			validation.Field(&c.Role, validation.Required, validation.In(RoleOwner, RoleTrainer, RoleClient)),
			validation.Field(&c.Phone, validation.By(validatePhone)),
		)
	}

	return validation.ValidateStruct(&c, rules...)
}

func validatePhone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, defaultPhoneRegion)
	if err != nil {
		return err
	}
	if !phonenumbers.IsValidNumber(num) {
		return errors.New("invalid phone number", errors.CategoryValidation)
	}
	return nil
}

// Auther authenticates credentials against the backend identity API.
type Auther struct {
	api    IdentityAPI
	tokens TokenIssuer
	logger Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(api IdentityAPI, tokens TokenIssuer) *Auther {
	return &Auther{
		api:    api,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Authenticate verifies credentials against the backend, dispatching to
// sign-up or sign-in on the presence of name+role. Backend failures carry
// the backend-reported code; this layer never substitutes its own.
func (s *Auther) Authenticate(ctx context.Context, creds Credentials) (*AuthenticatedUser, error) {
	if err := creds.Validate(); err != nil {
		return nil, errors.Wrap(err, ErrInvalidInput.Category, "missing or malformed credentials").
			WithTextCode(ErrInvalidInput.TextCode).
			WithCode(errors.CodeBadRequest)
	}

	var user *AuthenticatedUser
	var err error

	if creds.IsSignup() {
		user, err = s.api.Signup(ctx, SignupInput{
			Name:     creds.Name,
			Email:    creds.Email,
			Password: creds.Password,
			Role:     creds.Role,
			Phone:    creds.Phone,
		})
	} else {
		user, err = s.api.Login(ctx, creds.Email, creds.Password)
	}

	if err != nil {
		s.logger.Error("Authenticate backend call failed",
			"email", creds.Email,
			"signup", creds.IsSignup(),
			"error", err,
		)
		return nil, err
	}

	if user == nil || user.ID == "" {
		s.logger.Error("Authenticate backend returned empty user", "email", creds.Email)
		return nil, ErrIdentityNotFound
	}

	return user, nil
}

// IssueSession issues a session token for an authenticated user.
func (s *Auther) IssueSession(user *AuthenticatedUser) (string, error) {
	return s.tokens.Issue(user)
}

// SessionFromToken validates a raw token and returns a read-only session view.
func (s *Auther) SessionFromToken(raw string) (*SessionObject, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	return sessionFromClaims(claims)
}
