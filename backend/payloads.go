package backend

import (
	"encoding/json"
	"strings"

	auth "github.com/fitcrew/gym-auth"
	"github.com/goliatone/go-errors"
)

// flexString decodes a JSON string or number into a string. The backend is
// inconsistent about gym and user ids; claims always carry strings.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// userPayload is the backend's user shape.
type userPayload struct {
	ID    flexString  `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  string      `json:"role"`
	Gym   *gymPayload `json:"gym,omitempty"`
	Token string      `json:"token,omitempty"`
}

func (p userPayload) toUser() (*auth.AuthenticatedUser, error) {
	if p.ID == "" {
		return nil, errors.New("backend user payload missing id", errors.CategoryOperation).
			WithTextCode(auth.TextCodeServerError)
	}

	role, _ := auth.ParseRole(p.Role)

	user := &auth.AuthenticatedUser{
		ID:          string(p.ID),
		Name:        p.Name,
		Email:       p.Email,
		Role:        role,
		AccessToken: p.Token,
	}

	if p.Gym != nil {
		gym, err := p.Gym.toGymRef()
		if err != nil {
			return nil, err
		}
		user.Gym = gym
	}

	return user, nil
}

// gymPayload is the backend's gym shape.
type gymPayload struct {
	ID      flexString `json:"id"`
	GymID   flexString `json:"gymid,omitempty"`
	GymName string     `json:"gym_name"`
	Name    string     `json:"gymname,omitempty"`
}

func (p gymPayload) toGymRef() (*auth.GymRef, error) {
	id := string(p.ID)
	if id == "" {
		id = string(p.GymID)
	}
	name := p.GymName
	if name == "" {
		name = p.Name
	}

	if id == "" {
		return nil, errors.New("backend gym payload missing id", errors.CategoryOperation).
			WithTextCode(auth.TextCodeServerError)
	}

	return &auth.GymRef{ID: id, GymName: name}, nil
}
