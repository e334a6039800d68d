package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/fitcrew/gym-auth"
)

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"owner", "Trainer", " CLIENT "} {
		role, ok := auth.ParseRole(raw)
		assert.True(t, ok, raw)
		assert.True(t, auth.IsValidRole(role))
	}

	for _, raw := range []string{"", "admin", "own er"} {
		_, ok := auth.ParseRole(raw)
		assert.False(t, ok, raw)
	}
}

func TestDashboardPath(t *testing.T) {
	assert.Equal(t, "/dashboard/trainer", auth.DashboardPath(auth.RoleTrainer))
	assert.Equal(t, "/dashboard/owner", auth.DashboardPath(auth.RoleOwner))
}

func TestAuthenticatedUser_HasGym(t *testing.T) {
	var nobody *auth.AuthenticatedUser
	assert.False(t, nobody.HasGym())

	assert.False(t, (&auth.AuthenticatedUser{}).HasGym())
	assert.False(t, (&auth.AuthenticatedUser{Gym: &auth.GymRef{}}).HasGym())
	assert.True(t, (&auth.AuthenticatedUser{Gym: &auth.GymRef{ID: "12"}}).HasGym())
}

func TestCredentials_IsSignup(t *testing.T) {
	assert.False(t, auth.Credentials{Email: "a@b.c", Password: "x"}.IsSignup())
	assert.False(t, auth.Credentials{Email: "a@b.c", Password: "x", Name: "A"}.IsSignup())
	assert.True(t, auth.Credentials{Email: "a@b.c", Password: "x", Name: "A", Role: auth.RoleClient}.IsSignup())
}
