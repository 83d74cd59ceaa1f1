package service

import (
	"testing"
	"time"

	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authEnv(t *testing.T) (*testEnv, *AuthService) {
	t.Helper()
	env := setupEnv(t)
	env.cfg.JWT.Secret = "test-secret-test-secret-test-secret"
	env.cfg.JWT.ExpireTime = time.Hour
	return env, NewAuthService(env.userRepo, env.cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	env, auth := authEnv(t)

	user := &model.User{Name: "Ada", Email: "ada@test.dev", Password: "hunter2hunter2"}
	require.NoError(t, auth.Register(user))
	assert.Equal(t, model.Student, user.Role)
	assert.NotEqual(t, "hunter2hunter2", user.Password)

	token, logged, err := auth.Login("ada@test.dev", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, logged.ID)

	claims, err := util.ParseJWT(token, env.cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Student, claims.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, auth := authEnv(t)

	first := &model.User{Name: "A", Email: "taken@test.dev", Password: "password1"}
	require.NoError(t, auth.Register(first))

	second := &model.User{Name: "B", Email: "taken@test.dev", Password: "password2"}
	assert.ErrorIs(t, auth.Register(second), util.ErrEmailRegistered)
}

func TestRegisterForcesStudentRole(t *testing.T) {
	_, auth := authEnv(t)

	user := &model.User{Name: "Sneaky", Email: "sneaky@test.dev", Password: "password1", Role: model.Admin}
	require.NoError(t, auth.Register(user))
	assert.Equal(t, model.Student, user.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	_, auth := authEnv(t)

	user := &model.User{Name: "Ada", Email: "wrongpw@test.dev", Password: "correcthorse"}
	require.NoError(t, auth.Register(user))

	_, _, err := auth.Login("wrongpw@test.dev", "batterystaple")
	assert.Error(t, err)
	_, _, err = auth.Login("nobody@test.dev", "whatever")
	assert.Error(t, err)
}

func TestLoginDisabledAccount(t *testing.T) {
	env, auth := authEnv(t)

	user := &model.User{Name: "Gone", Email: "gone@test.dev", Password: "password1"}
	require.NoError(t, auth.Register(user))

	user.Disabled = true
	require.NoError(t, env.userRepo.Update(user))

	_, _, err := auth.Login("gone@test.dev", "password1")
	assert.Error(t, err)
}
