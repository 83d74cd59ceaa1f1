package service

import (
	"testing"

	"quiz_portal_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsersByRole(t *testing.T) {
	env := setupEnv(t)
	svc := NewUserService(env.userRepo)

	createStudent(t, env, "s1@test.dev")
	createStudent(t, env, "s2@test.dev")
	teacher := &model.User{Name: "Prof", Email: "prof@test.dev", Password: "x", Role: model.Teacher}
	require.NoError(t, env.userRepo.Create(teacher))

	all, total, err := svc.List(1, 10, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	teachers, total, err := svc.List(1, 10, string(model.Teacher))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, teachers, 1)
	assert.Equal(t, "prof@test.dev", teachers[0].Email)
}

func TestListUsersPagination(t *testing.T) {
	env := setupEnv(t)
	svc := NewUserService(env.userRepo)

	createStudent(t, env, "p1@test.dev")
	createStudent(t, env, "p2@test.dev")
	createStudent(t, env, "p3@test.dev")

	page1, total, err := svc.List(1, 2, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page1, 2)

	page2, _, err := svc.List(2, 2, "")
	require.NoError(t, err)
	assert.Len(t, page2, 1)
}

func TestUpdateProfilePartial(t *testing.T) {
	env := setupEnv(t)
	svc := NewUserService(env.userRepo)
	user := createStudent(t, env, "partial-update@test.dev")

	name := "Renamed"
	updated, err := svc.UpdateProfile(user.ID, UpdateProfileReq{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, user.Avatar, updated.Avatar)
}
