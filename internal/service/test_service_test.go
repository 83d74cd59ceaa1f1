package service

import (
	"testing"

	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(n int) *int       { return &n }

func TestCreateTestWithQuestions(t *testing.T) {
	env := setupEnv(t)
	svc := NewTestService(env.testRepo)

	test, err := svc.Create(1, TestReq{
		Title:       strPtr("Go Basics"),
		IsPublished: boolPtr(true),
		Questions: &[]TestQuestionReq{
			{QuestionType: "single_choice", Content: "q1", Answer: "a", Points: 2},
			{QuestionType: "short_answer", Content: "q2", Answer: "channels"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 60, test.PassingScore)
	assert.True(t, test.IsPublished)
	require.NotNil(t, test.PublishedAt)

	questions, err := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 2, questions[0].Points)
	// Unset points default to one.
	assert.Equal(t, 1, questions[1].Points)
}

func TestCreateTestValidation(t *testing.T) {
	env := setupEnv(t)
	svc := NewTestService(env.testRepo)

	_, err := svc.Create(1, TestReq{})
	assert.Error(t, err)

	_, err = svc.Create(1, TestReq{Title: strPtr("x"), PassingScore: intPtr(101)})
	assert.Error(t, err)
}

func TestUpdateTestQuestionDiff(t *testing.T) {
	env := setupEnv(t)
	svc := NewTestService(env.testRepo)

	test, err := svc.Create(1, TestReq{
		Title: strPtr("Diff"),
		Questions: &[]TestQuestionReq{
			{QuestionType: "single_choice", Content: "keep", Answer: "a", Points: 1},
			{QuestionType: "single_choice", Content: "drop", Answer: "b", Points: 1},
		},
	})
	require.NoError(t, err)

	questions, err := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, err)
	keepID := questions[0].ID

	_, err = svc.Update(test.ID, TestReq{
		Questions: &[]TestQuestionReq{
			{ID: keepID, QuestionType: "single_choice", Content: "kept and edited", Answer: "c", Points: 3},
			{QuestionType: "short_answer", Content: "brand new", Answer: "d", Points: 1},
		},
	})
	require.NoError(t, err)

	questions, err = env.testRepo.ListQuestions(test.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	byID := make(map[uint]model.TestQuestion)
	for _, q := range questions {
		byID[q.ID] = q
	}
	kept, ok := byID[keepID]
	require.True(t, ok, "edited question was replaced instead of updated")
	assert.Equal(t, "kept and edited", kept.Content)
	assert.Equal(t, 3, kept.Points)
}

func TestGetForStudentHidesAnswers(t *testing.T) {
	env := setupEnv(t)
	svc := NewTestService(env.testRepo)
	test := createTest(t, env, 70, []string{"a", "b"}, []int{2, 3})

	detail, err := svc.GetForStudent(test.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, detail.PassingScore)
	assert.Equal(t, 2, detail.QuestionCount)
	assert.Equal(t, 5, detail.TotalPoints)
	require.Len(t, detail.Questions, 2)
}

func TestGetForStudentUnpublished(t *testing.T) {
	env := setupEnv(t)
	svc := NewTestService(env.testRepo)

	draft := &model.Test{Title: "Draft", PassingScore: 60}
	require.NoError(t, env.testRepo.Create(draft))

	_, err := svc.GetForStudent(draft.ID)
	assert.ErrorIs(t, err, util.ErrTestNotPublished)
}

func TestPublishStampsPublishedAt(t *testing.T) {
	env := setupEnv(t)
	svc := NewTestService(env.testRepo)

	test, err := svc.Create(1, TestReq{Title: strPtr("Later")})
	require.NoError(t, err)
	assert.False(t, test.IsPublished)
	assert.Nil(t, test.PublishedAt)

	updated, err := svc.Update(test.ID, TestReq{IsPublished: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsPublished)
	assert.NotNil(t, updated.PublishedAt)
}
