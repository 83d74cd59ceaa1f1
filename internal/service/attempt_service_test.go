package service

import (
	"testing"
	"time"

	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAttempt(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "start@test.dev")
	test := createTest(t, env, 60, []string{"a", "b"}, []int{1, 1})

	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, attempt.Status)
	assert.Equal(t, student.ID, attempt.StudentID)
}

func TestStartAttemptUnpublishedTest(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "unpub@test.dev")

	test := &model.Test{Title: "Draft", PassingScore: 60}
	require.NoError(t, env.testRepo.Create(test))

	_, err := env.attempts.Start(student.ID, test.ID)
	assert.ErrorIs(t, err, util.ErrTestNotPublished)
}

func TestStartAttemptDuplicateInProgress(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "dup@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})

	_, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	_, err = env.attempts.Start(student.ID, test.ID)
	assert.ErrorIs(t, err, util.ErrDuplicateAttempt)
}

func TestStartAttemptMultipleAllowed(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "multi@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	test.AllowMultipleAttempts = true
	require.NoError(t, env.testRepo.Update(test))

	_, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)
	_, err = env.attempts.Start(student.ID, test.ID)
	assert.NoError(t, err)
}

func TestRecordAnswerReplacesPrevious(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "answers@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	questions, err := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, err)
	qID := questions[0].ID

	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, qID, "b"))
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, qID, "a"))

	answers, err := env.attemptRepo.ListAnswers(attempt.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "a", answers[0].Answer)
}

func TestRecordAnswerWrongStudent(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "owner@test.dev")
	other := createStudent(t, env, "other@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	questions, _ := env.testRepo.ListQuestions(test.ID)
	err = env.attempts.RecordAnswer(other.ID, attempt.ID, questions[0].ID, "a")
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestSubmitScoresAttempt(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "score@test.dev")
	test := createTest(t, env, 60, []string{"a", "b", "c"}, []int{1, 1, 1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	questions, _ := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "a"))
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, questions[1].ID, "wrong"))

	submitted, err := env.attempts.Submit(student.ID, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSubmitted, submitted.Status)
	assert.Equal(t, 1, submitted.Score)
	assert.Equal(t, 3, submitted.TotalPoints)
	assert.Equal(t, 33, submitted.Percentage)
	assert.NotNil(t, submitted.SubmittedAt)
}

func TestSubmitIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "idem@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	questions, _ := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "a"))

	first, err := env.attempts.Submit(student.ID, attempt.ID)
	require.NoError(t, err)

	second, err := env.attempts.Submit(student.ID, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Percentage, second.Percentage)
	assert.Equal(t, model.AttemptSubmitted, second.Status)
}

func TestSubmitTerminatedAttempt(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "term-submit@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	_, err = env.attempts.Terminate(attempt.ID, "proctor decision")
	require.NoError(t, err)

	_, err = env.attempts.Submit(student.ID, attempt.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestRecordAnswerAfterSubmit(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "late@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	questions, _ := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "a"))
	_, err = env.attempts.Submit(student.ID, attempt.ID)
	require.NoError(t, err)

	err = env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "b")
	assert.ErrorIs(t, err, util.ErrInvalidState)

	// The rejected write must not touch the stored answer or the score.
	answers, err := env.attemptRepo.ListAnswers(attempt.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "a", answers[0].Answer)
	assert.True(t, answers[0].IsCorrect)

	current, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.Score)
	assert.Equal(t, 100, current.Percentage)
}

func TestTerminateScoresPartialAnswers(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "partial@test.dev")
	test := createTest(t, env, 60, []string{"a", "b"}, []int{1, 1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	questions, _ := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "a"))

	terminated, err := env.attempts.Terminate(attempt.ID, "window switching")
	require.NoError(t, err)
	assert.Equal(t, model.AttemptTerminated, terminated.Status)
	assert.Equal(t, 1, terminated.Score)
	assert.Equal(t, "window switching", terminated.TerminatedReason)
}

func TestTerminateIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "term-idem@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	_, err = env.attempts.Terminate(attempt.ID, "first")
	require.NoError(t, err)

	again, err := env.attempts.Terminate(attempt.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, model.AttemptTerminated, again.Status)
	assert.Equal(t, "first", again.TerminatedReason)
}

func TestTerminateSubmittedAttempt(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "term-after@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	questions, _ := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "a"))
	_, err = env.attempts.Submit(student.ID, attempt.ID)
	require.NoError(t, err)

	_, err = env.attempts.Terminate(attempt.ID, "too late")
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestSubmitTestWithoutQuestions(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "empty@test.dev")
	test := createTest(t, env, 60, nil, nil)
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	_, err = env.attempts.Submit(student.ID, attempt.ID)
	assert.ErrorIs(t, err, util.ErrScoring)
}

func TestGetDetailHidesGradingWhileInProgress(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "detail@test.dev")
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)

	questions, _ := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "a"))

	detail, err := env.attempts.GetDetail(student.ID, attempt.ID)
	require.NoError(t, err)
	require.Len(t, detail.Results, 1)
	assert.Nil(t, detail.Results[0].CorrectAnswer)
	assert.Nil(t, detail.Results[0].IsCorrect)

	_, err = env.attempts.Submit(student.ID, attempt.ID)
	require.NoError(t, err)

	detail, err = env.attempts.GetDetail(student.ID, attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Results[0].CorrectAnswer)
	assert.Equal(t, "a", *detail.Results[0].CorrectAnswer)
	require.NotNil(t, detail.Results[0].IsCorrect)
	assert.True(t, *detail.Results[0].IsCorrect)
}

// ageAttempt pushes an attempt's start time into the past, simulating a
// session left open beyond the test's time limit.
func ageAttempt(t *testing.T, env *testEnv, attemptID uint, age time.Duration) {
	t.Helper()
	err := env.db.Model(&model.TestAttempt{}).Where("id = ?", attemptID).
		Update("started_at", time.Now().Add(-age)).Error
	require.NoError(t, err)
}

func timedTest(t *testing.T, env *testEnv, minutes int) *model.Test {
	t.Helper()
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	test.TimeLimit = minutes
	require.NoError(t, env.testRepo.Update(test))
	return test
}

func TestStartAfterExpiredAttempt(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "expired-start@test.dev")
	test := timedTest(t, env, 30)

	stale, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)
	ageAttempt(t, env, stale.ID, 2*time.Hour)

	// The abandoned session must not block a fresh attempt.
	fresh, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)

	old, err := env.attemptRepo.FindByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptTerminated, old.Status)
	assert.Equal(t, "time limit exceeded", old.TerminatedReason)
}

func TestStartUnexpiredAttemptStillBlocks(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "within-limit@test.dev")
	test := timedTest(t, env, 30)

	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)
	ageAttempt(t, env, attempt.ID, 10*time.Minute)

	_, err = env.attempts.Start(student.ID, test.ID)
	assert.ErrorIs(t, err, util.ErrDuplicateAttempt)
}

func TestSubmitExpiredAttempt(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "expired-submit@test.dev")
	test := timedTest(t, env, 30)

	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)
	questions, _ := env.testRepo.ListQuestions(test.ID)
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "a"))
	ageAttempt(t, env, attempt.ID, time.Hour)

	_, err = env.attempts.Submit(student.ID, attempt.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState)

	current, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptTerminated, current.Status)
	assert.Equal(t, "time limit exceeded", current.TerminatedReason)
	// Answers recorded before the deadline still count for the record.
	assert.Equal(t, 1, current.Score)
}

func TestRecordAnswerExpiredAttempt(t *testing.T) {
	env := setupEnv(t)
	student := createStudent(t, env, "expired-answer@test.dev")
	test := timedTest(t, env, 30)

	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)
	ageAttempt(t, env, attempt.ID, time.Hour)

	questions, _ := env.testRepo.ListQuestions(test.ID)
	err = env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "a")
	assert.ErrorIs(t, err, util.ErrInvalidState)

	current, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptTerminated, current.Status)

	answers, err := env.attemptRepo.ListAnswers(attempt.ID)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestAttemptExpired(t *testing.T) {
	now := time.Now()

	timed := &model.Test{TimeLimit: 30}
	untimed := &model.Test{}

	overdue := &model.TestAttempt{Status: model.AttemptInProgress, StartedAt: now.Add(-45 * time.Minute)}
	assert.True(t, attemptExpired(overdue, timed))
	assert.False(t, attemptExpired(overdue, untimed))
	assert.False(t, attemptExpired(overdue, nil))

	fresh := &model.TestAttempt{Status: model.AttemptInProgress, StartedAt: now.Add(-5 * time.Minute)}
	assert.False(t, attemptExpired(fresh, timed))

	done := &model.TestAttempt{Status: model.AttemptSubmitted, StartedAt: now.Add(-45 * time.Minute)}
	assert.False(t, attemptExpired(done, timed))
}

func TestComputePercentage(t *testing.T) {
	cases := []struct {
		score, total, want int
	}{
		{7, 10, 70},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{0, 5, 0},
		{5, 5, 100},
		{1, 200, 1},
	}
	for _, c := range cases {
		got, err := computePercentage(c.score, c.total)
		assert.NoError(t, err)
		assert.Equal(t, c.want, got, "%d/%d", c.score, c.total)
	}

	_, err := computePercentage(1, 0)
	assert.ErrorIs(t, err, util.ErrScoring)
	_, err = computePercentage(1, -2)
	assert.ErrorIs(t, err, util.ErrScoring)
}

func TestGradeAnswer(t *testing.T) {
	single := model.TestQuestion{QuestionType: "single_choice", Answer: "A"}
	assert.True(t, gradeAnswer(single, " a "))
	assert.False(t, gradeAnswer(single, "b"))

	multi := model.TestQuestion{QuestionType: "multiple_choice", Answer: "A,C"}
	assert.True(t, gradeAnswer(multi, "c, a"))
	assert.True(t, gradeAnswer(multi, "A,C"))
	assert.False(t, gradeAnswer(multi, "a"))
	assert.False(t, gradeAnswer(multi, "a,b,c"))

	text := model.TestQuestion{QuestionType: "short_answer", Answer: "Goroutine"}
	assert.True(t, gradeAnswer(text, "goroutine"))
	assert.False(t, gradeAnswer(text, "thread"))
}
