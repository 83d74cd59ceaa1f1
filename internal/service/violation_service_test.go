package service

import (
	"testing"
	"time"

	"quiz_portal_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startAttempt(t *testing.T, env *testEnv, email string, maxViolations int) (*model.User, *model.TestAttempt) {
	t.Helper()

	student := createStudent(t, env, email)
	test := createTest(t, env, 60, []string{"a"}, []int{1})
	if maxViolations != 0 {
		test.MaxViolations = maxViolations
		require.NoError(t, env.testRepo.Update(test))
	}

	attempt, err := env.attempts.Start(student.ID, test.ID)
	require.NoError(t, err)
	return student, attempt
}

func violationCount(t *testing.T, env *testEnv, attemptID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, env.db.Model(&model.ViolationEvent{}).Where("attempt_id = ?", attemptID).Count(&count).Error)
	return count
}

func TestRecordUnknownKindDropped(t *testing.T) {
	env := setupEnv(t)
	student, attempt := startAttempt(t, env, "kind@test.dev", 0)

	err := env.violations.Record(student.ID, attempt.ID, model.ViolationKind("mind_reading"), "")
	assert.NoError(t, err)
	assert.EqualValues(t, 0, violationCount(t, env, attempt.ID))
}

func TestRecordForeignAttemptDropped(t *testing.T) {
	env := setupEnv(t)
	_, attempt := startAttempt(t, env, "victim@test.dev", 0)
	other := createStudent(t, env, "intruder@test.dev")

	err := env.violations.Record(other.ID, attempt.ID, model.ViolationWindowSwitch, "")
	assert.NoError(t, err)
	assert.EqualValues(t, 0, violationCount(t, env, attempt.ID))
}

func TestRecordFinishedAttemptDropped(t *testing.T) {
	env := setupEnv(t)
	student, attempt := startAttempt(t, env, "done@test.dev", 0)

	questions, _ := env.testRepo.ListQuestions(attempt.TestID)
	require.NoError(t, env.attempts.RecordAnswer(student.ID, attempt.ID, questions[0].ID, "a"))
	_, err := env.attempts.Submit(student.ID, attempt.ID)
	require.NoError(t, err)

	err = env.violations.Record(student.ID, attempt.ID, model.ViolationTabHidden, "")
	assert.NoError(t, err)
	assert.EqualValues(t, 0, violationCount(t, env, attempt.ID))
}

func TestPersistAppliesThreshold(t *testing.T) {
	env := setupEnv(t)
	_, attempt := startAttempt(t, env, "threshold@test.dev", 2)

	full, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)

	env.violations.persist(full, &model.ViolationEvent{
		AttemptID: attempt.ID, Kind: model.ViolationWindowSwitch, OccurredAt: time.Now(),
	})

	current, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, current.Status)

	env.violations.persist(full, &model.ViolationEvent{
		AttemptID: attempt.ID, Kind: model.ViolationScreenshot, OccurredAt: time.Now(),
	})

	current, err = env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptTerminated, current.Status)
	assert.Equal(t, "violation threshold exceeded", current.TerminatedReason)
	assert.EqualValues(t, 2, violationCount(t, env, attempt.ID))
}

func TestPersistFallsBackToPortalLimit(t *testing.T) {
	env := setupEnv(t)
	env.cfg.Proctor.MaxViolations = 1
	_, attempt := startAttempt(t, env, "fallback@test.dev", 0)

	full, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)

	env.violations.persist(full, &model.ViolationEvent{
		AttemptID: attempt.ID, Kind: model.ViolationCopyPaste, OccurredAt: time.Now(),
	})

	current, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptTerminated, current.Status)
}

func TestZeroLimitDisablesTermination(t *testing.T) {
	env := setupEnv(t)
	env.cfg.Proctor.MaxViolations = 0
	_, attempt := startAttempt(t, env, "nolimit@test.dev", 0)

	full, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		env.violations.persist(full, &model.ViolationEvent{
			AttemptID: attempt.ID, Kind: model.ViolationWindowSwitch, OccurredAt: time.Now(),
		})
	}

	current, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, current.Status)
	assert.EqualValues(t, 10, violationCount(t, env, attempt.ID))
}

func TestListByAttemptOrdersByOccurrence(t *testing.T) {
	env := setupEnv(t)
	_, attempt := startAttempt(t, env, "order@test.dev", 0)

	full, err := env.attemptRepo.FindByID(attempt.ID)
	require.NoError(t, err)

	base := time.Now()
	env.violations.persist(full, &model.ViolationEvent{
		AttemptID: attempt.ID, Kind: model.ViolationTabHidden, OccurredAt: base.Add(time.Second),
	})
	env.violations.persist(full, &model.ViolationEvent{
		AttemptID: attempt.ID, Kind: model.ViolationWindowSwitch, OccurredAt: base,
	})

	events, err := env.violations.ListByAttempt(attempt.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.ViolationWindowSwitch, events[0].Kind)
	assert.Equal(t, model.ViolationTabHidden, events[1].Kind)
}
