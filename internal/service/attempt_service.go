package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"quiz_portal_backend/internal/config"
	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/repository"
	"quiz_portal_backend/internal/util"
	"quiz_portal_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttemptService owns the attempt lifecycle:
// in_progress -> {submitted, terminated}. Submitted and terminated are
// terminal; answers can only be recorded while in progress.
type AttemptService struct {
	Attempts *repository.AttemptRepository
	Tests    *repository.TestRepository
	Users    *repository.UserRepository
	Email    *EmailService
	Redis    *redis.Client
	Cfg      *config.Config

	locks *attemptLocks
}

func NewAttemptService(
	attempts *repository.AttemptRepository,
	tests *repository.TestRepository,
	users *repository.UserRepository,
	email *EmailService,
	rdb *redis.Client,
	cfg *config.Config,
) *AttemptService {
	return &AttemptService{
		Attempts: attempts,
		Tests:    tests,
		Users:    users,
		Email:    email,
		Redis:    rdb,
		Cfg:      cfg,
		locks:    newAttemptLocks(),
	}
}

// Start opens a new attempt. An existing in-progress attempt for the same
// (student, test) blocks a new one unless the test allows multiple
// attempts.
func (s *AttemptService) Start(studentID, testID uint) (*model.TestAttempt, error) {
	test, err := s.Tests.FindByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	if !test.IsPublished {
		return nil, util.ErrTestNotPublished
	}

	existing, err := s.Attempts.FindInProgress(studentID, testID)
	if err == nil && existing != nil {
		if attemptExpired(existing, test) {
			// A crashed or abandoned session must not block the student
			// once the clock has run out.
			if _, terr := s.Terminate(existing.ID, timeLimitReason); terr != nil {
				logger.Log.Warn("expired attempt cleanup failed",
					zap.Uint("attempt_id", existing.ID), zap.Error(terr))
			}
		} else if !test.AllowMultipleAttempts {
			return nil, util.ErrDuplicateAttempt
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	attempt := &model.TestAttempt{
		StudentID: studentID,
		TestID:    testID,
		Status:    model.AttemptInProgress,
		StartedAt: time.Now(),
	}
	if err := s.Attempts.Create(attempt); err != nil {
		return nil, err
	}

	s.touchHeartbeat(attempt.ID)
	return attempt, nil
}

// RecordAnswer stores or replaces the student's answer to one question.
// Only valid while the attempt is in progress.
func (s *AttemptService) RecordAnswer(studentID, attemptID, questionID uint, answer string) error {
	unlock := s.locks.lock(attemptID)
	defer unlock()

	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return util.ErrAttemptNotFound
	}
	if attempt.StudentID != studentID {
		return util.ErrAttemptNotFound
	}
	if attempt.Status != model.AttemptInProgress {
		return util.ErrInvalidState
	}
	if attemptExpired(attempt, attempt.Test) {
		s.expireLocked(attempt)
		return util.ErrInvalidState
	}

	qs, err := s.Tests.ListQuestions(attempt.TestID)
	if err != nil {
		return err
	}
	found := false
	for _, q := range qs {
		if q.ID == questionID {
			found = true
			break
		}
	}
	if !found {
		return errors.New("question does not belong to this test")
	}

	if err := s.Attempts.UpsertAnswer(&model.AttemptAnswer{
		AttemptID:  attemptID,
		QuestionID: questionID,
		Answer:     answer,
	}); err != nil {
		return err
	}

	s.touchHeartbeat(attemptID)
	return nil
}

// Submit transitions the attempt to submitted and scores it synchronously.
// Submitting an already-submitted attempt returns the stored result
// unchanged; submitting a terminated attempt is an invalid-state error.
func (s *AttemptService) Submit(studentID, attemptID uint) (*model.TestAttempt, error) {
	unlock := s.locks.lock(attemptID)
	defer unlock()

	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrAttemptNotFound
	}

	switch attempt.Status {
	case model.AttemptSubmitted:
		return attempt, nil
	case model.AttemptTerminated:
		return nil, util.ErrInvalidState
	}

	if attemptExpired(attempt, attempt.Test) {
		s.expireLocked(attempt)
		return nil, util.ErrInvalidState
	}

	now := time.Now()
	attempt.SubmittedAt = &now
	if err := s.finalize(attempt, model.AttemptSubmitted, ""); err != nil {
		// A racing writer finished the attempt first; hand back whatever
		// terminal state won.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			current, ferr := s.Attempts.FindByID(attemptID)
			if ferr == nil && current.Status == model.AttemptSubmitted {
				return current, nil
			}
			return nil, util.ErrInvalidState
		}
		return nil, err
	}

	if s.Email != nil {
		if student, err := s.Users.FindByID(attempt.StudentID); err == nil {
			s.Email.NotifySubmission(student, attempt)
		}
	}

	return attempt, nil
}

// Terminate forces an attempt into the terminated state (violation
// threshold, time limit, teacher decision). Answers recorded so far are
// still scored for the record, but a terminated attempt never becomes
// certificate-eligible regardless of that score.
func (s *AttemptService) Terminate(attemptID uint, reason string) (*model.TestAttempt, error) {
	unlock := s.locks.lock(attemptID)
	defer unlock()

	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}

	switch attempt.Status {
	case model.AttemptTerminated:
		return attempt, nil
	case model.AttemptSubmitted:
		return nil, util.ErrInvalidState
	}

	if err := s.finalize(attempt, model.AttemptTerminated, reason); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			current, ferr := s.Attempts.FindByID(attemptID)
			if ferr == nil && current.Status == model.AttemptTerminated {
				return current, nil
			}
			return nil, util.ErrInvalidState
		}
		return nil, err
	}

	logger.Log.Warn("attempt terminated",
		zap.Uint("attempt_id", attemptID),
		zap.String("reason", reason))
	return attempt, nil
}

const timeLimitReason = "time limit exceeded"

// attemptExpired reports whether an in-progress attempt has outlived its
// test's time limit. Untimed tests never expire.
func attemptExpired(attempt *model.TestAttempt, test *model.Test) bool {
	if test == nil || test.TimeLimit <= 0 || attempt.Status != model.AttemptInProgress {
		return false
	}
	deadline := attempt.StartedAt.Add(time.Duration(test.TimeLimit) * time.Minute)
	return time.Now().After(deadline)
}

// expireLocked terminates an overdue attempt in place. The caller already
// holds the attempt lock, so this must not go through Terminate.
func (s *AttemptService) expireLocked(attempt *model.TestAttempt) {
	if err := s.finalize(attempt, model.AttemptTerminated, timeLimitReason); err != nil {
		logger.Log.Error("expiry termination failed",
			zap.Uint("attempt_id", attempt.ID), zap.Error(err))
		return
	}
	logger.Log.Warn("attempt terminated",
		zap.Uint("attempt_id", attempt.ID),
		zap.String("reason", timeLimitReason))
}

// finalize scores the attempt and writes the terminal state behind the
// repository's in-progress guard.
func (s *AttemptService) finalize(attempt *model.TestAttempt, status model.AttemptStatus, reason string) error {
	questions, err := s.Tests.ListQuestions(attempt.TestID)
	if err != nil {
		return err
	}
	answers, err := s.Attempts.ListAnswers(attempt.ID)
	if err != nil {
		return err
	}

	score, total, scored, err := scoreAttempt(questions, answers)
	if err != nil {
		logger.Log.Error("scoring failed",
			zap.Uint("attempt_id", attempt.ID), zap.Error(err))
		return err
	}
	percentage, err := computePercentage(score, total)
	if err != nil {
		return err
	}

	attempt.Status = status
	attempt.Score = score
	attempt.TotalPoints = total
	attempt.Percentage = percentage
	attempt.TerminatedReason = reason

	if err := s.Attempts.FinalizeInProgress(attempt); err != nil {
		return err
	}
	return s.Attempts.SaveScoredAnswers(scored)
}

// scoreAttempt grades every answer against the question bank and sums
// awarded points. Total is the sum over all questions, answered or not.
func scoreAttempt(questions []model.TestQuestion, answers []model.AttemptAnswer) (score, total int, scored []model.AttemptAnswer, err error) {
	if len(questions) == 0 {
		return 0, 0, nil, util.ErrScoring
	}

	byQuestion := make(map[uint]*model.AttemptAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	for _, q := range questions {
		total += q.Points
		ans, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		if gradeAnswer(q, ans.Answer) {
			ans.IsCorrect = true
			ans.Points = q.Points
			score += q.Points
		} else {
			ans.IsCorrect = false
			ans.Points = 0
		}
	}

	if total == 0 {
		return 0, 0, nil, util.ErrScoring
	}
	return score, total, answers, nil
}

// gradeAnswer compares case-insensitively after trimming. Multiple-choice
// answers are treated as comma-separated sets, so "A,C" equals "c, a".
func gradeAnswer(q model.TestQuestion, answer string) bool {
	if q.QuestionType == "multiple_choice" {
		return normalizeChoiceSet(answer) == normalizeChoiceSet(q.Answer)
	}
	return normalizeAnswer(answer) == normalizeAnswer(q.Answer)
}

func normalizeAnswer(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func normalizeChoiceSet(s string) string {
	parts := strings.Split(s, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = normalizeAnswer(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, ",")
}

// computePercentage rounds half up. A zero point total is a data
// integrity problem and must never silently produce a number.
func computePercentage(score, total int) (int, error) {
	if total <= 0 {
		return 0, util.ErrScoring
	}
	return (score*100*2 + total) / (total * 2), nil
}

// Heartbeat marks the attempt as live in Redis. Gaps in the heartbeat
// stream are advisory corroboration for violation events, nothing more.
func (s *AttemptService) Heartbeat(studentID, attemptID uint) error {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return util.ErrAttemptNotFound
	}
	if attempt.StudentID != studentID {
		return util.ErrAttemptNotFound
	}
	if attempt.Status != model.AttemptInProgress {
		return util.ErrInvalidState
	}
	if attemptExpired(attempt, attempt.Test) {
		if _, err := s.Terminate(attemptID, timeLimitReason); err != nil {
			logger.Log.Warn("expired attempt cleanup failed",
				zap.Uint("attempt_id", attemptID), zap.Error(err))
		}
		return util.ErrInvalidState
	}

	s.touchHeartbeat(attemptID)
	return nil
}

func (s *AttemptService) touchHeartbeat(attemptID uint) {
	if s.Redis == nil {
		return
	}
	key := heartbeatKey(attemptID)
	if err := s.Redis.Set(context.Background(), key, time.Now().Unix(), s.Cfg.Proctor.HeartbeatTTL).Err(); err != nil {
		logger.Log.Warn("heartbeat write failed", zap.Uint("attempt_id", attemptID), zap.Error(err))
	}
}

func (s *AttemptService) isOnline(attemptID uint) bool {
	if s.Redis == nil {
		return false
	}
	n, err := s.Redis.Exists(context.Background(), heartbeatKey(attemptID)).Result()
	return err == nil && n > 0
}

func heartbeatKey(attemptID uint) string {
	return fmt.Sprintf("attempt:heartbeat:%d", attemptID)
}

// AnswerResult is one graded question in the attempt detail. Correct
// answer and explanation are only populated on terminal attempts.
type AnswerResult struct {
	QuestionID    uint    `json:"questionId"`
	QuestionType  string  `json:"questionType"`
	Content       string  `json:"content"`
	Points        int     `json:"points"`
	Answer        *string `json:"answer,omitempty"`
	IsCorrect     *bool   `json:"isCorrect,omitempty"`
	AwardedPoints *int    `json:"awardedPoints,omitempty"`
	CorrectAnswer *string `json:"correctAnswer,omitempty"`
	Explanation   *string `json:"explanation,omitempty"`
}

type AttemptDetail struct {
	Attempt *model.TestAttempt `json:"attempt"`
	Results []AnswerResult     `json:"results"`
}

// GetDetail returns the student's own attempt. While in progress it shows
// the recorded answers only; once terminal it includes grading, correct
// answers and explanations.
func (s *AttemptService) GetDetail(studentID, attemptID uint) (*AttemptDetail, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}
	if studentID != 0 && attempt.StudentID != studentID {
		return nil, util.ErrAttemptNotFound
	}

	questions, err := s.Tests.ListQuestions(attempt.TestID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Attempts.ListAnswers(attemptID)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[uint]model.AttemptAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	terminal := attempt.Status.Terminal()
	results := make([]AnswerResult, len(questions))
	for i, q := range questions {
		res := AnswerResult{
			QuestionID:   q.ID,
			QuestionType: q.QuestionType,
			Content:      q.Content,
			Points:       q.Points,
		}
		if a, ok := byQuestion[q.ID]; ok {
			answer := a.Answer
			res.Answer = &answer
			if terminal {
				isCorrect := a.IsCorrect
				awarded := a.Points
				res.IsCorrect = &isCorrect
				res.AwardedPoints = &awarded
			}
		}
		if terminal {
			correct := q.Answer
			explanation := q.Explanation
			res.CorrectAnswer = &correct
			res.Explanation = &explanation
		}
		results[i] = res
	}

	return &AttemptDetail{Attempt: attempt, Results: results}, nil
}

func (s *AttemptService) ListMine(studentID uint, page, limit int) ([]model.TestAttempt, int64, error) {
	return s.Attempts.ListByStudent(studentID, page, limit)
}

type ReviewRow struct {
	repository.AttemptReviewRow
	Online bool `json:"online"`
}

// ListForReview is the teacher proctoring view: attempts with violation
// counts and, for in-progress attempts, heartbeat presence.
func (s *AttemptService) ListForReview(testID uint, page, limit int, status string) ([]ReviewRow, int64, error) {
	rows, total, err := s.Attempts.ListForReview(testID, page, limit, status)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ReviewRow, len(rows))
	for i, row := range rows {
		out[i] = ReviewRow{AttemptReviewRow: row}
		if row.Status == model.AttemptInProgress {
			out[i].Online = s.isOnline(row.ID)
		}
	}
	return out, total, nil
}
