package repository

import (
	"quiz_portal_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.TestAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByID(id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.DB.Preload("Test").First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindInProgress returns the student's open attempt for a test, if any.
func (r *AttemptRepository) FindInProgress(studentID, testID uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.DB.Where("student_id = ? AND test_id = ? AND status = ?",
		studentID, testID, model.AttemptInProgress).First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FinalizeInProgress writes the terminal state of an attempt, guarded on the
// row still being in_progress. Returns gorm.ErrRecordNotFound when another
// writer got there first, so a racing submit/terminate cannot double-score.
func (r *AttemptRepository) FinalizeInProgress(attempt *model.TestAttempt) error {
	res := r.DB.Model(&model.TestAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":            attempt.Status,
			"score":             attempt.Score,
			"total_points":      attempt.TotalPoints,
			"percentage":        attempt.Percentage,
			"submitted_at":      attempt.SubmittedAt,
			"terminated_reason": attempt.TerminatedReason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertAnswer records or replaces the student's answer for one question.
// The (attempt_id, question_id) unique index makes this a single round trip.
func (r *AttemptRepository) UpsertAnswer(answer *model.AttemptAnswer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "updated_at"}),
	}).Create(answer).Error
}

func (r *AttemptRepository) ListAnswers(attemptID uint) ([]model.AttemptAnswer, error) {
	var answers []model.AttemptAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&answers).Error
	return answers, err
}

// SaveScoredAnswers persists grading results inside one transaction.
func (r *AttemptRepository) SaveScoredAnswers(answers []model.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range answers {
			if err := tx.Model(&model.AttemptAnswer{}).
				Where("id = ?", answers[i].ID).
				Updates(map[string]interface{}{
					"is_correct": answers[i].IsCorrect,
					"points":     answers[i].Points,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AttemptRepository) ListByStudent(studentID uint, page, limit int) ([]model.TestAttempt, int64, error) {
	var total int64
	query := r.DB.Model(&model.TestAttempt{}).Where("student_id = ?", studentID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var attempts []model.TestAttempt
	offset := (page - 1) * limit
	err := r.DB.Preload("Test").Where("student_id = ?", studentID).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&attempts).Error
	return attempts, total, err
}

type AttemptReviewRow struct {
	model.TestAttempt
	StudentName    string `json:"studentName"`
	StudentEmail   string `json:"studentEmail"`
	ViolationCount int    `json:"violationCount"`
}

// ListForReview returns a test's attempts with student identity and the
// violation count joined in, for the teacher proctoring screen.
func (r *AttemptRepository) ListForReview(testID uint, page, limit int, status string) ([]AttemptReviewRow, int64, error) {
	query := r.DB.Table("test_attempts a").
		Select("a.*, u.name as student_name, u.email as student_email, "+
			"(SELECT COUNT(*) FROM violation_events v WHERE v.attempt_id = a.id AND v.deleted_at IS NULL) as violation_count").
		Joins("JOIN users u ON a.student_id = u.id").
		Where("a.test_id = ? AND a.deleted_at IS NULL", testID)

	if status != "" {
		query = query.Where("a.status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []AttemptReviewRow
	offset := (page - 1) * limit
	err := query.Order("a.created_at desc").Offset(offset).Limit(limit).Scan(&rows).Error
	return rows, total, err
}
