package repository

import (
	"quiz_portal_backend/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) Create(test *model.Test) error {
	return r.DB.Create(test).Error
}

func (r *TestRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) Update(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&model.TestQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Test{}, id).Error
	})
}

type TestListRow struct {
	model.Test
	QuestionCount int `json:"questionCount"`
	AttemptCount  int `json:"attemptCount"`
}

func (r *TestRepository) List(page, limit int, courseID uint, publishedOnly bool) ([]TestListRow, int64, error) {
	countQuery := r.DB.Model(&model.Test{})
	dbQuery := r.DB.Table("tests t").
		Select("t.*, " +
			"(SELECT COUNT(*) FROM test_questions q WHERE q.test_id = t.id AND q.deleted_at IS NULL) as question_count, " +
			"(SELECT COUNT(*) FROM test_attempts a WHERE a.test_id = t.id AND a.deleted_at IS NULL) as attempt_count").
		Where("t.deleted_at IS NULL")

	if courseID != 0 {
		countQuery = countQuery.Where("course_id = ?", courseID)
		dbQuery = dbQuery.Where("t.course_id = ?", courseID)
	}
	if publishedOnly {
		countQuery = countQuery.Where("is_published = ?", true)
		dbQuery = dbQuery.Where("t.is_published = ?", true)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tests []TestListRow
	offset := (page - 1) * limit
	err := dbQuery.Order("t.created_at desc").Offset(offset).Limit(limit).Scan(&tests).Error
	return tests, total, err
}

func (r *TestRepository) CreateQuestion(q *model.TestQuestion) error {
	return r.DB.Create(q).Error
}

func (r *TestRepository) UpdateQuestion(q *model.TestQuestion) error {
	return r.DB.Save(q).Error
}

func (r *TestRepository) DeleteQuestion(id uint) error {
	return r.DB.Delete(&model.TestQuestion{}, id).Error
}

func (r *TestRepository) ListQuestions(testID uint) ([]model.TestQuestion, error) {
	var qs []model.TestQuestion
	err := r.DB.Where("test_id = ?", testID).Order("`order` asc, created_at asc").Find(&qs).Error
	return qs, err
}
