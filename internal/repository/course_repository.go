package repository

import (
	"quiz_portal_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.Preload("Teacher").First(&course, id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", id).Delete(&model.Test{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Course{}, id).Error
	})
}

type CourseListRow struct {
	model.Course
	TestCount int `json:"testCount"`
}

func (r *CourseRepository) List(page, limit int, publishedOnly bool) ([]CourseListRow, int64, error) {
	var total int64
	query := r.DB.Model(&model.Course{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []CourseListRow
	dbQuery := r.DB.Table("courses c").
		Select("c.*, " +
			"(SELECT COUNT(*) FROM tests t WHERE t.course_id = c.id AND t.deleted_at IS NULL) as test_count").
		Where("c.deleted_at IS NULL")
	if publishedOnly {
		dbQuery = dbQuery.Where("c.is_published = ?", true)
	}

	offset := (page - 1) * limit
	err := dbQuery.Order("c.created_at desc").Offset(offset).Limit(limit).Scan(&courses).Error
	return courses, total, err
}
