package service

import (
	"errors"
	"time"

	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/repository"
)

type CourseService struct {
	Repo *repository.CourseRepository
}

func NewCourseService(repo *repository.CourseRepository) *CourseService {
	return &CourseService{Repo: repo}
}

type CourseReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublished *bool   `json:"isPublished"`
}

func (s *CourseService) Create(teacherID uint, req CourseReq) (*model.Course, error) {
	if req.Title == nil || *req.Title == "" {
		return nil, errors.New("title is required")
	}

	course := &model.Course{
		Title:     *req.Title,
		TeacherID: teacherID,
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.IsPublished != nil && *req.IsPublished {
		now := time.Now()
		course.IsPublished = true
		course.PublishedAt = &now
	}

	if err := s.Repo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Update(courseID uint, req CourseReq) (*model.Course, error) {
	course, err := s.Repo.FindByID(courseID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil && *req.Title != "" {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.IsPublished != nil {
		if *req.IsPublished && !course.IsPublished {
			now := time.Now()
			course.PublishedAt = &now
		}
		course.IsPublished = *req.IsPublished
	}

	if err := s.Repo.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Delete(courseID uint) error {
	return s.Repo.Delete(courseID)
}

func (s *CourseService) Get(courseID uint) (*model.Course, error) {
	return s.Repo.FindByID(courseID)
}

func (s *CourseService) List(page, limit int, publishedOnly bool) ([]repository.CourseListRow, int64, error) {
	return s.Repo.List(page, limit, publishedOnly)
}
