package service

import (
	"encoding/json"
	"errors"
	"time"

	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/repository"
	"quiz_portal_backend/internal/util"
)

type TestService struct {
	Repo *repository.TestRepository
}

func NewTestService(repo *repository.TestRepository) *TestService {
	return &TestService{Repo: repo}
}

type TestQuestionReq struct {
	ID           uint            `json:"id"`
	QuestionType string          `json:"questionType" binding:"required"`
	Content      string          `json:"content" binding:"required"`
	Options      json.RawMessage `json:"options"`
	Answer       string          `json:"answer" binding:"required"`
	Points       int             `json:"points"`
	Explanation  string          `json:"explanation"`
	Order        int             `json:"order"`
}

type TestReq struct {
	CourseID              *uint              `json:"courseId"`
	Title                 *string            `json:"title"`
	Description           *string            `json:"description"`
	TimeLimit             *int               `json:"timeLimit"`
	PassingScore          *int               `json:"passingScore"`
	AllowMultipleAttempts *bool              `json:"allowMultipleAttempts"`
	MaxViolations         *int               `json:"maxViolations"`
	IsPublished           *bool              `json:"isPublished"`
	Questions             *[]TestQuestionReq `json:"questions"`
}

func (s *TestService) Create(creatorID uint, req TestReq) (*model.Test, error) {
	if req.Title == nil || *req.Title == "" {
		return nil, errors.New("title is required")
	}

	test := &model.Test{
		Title:     *req.Title,
		CreatorID: creatorID,
	}
	if req.CourseID != nil {
		test.CourseID = *req.CourseID
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.TimeLimit != nil {
		test.TimeLimit = *req.TimeLimit
	}
	if req.PassingScore != nil {
		if *req.PassingScore < 0 || *req.PassingScore > 100 {
			return nil, errors.New("passingScore must be between 0 and 100")
		}
		test.PassingScore = *req.PassingScore
	} else {
		test.PassingScore = 60
	}
	if req.AllowMultipleAttempts != nil {
		test.AllowMultipleAttempts = *req.AllowMultipleAttempts
	}
	if req.MaxViolations != nil {
		test.MaxViolations = *req.MaxViolations
	}
	if req.IsPublished != nil && *req.IsPublished {
		now := time.Now()
		test.IsPublished = true
		test.PublishedAt = &now
	}

	if err := s.Repo.Create(test); err != nil {
		return nil, err
	}

	if req.Questions != nil {
		for _, qReq := range *req.Questions {
			q := &model.TestQuestion{
				TestID:       test.ID,
				QuestionType: qReq.QuestionType,
				Content:      qReq.Content,
				Options:      qReq.Options,
				Answer:       qReq.Answer,
				Points:       qReq.Points,
				Explanation:  qReq.Explanation,
				Order:        qReq.Order,
			}
			if q.Points == 0 {
				q.Points = 1
			}
			if err := s.Repo.CreateQuestion(q); err != nil {
				return nil, err
			}
		}
	}

	return test, nil
}

func (s *TestService) Update(testID uint, req TestReq) (*model.Test, error) {
	test, err := s.Repo.FindByID(testID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil && *req.Title != "" {
		test.Title = *req.Title
	}
	if req.CourseID != nil {
		test.CourseID = *req.CourseID
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.TimeLimit != nil {
		test.TimeLimit = *req.TimeLimit
	}
	if req.PassingScore != nil {
		if *req.PassingScore < 0 || *req.PassingScore > 100 {
			return nil, errors.New("passingScore must be between 0 and 100")
		}
		test.PassingScore = *req.PassingScore
	}
	if req.AllowMultipleAttempts != nil {
		test.AllowMultipleAttempts = *req.AllowMultipleAttempts
	}
	if req.MaxViolations != nil {
		test.MaxViolations = *req.MaxViolations
	}
	if req.IsPublished != nil {
		if *req.IsPublished && !test.IsPublished {
			now := time.Now()
			test.PublishedAt = &now
		}
		test.IsPublished = *req.IsPublished
	}

	if err := s.Repo.Update(test); err != nil {
		return nil, err
	}

	if req.Questions != nil {
		existingQs, _ := s.Repo.ListQuestions(testID)
		existingMap := make(map[uint]*model.TestQuestion)
		for i := range existingQs {
			existingMap[existingQs[i].ID] = &existingQs[i]
		}

		keptIDs := make(map[uint]bool)
		for _, qReq := range *req.Questions {
			if qReq.ID != 0 {
				if q, ok := existingMap[qReq.ID]; ok {
					q.QuestionType = qReq.QuestionType
					q.Content = qReq.Content
					q.Options = qReq.Options
					q.Answer = qReq.Answer
					q.Points = qReq.Points
					q.Explanation = qReq.Explanation
					q.Order = qReq.Order
					s.Repo.UpdateQuestion(q)
					keptIDs[q.ID] = true
				}
			} else {
				s.Repo.CreateQuestion(&model.TestQuestion{
					TestID:       testID,
					QuestionType: qReq.QuestionType,
					Content:      qReq.Content,
					Options:      qReq.Options,
					Answer:       qReq.Answer,
					Points:       qReq.Points,
					Explanation:  qReq.Explanation,
					Order:        qReq.Order,
				})
			}
		}

		for id := range existingMap {
			if !keptIDs[id] {
				s.Repo.DeleteQuestion(id)
			}
		}
	}

	return test, nil
}

func (s *TestService) Delete(testID uint) error {
	return s.Repo.Delete(testID)
}

func (s *TestService) Get(testID uint) (*model.Test, []model.TestQuestion, error) {
	test, err := s.Repo.FindByID(testID)
	if err != nil {
		return nil, nil, err
	}
	qs, err := s.Repo.ListQuestions(testID)
	return test, qs, err
}

func (s *TestService) List(page, limit int, courseID uint, publishedOnly bool) ([]repository.TestListRow, int64, error) {
	return s.Repo.List(page, limit, courseID, publishedOnly)
}

// StudentQuestion is a question as shown while taking a test: no correct
// answer, no explanation.
type StudentQuestion struct {
	ID           uint            `json:"id"`
	QuestionType string          `json:"questionType"`
	Content      string          `json:"content"`
	Options      json.RawMessage `json:"options,omitempty"`
	Points       int             `json:"points"`
	Order        int             `json:"order"`
}

type StudentTestDetail struct {
	ID                    uint              `json:"id"`
	CourseID              uint              `json:"courseId"`
	Title                 string            `json:"title"`
	Description           string            `json:"description"`
	TimeLimit             int               `json:"timeLimit"`
	PassingScore          int               `json:"passingScore"`
	AllowMultipleAttempts bool              `json:"allowMultipleAttempts"`
	QuestionCount         int               `json:"questionCount"`
	TotalPoints           int               `json:"totalPoints"`
	Questions             []StudentQuestion `json:"questions"`
}

// GetForStudent returns the answer-free view of a published test.
func (s *TestService) GetForStudent(testID uint) (*StudentTestDetail, error) {
	test, err := s.Repo.FindByID(testID)
	if err != nil {
		return nil, err
	}
	if !test.IsPublished {
		return nil, util.ErrTestNotPublished
	}

	qs, err := s.Repo.ListQuestions(testID)
	if err != nil {
		return nil, err
	}

	detail := &StudentTestDetail{
		ID:                    test.ID,
		CourseID:              test.CourseID,
		Title:                 test.Title,
		Description:           test.Description,
		TimeLimit:             test.TimeLimit,
		PassingScore:          test.PassingScore,
		AllowMultipleAttempts: test.AllowMultipleAttempts,
		QuestionCount:         len(qs),
		Questions:             make([]StudentQuestion, len(qs)),
	}
	for i, q := range qs {
		detail.TotalPoints += q.Points
		detail.Questions[i] = StudentQuestion{
			ID:           q.ID,
			QuestionType: q.QuestionType,
			Content:      q.Content,
			Options:      q.Options,
			Points:       q.Points,
			Order:        q.Order,
		}
	}
	return detail, nil
}
