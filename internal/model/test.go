package model

import (
	"encoding/json"
	"time"
)

// swagger:model Test
type Test struct {
	BaseModel
	CourseID    uint       `gorm:"index" json:"courseId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	TimeLimit   int        `gorm:"default:0" json:"timeLimit"` // Minutes, 0 = untimed
	// PassingScore is the percentage (0-100) required for a certificate.
	PassingScore          int        `gorm:"default:60" json:"passingScore"`
	AllowMultipleAttempts bool       `gorm:"default:false" json:"allowMultipleAttempts"`
	// MaxViolations above which an in-progress attempt is terminated.
	// 0 falls back to the portal-wide proctor setting.
	MaxViolations int        `gorm:"default:0" json:"maxViolations"`
	IsPublished   bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	CreatorID     uint       `gorm:"index" json:"creatorId"`
}

func (Test) TableName() string {
	return "tests"
}

// swagger:model TestQuestion
type TestQuestion struct {
	BaseModel
	TestID       uint            `gorm:"index" json:"testId"`
	QuestionType string          `gorm:"size:50;not null" json:"questionType"` // single_choice, multiple_choice, true_false, fill_blank
	Content      string          `gorm:"type:text;not null" json:"content"`
	Options      json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	Answer       string          `gorm:"type:text" json:"answer"`
	Points       int             `gorm:"default:1" json:"points"`
	Explanation  string          `gorm:"type:text" json:"explanation"`
	Order        int             `gorm:"default:0" json:"order"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}
