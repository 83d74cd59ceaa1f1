package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptTerminated AttemptStatus = "terminated"
)

// Terminal reports whether no further answer or submit operations are
// allowed on an attempt in this status.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptSubmitted || s == AttemptTerminated
}

// TestAttempt is one student's run at a test. Score, TotalPoints and
// Percentage are only meaningful once the status is terminal.
// swagger:model TestAttempt
type TestAttempt struct {
	BaseModel
	StudentID        uint          `gorm:"index;not null" json:"studentId"`
	Student          *User         `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	TestID           uint          `gorm:"index;not null" json:"testId"`
	Test             *Test         `gorm:"foreignKey:TestID" json:"test,omitempty"`
	Status           AttemptStatus `gorm:"size:20;default:'in_progress';index" json:"status"`
	Score            int           `gorm:"default:0" json:"score"`
	TotalPoints      int           `gorm:"default:0" json:"totalPoints"`
	Percentage       int           `gorm:"default:0" json:"percentage"`
	StartedAt        time.Time     `json:"startedAt"`
	SubmittedAt      *time.Time    `json:"submittedAt,omitempty"`
	TerminatedReason string        `gorm:"size:255" json:"terminatedReason,omitempty"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

// swagger:model AttemptAnswer
type AttemptAnswer struct {
	BaseModel
	AttemptID  uint   `gorm:"index:idx_attempt_question,unique;not null" json:"attemptId"`
	QuestionID uint   `gorm:"index:idx_attempt_question,unique;not null" json:"questionId"`
	Answer     string `gorm:"type:text" json:"answer"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Points     int    `gorm:"default:0" json:"points"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
