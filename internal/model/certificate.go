package model

import "time"

// Certificate is issued at most once per (student, test); the composite
// unique index is the authoritative idempotency guard, not application
// level checks. Score fields are a snapshot taken at issuance so that
// later administrative corrections of the attempt do not retroactively
// change an issued certificate. The primary key is a UUID: certificates
// are public-facing artifacts and must not carry guessable sequential IDs.
// swagger:model Certificate
type Certificate struct {
	UUIDBase
	AttemptID uint  `gorm:"index;not null" json:"attemptId"`
	TestID    uint  `gorm:"index:idx_cert_student_test,unique;not null" json:"testId"`
	StudentID uint  `gorm:"index:idx_cert_student_test,unique;not null" json:"studentId"`
	Student   *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Test      *Test `gorm:"foreignKey:TestID" json:"test,omitempty"`
	// Code is upper-case and globally unique; lookups are case-insensitive.
	Code        string    `gorm:"size:40;uniqueIndex;not null" json:"code"`
	IssuedAt    time.Time `json:"issuedAt"`
	Percentage  int       `json:"percentage"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"totalPoints"`
}

func (Certificate) TableName() string {
	return "certificates"
}
