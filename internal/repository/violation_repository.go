package repository

import (
	"quiz_portal_backend/internal/model"

	"gorm.io/gorm"
)

type ViolationRepository struct {
	DB *gorm.DB
}

func NewViolationRepository(db *gorm.DB) *ViolationRepository {
	return &ViolationRepository{DB: db}
}

// Create appends one event. Events are never updated or deleted.
func (r *ViolationRepository) Create(event *model.ViolationEvent) error {
	return r.DB.Create(event).Error
}

func (r *ViolationRepository) CountByAttempt(attemptID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ViolationEvent{}).
		Where("attempt_id = ?", attemptID).Count(&count).Error
	return count, err
}

func (r *ViolationRepository) ListByAttempt(attemptID uint) ([]model.ViolationEvent, error) {
	var events []model.ViolationEvent
	err := r.DB.Where("attempt_id = ?", attemptID).
		Order("occurred_at asc, id asc").Find(&events).Error
	return events, err
}
