package repository

import (
	"quiz_portal_backend/internal/model"

	"gorm.io/gorm"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) Create(cert *model.Certificate) error {
	return r.DB.Create(cert).Error
}

func (r *CertificateRepository) FindByStudentAndTest(studentID, testID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Where("student_id = ? AND test_id = ?", studentID, testID).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindByCode looks up by the already-normalized (upper-case) code and
// preloads the display fields verification denormalizes.
func (r *CertificateRepository) FindByCode(code string) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.Preload("Student").Preload("Test").
		Where("code = ?", code).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) ListByStudent(studentID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.Preload("Test").Where("student_id = ?", studentID).
		Order("issued_at desc").Find(&certs).Error
	return certs, err
}
