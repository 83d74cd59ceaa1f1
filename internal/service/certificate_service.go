package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/repository"
	"quiz_portal_backend/internal/util"
	"quiz_portal_backend/pkg/logger"
	"quiz_portal_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// codeAlphabet omits 0/O, 1/I/L and U so codes survive being read aloud
// or retyped. Codes are stored upper-case; lookups are case-insensitive.
const codeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

const codeGenRetries = 5

const verifyCacheTTL = 10 * time.Minute

type CertificateService struct {
	Certs    *repository.CertificateRepository
	Attempts *repository.AttemptRepository
	Tests    *repository.TestRepository
	Users    *repository.UserRepository
	Email    *EmailService
	Redis    *redis.Client
}

func NewCertificateService(
	certs *repository.CertificateRepository,
	attempts *repository.AttemptRepository,
	tests *repository.TestRepository,
	users *repository.UserRepository,
	email *EmailService,
	rdb *redis.Client,
) *CertificateService {
	return &CertificateService{
		Certs:    certs,
		Attempts: attempts,
		Tests:    tests,
		Users:    users,
		Email:    email,
		Redis:    rdb,
	}
}

// IsEligibleForCertificate: submitted and at or above the passing score.
// Terminated attempts are never eligible, whatever their partial score.
func IsEligibleForCertificate(attempt *model.TestAttempt, test *model.Test) bool {
	return attempt.Status == model.AttemptSubmitted && attempt.Percentage >= test.PassingScore
}

// Issue creates the certificate for a passed attempt, or returns the
// existing one: at most one certificate per (student, test), enforced by
// the unique index rather than a check-then-insert. The score fields are
// snapshotted from the attempt at issuance time.
func (s *CertificateService) Issue(studentID, attemptID uint) (*model.Certificate, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, util.ErrAttemptNotFound
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrAttemptNotFound
	}

	test := attempt.Test
	if test == nil {
		if test, err = s.Tests.FindByID(attempt.TestID); err != nil {
			return nil, err
		}
	}

	if !IsEligibleForCertificate(attempt, test) {
		return nil, util.ErrNotEligible
	}

	if existing, err := s.Certs.FindByStudentAndTest(attempt.StudentID, attempt.TestID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	for i := 0; i < codeGenRetries; i++ {
		code, err := generateCertificateCode()
		if err != nil {
			return nil, err
		}

		cert := &model.Certificate{
			AttemptID:   attempt.ID,
			TestID:      attempt.TestID,
			StudentID:   attempt.StudentID,
			Code:        code,
			IssuedAt:    now,
			Percentage:  attempt.Percentage,
			Score:       attempt.Score,
			TotalPoints: attempt.TotalPoints,
		}

		if err := s.Certs.Create(cert); err != nil {
			// Only uniqueness collisions are retried; other storage
			// failures propagate.
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, err
			}
			// Lost a race on (student, test): the winner's row is the
			// certificate, return it unchanged.
			if existing, ferr := s.Certs.FindByStudentAndTest(attempt.StudentID, attempt.TestID); ferr == nil {
				return existing, nil
			}
			// Otherwise it was a code collision; retry with a new code.
			logger.Log.Warn("certificate code collision, retrying",
				zap.Uint("attempt_id", attemptID), zap.Error(err))
			continue
		}

		monitoring.CertificateCounter.Inc()

		if s.Email != nil {
			if student, err := s.Users.FindByID(cert.StudentID); err == nil {
				s.Email.NotifyCertificate(student, cert, test)
			}
		}

		return cert, nil
	}

	return nil, util.ErrCodeGeneration
}

func (s *CertificateService) ListMine(studentID uint) ([]model.Certificate, error) {
	return s.Certs.ListByStudent(studentID)
}

// CertificateView is the denormalized public payload of a verified
// certificate.
type CertificateView struct {
	Code        string    `json:"code"`
	StudentName string    `json:"studentName"`
	TestTitle   string    `json:"testTitle"`
	IssuedAt    time.Time `json:"issuedAt"`
	Percentage  int       `json:"percentage"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"totalPoints"`
}

type VerificationResult struct {
	Valid       bool             `json:"valid"`
	Reason      string           `json:"reason,omitempty"`
	Certificate *CertificateView `json:"certificate,omitempty"`
}

// invalidResult is the single failure shape for every miss: malformed and
// unknown codes are indistinguishable, so the endpoint cannot be used to
// enumerate codes.
func invalidResult() *VerificationResult {
	return &VerificationResult{Valid: false, Reason: "certificate not found"}
}

// Verify is a pure read, safe to expose unauthenticated. Input is trimmed
// and upper-cased before lookup (codes are case-insensitive by decision:
// they get read from printed certificates and typed back in).
func (s *CertificateService) Verify(code string) *VerificationResult {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return invalidResult()
	}

	if view := s.cachedView(normalized); view != nil {
		return &VerificationResult{Valid: true, Certificate: view}
	}

	cert, err := s.Certs.FindByCode(normalized)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Log.Error("certificate lookup failed", zap.Error(err))
		}
		return invalidResult()
	}

	view := &CertificateView{
		Code:        cert.Code,
		IssuedAt:    cert.IssuedAt,
		Percentage:  cert.Percentage,
		Score:       cert.Score,
		TotalPoints: cert.TotalPoints,
	}
	if cert.Student != nil {
		view.StudentName = cert.Student.Name
	}
	if cert.Test != nil {
		view.TestTitle = cert.Test.Title
	}

	s.cacheView(normalized, view)
	return &VerificationResult{Valid: true, Certificate: view}
}

func (s *CertificateService) cachedView(code string) *CertificateView {
	if s.Redis == nil {
		return nil
	}
	raw, err := s.Redis.Get(context.Background(), verifyCacheKey(code)).Bytes()
	if err != nil {
		return nil
	}
	var view CertificateView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil
	}
	return &view
}

func (s *CertificateService) cacheView(code string, view *CertificateView) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := s.Redis.Set(context.Background(), verifyCacheKey(code), raw, verifyCacheTTL).Err(); err != nil {
		logger.Log.Warn("verify cache write failed", zap.Error(err))
	}
}

func verifyCacheKey(code string) string {
	return "certificate:verify:" + code
}

// generateCertificateCode returns CERT-XXXX-XXXX-XXXX from the restricted
// alphabet. Uniqueness is the DB constraint's job; at 30^12 combinations a
// collision is an insert-retry, not a design concern.
func generateCertificateCode() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("CERT")
	for i, c := range buf {
		if i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return b.String(), nil
}
