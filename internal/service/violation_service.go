package service

import (
	"time"

	"quiz_portal_backend/internal/config"
	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/internal/repository"
	"quiz_portal_backend/pkg/logger"
	"quiz_portal_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// ViolationService captures exam-integrity events reported by the client.
// Capture is best effort and advisory: a failure here is logged and
// swallowed, it must never interrupt the student's exam. The audit trail
// and deterrence are the point, not enforcement.
type ViolationService struct {
	Violations *repository.ViolationRepository
	Attempts   *repository.AttemptRepository
	AttemptSvc *AttemptService
	Cfg        *config.Config
}

func NewViolationService(
	violations *repository.ViolationRepository,
	attempts *repository.AttemptRepository,
	attemptSvc *AttemptService,
	cfg *config.Config,
) *ViolationService {
	return &ViolationService{
		Violations: violations,
		Attempts:   attempts,
		AttemptSvc: attemptSvc,
		Cfg:        cfg,
	}
}

// Record appends a violation event for the student's attempt. The write
// happens asynchronously so the exam flow is never blocked; when the
// attempt is not active (already finished, unknown, not theirs) the event
// is dropped with a log line and Record still returns nil.
func (s *ViolationService) Record(studentID, attemptID uint, kind model.ViolationKind, detail string) error {
	if !kind.Valid() {
		logger.Log.Warn("violation event with unknown kind dropped",
			zap.Uint("attempt_id", attemptID), zap.String("kind", string(kind)))
		return nil
	}

	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil || attempt.StudentID != studentID || attempt.Status != model.AttemptInProgress {
		logger.Log.Info("violation event without active attempt dropped",
			zap.Uint("attempt_id", attemptID), zap.String("kind", string(kind)))
		return nil
	}

	event := &model.ViolationEvent{
		AttemptID:  attemptID,
		Kind:       kind,
		Detail:     detail,
		OccurredAt: time.Now(),
	}

	go s.persist(attempt, event)
	return nil
}

// persist writes the event and applies the violation threshold. Runs off
// the request path; every failure is log-only.
func (s *ViolationService) persist(attempt *model.TestAttempt, event *model.ViolationEvent) {
	if err := s.Violations.Create(event); err != nil {
		logger.Log.Error("violation event write failed",
			zap.Uint("attempt_id", event.AttemptID), zap.Error(err))
		return
	}

	monitoring.ViolationCounter.WithLabelValues(string(event.Kind)).Inc()

	limit := s.violationLimit(attempt)
	if limit <= 0 {
		return
	}

	count, err := s.Violations.CountByAttempt(event.AttemptID)
	if err != nil {
		logger.Log.Error("violation count failed",
			zap.Uint("attempt_id", event.AttemptID), zap.Error(err))
		return
	}

	if count >= int64(limit) {
		if _, err := s.AttemptSvc.Terminate(event.AttemptID, "violation threshold exceeded"); err != nil {
			logger.Log.Error("threshold termination failed",
				zap.Uint("attempt_id", event.AttemptID), zap.Error(err))
		}
	}
}

// violationLimit prefers the per-test limit, falling back to the portal
// default. Zero on both means no automatic termination.
func (s *ViolationService) violationLimit(attempt *model.TestAttempt) int {
	if attempt.Test != nil && attempt.Test.MaxViolations > 0 {
		return attempt.Test.MaxViolations
	}
	return s.Cfg.Proctor.MaxViolations
}

// ListByAttempt is the reviewer's read of the audit trail.
func (s *ViolationService) ListByAttempt(attemptID uint) ([]model.ViolationEvent, error) {
	return s.Violations.ListByAttempt(attemptID)
}
