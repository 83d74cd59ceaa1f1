package util

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailRegistered  = errors.New("email already registered")
	ErrPermissionDenied = errors.New("permission denied")

	ErrTestNotFound     = errors.New("test not found")
	ErrTestNotPublished = errors.New("test not published or not accessible")
	ErrAttemptNotFound  = errors.New("attempt not found")

	// ErrInvalidState: the operation is not valid for the attempt's current
	// status (e.g. recording an answer on a submitted attempt). Recoverable,
	// surfaced to the caller.
	ErrInvalidState = errors.New("operation not allowed in current attempt state")

	// ErrDuplicateAttempt: an in-progress attempt for the same student and
	// test already exists and the test does not allow multiple attempts.
	ErrDuplicateAttempt = errors.New("an attempt for this test is already in progress")

	// ErrScoring: the test's questions carry zero total points, so a
	// percentage cannot be computed. Data integrity problem, never defaulted.
	ErrScoring = errors.New("test has no scorable points")

	// ErrNotEligible: business-rule rejection of certificate issuance
	// (attempt not submitted, or below the passing score).
	ErrNotEligible = errors.New("attempt is not eligible for a certificate")

	// ErrCodeGeneration: certificate code collided with existing codes on
	// every bounded retry.
	ErrCodeGeneration = errors.New("could not generate a unique certificate code")
)
