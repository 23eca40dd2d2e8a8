package services

import "errors"

var (
	ErrPaperNotFound   = errors.New("exam paper not found")
	ErrSessionNotFound = errors.New("exam session not found")
	ErrResultNotFound  = errors.New("exam result not found")

	// ErrSessionNotActive is returned for operations against a session
	// that already left the in-progress phase.
	ErrSessionNotActive = errors.New("exam session is not active")

	// ErrSessionConflict is returned when the student already has an
	// in-progress session for the paper.
	ErrSessionConflict = errors.New("student already has an active session for this paper")

	// ErrResultNotSaved marks the distinct failure mode where grading
	// finished but the final write did not: the result exists in memory
	// and the caller owns the retry policy.
	ErrResultNotSaved = errors.New("grading finished but result was not saved")
)
