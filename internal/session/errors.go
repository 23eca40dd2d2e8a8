package session

import "errors"

var (
	// ErrOutOfRange is returned when a navigation target is outside
	// [0, totalQuestions). The current position is left unchanged.
	ErrOutOfRange = errors.New("question index out of range")

	// ErrClockAlreadyRunning is returned by Clock.Start when the clock is
	// already ticking. Programmer error, never swallowed.
	ErrClockAlreadyRunning = errors.New("countdown clock already running")

	// ErrClockFinished is returned by Clock.Start once the clock has
	// expired or been stopped. One countdown per session, no restarts.
	ErrClockFinished = errors.New("countdown clock already finished")

	// ErrAlreadySubmitted is returned when an operation arrives after the
	// session entered the submission path.
	ErrAlreadySubmitted = errors.New("session already submitted")

	// ErrNoSuchSection is returned by JumpToSection for a section type the
	// paper does not contain.
	ErrNoSuchSection = errors.New("section not found on paper")

	// ErrInvalidOption is returned when a choice option index is outside
	// the question's option list.
	ErrInvalidOption = errors.New("option index out of range")
)
