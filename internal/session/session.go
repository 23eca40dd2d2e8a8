package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/CET-Mate/exam-session-service/internal/models"
)

// SubmitFunc is the single submission entry point for a session. Both a
// manual submit and the clock's forced submit arrive here; the engine
// guarantees it is entered at most once per session.
type SubmitFunc func(reason string)

// Session is the live state of one exam attempt: current position, the
// answer sheet and the countdown clock. It exclusively owns this state for
// the lifetime of the attempt and hands off to the grading pipeline at
// submission.
type Session struct {
	ID        string
	PaperID   uint
	StudentID string
	StartedAt time.Time

	paper    *models.ExamPaper
	sections *SectionTable
	sheet    *AnswerSheet
	clock    *Clock

	mu       sync.Mutex
	position int

	submitted atomic.Bool
	submit    SubmitFunc
}

// New builds a session over a validated paper. flush receives every
// committed answer write; tickInterval <= 0 defaults to one second.
func New(id string, paper *models.ExamPaper, studentID string, flush FlushFunc, tickInterval time.Duration) (*Session, error) {
	table, err := NewSectionTable(paper.Sections, paper.TotalQuestions())
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        id,
		PaperID:   paper.ID,
		StudentID: studentID,
		StartedAt: time.Now(),
		paper:     paper,
		sections:  table,
		sheet:     NewAnswerSheet(flush),
	}
	s.clock = NewClock(tickInterval, func() {
		s.RequestSubmit(models.EndReasonTimeout)
	})
	return s, nil
}

// BindSubmit installs the submission entry point. Must be called before
// the clock starts.
func (s *Session) BindSubmit(fn SubmitFunc) {
	s.submit = fn
}

// StartClock begins the countdown with the given number of seconds.
func (s *Session) StartClock(seconds int) error {
	return s.clock.Start(seconds)
}

// Clock exposes the countdown for time queries.
func (s *Session) Clock() *Clock {
	return s.clock
}

// Sheet exposes the answer store.
func (s *Session) Sheet() *AnswerSheet {
	return s.sheet
}

// Sections exposes the section lookup table.
func (s *Session) Sections() *SectionTable {
	return s.sections
}

// Paper returns the fixed question list the session runs over.
func (s *Session) Paper() *models.ExamPaper {
	return s.paper
}

// ===== NAVIGATION =====

// MoveTo sets the current position and returns the question there. An
// index outside [0, totalQuestions) fails with ErrOutOfRange and leaves
// the position unchanged. Leaving a free-text question flushes any staged
// typing first.
func (s *Session) MoveTo(index int) (*models.Question, error) {
	if index < 0 || index >= s.paper.TotalQuestions() {
		return nil, ErrOutOfRange
	}

	s.mu.Lock()
	prev := s.position
	s.position = index
	s.mu.Unlock()

	if s.paper.Questions[prev].Type.IsSubjective() {
		s.sheet.FlushPending()
	}
	return &s.paper.Questions[index], nil
}

// Next advances one question. At the last index it triggers the
// submission path instead and reports submitted = true.
func (s *Session) Next() (q *models.Question, submitted bool, err error) {
	s.mu.Lock()
	pos := s.position
	s.mu.Unlock()

	if pos >= s.paper.TotalQuestions()-1 {
		s.RequestSubmit(models.EndReasonManual)
		return nil, true, nil
	}
	q, err = s.MoveTo(pos + 1)
	return q, false, err
}

// Previous moves one question back.
func (s *Session) Previous() (*models.Question, error) {
	s.mu.Lock()
	pos := s.position
	s.mu.Unlock()
	return s.MoveTo(pos - 1)
}

// JumpToSection moves to the first question of the given section.
func (s *Session) JumpToSection(sectionType models.SectionType) (*models.Question, error) {
	sec, ok := s.sections.ByType(sectionType)
	if !ok {
		return nil, ErrNoSuchSection
	}
	return s.MoveTo(sec.Start)
}

// Position returns the current question index.
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Current returns the question at the current position.
func (s *Session) Current() *models.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &s.paper.Questions[s.position]
}

// CurrentSectionRange returns the section containing the current
// position, for section-relative numbering in the caller.
func (s *Session) CurrentSectionRange() models.Section {
	s.mu.Lock()
	pos := s.position
	s.mu.Unlock()
	sec, _ := s.sections.ByIndex(pos)
	return sec
}

// ===== ANSWER CAPTURE =====

// RecordChoice stores a choice selection for the question at index after
// validating the option against that question's option list.
func (s *Session) RecordChoice(index int, option OptionIndex) error {
	if index < 0 || index >= s.paper.TotalQuestions() {
		return ErrOutOfRange
	}
	q := s.paper.Questions[index]
	if int(option) < 0 || int(option) >= len(q.Options) {
		return ErrInvalidOption
	}
	return s.sheet.RecordChoice(index, option)
}

// RecordText commits free text for the question at index.
func (s *Session) RecordText(index int, text string) error {
	if index < 0 || index >= s.paper.TotalQuestions() {
		return ErrOutOfRange
	}
	s.sheet.RecordText(index, text)
	return nil
}

// StageText keeps in-progress typing for the question at index; it is
// committed by the next navigation away or by submission.
func (s *Session) StageText(index int, text string) error {
	if index < 0 || index >= s.paper.TotalQuestions() {
		return ErrOutOfRange
	}
	s.sheet.StageText(index, text)
	return nil
}

// ===== SUBMISSION =====

// RequestSubmit funnels every submission trigger, manual or forced,
// through one idempotent entry point. The first call wins: it stops the
// clock, captures staged typing, and invokes the bound submit function.
// Later calls are no-ops.
func (s *Session) RequestSubmit(reason string) bool {
	if !s.submitted.CompareAndSwap(false, true) {
		return false
	}
	s.clock.Stop()
	s.sheet.FlushPending()
	if s.submit != nil {
		s.submit(reason)
	}
	return true
}

// Submitted reports whether the submission path has been entered.
func (s *Session) Submitted() bool {
	return s.submitted.Load()
}
