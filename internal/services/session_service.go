package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CET-Mate/exam-session-service/internal/config"
	"github.com/CET-Mate/exam-session-service/internal/events"
	"github.com/CET-Mate/exam-session-service/internal/export"
	"github.com/CET-Mate/exam-session-service/internal/grading"
	"github.com/CET-Mate/exam-session-service/internal/models"
	"github.com/CET-Mate/exam-session-service/internal/repositories"
	"github.com/CET-Mate/exam-session-service/internal/session"
	"github.com/CET-Mate/exam-session-service/internal/validator"
)

const answerFlushTimeout = 5 * time.Second

// liveSession pairs the in-memory engine with the grading state the
// service exposes while the attempt and its grading are in flight.
type liveSession struct {
	engine *session.Session
	record *models.ExamSession

	mu       sync.Mutex
	progress GradingProgress
	result   *models.ExamResult
}

func (l *liveSession) setProgress(state grading.PipelineState, message string, percent int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = GradingProgress{
		State:   state,
		Message: message,
		Percent: percent,
		Done:    state == grading.StateFinished && percent >= 100,
	}
}

func (l *liveSession) getProgress() GradingProgress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.progress
}

func (l *liveSession) setResult(r *models.ExamResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.result = r
}

func (l *liveSession) getResult() *models.ExamResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}

type sessionService struct {
	repo      repositories.Repository
	grader    grading.AIGrader
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger

	gradingCfg   config.GradingConfig
	bands        grading.BandTable
	tickInterval time.Duration
	onResult     ResultCallback

	mu   sync.RWMutex
	live map[string]*liveSession
}

// NewSessionService wires the session engine to its collaborators. The
// band table is validated here so a bad grade configuration fails at
// startup, not at the first submission.
func NewSessionService(
	repo repositories.Repository,
	grader grading.AIGrader,
	publisher events.EventPublisher,
	v *validator.Validator,
	gradingCfg config.GradingConfig,
	tickInterval time.Duration,
	onResult ResultCallback,
	logger *slog.Logger,
) (SessionService, error) {
	bands, err := grading.NewBandTable(gradingCfg.Bands)
	if err != nil {
		return nil, fmt.Errorf("invalid grade band table: %w", err)
	}

	return &sessionService{
		repo:         repo,
		grader:       grader,
		publisher:    publisher,
		validator:    v,
		logger:       logger,
		gradingCfg:   gradingCfg,
		bands:        bands,
		tickInterval: tickInterval,
		onResult:     onResult,
		live:         make(map[string]*liveSession),
	}, nil
}

// ===== LIFECYCLE =====

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest, studentID string) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	paper, err := s.repo.Paper().GetByID(ctx, req.PaperID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("failed to load paper: %w", err)
	}

	if err := s.checkActiveSession(ctx, studentID, req.PaperID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	engine, err := session.New(id, paper, studentID, s.flushFunc(id), s.tickInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to build session: %w", err)
	}

	now := time.Now()
	record := &models.ExamSession{
		ID:        id,
		PaperID:   paper.ID,
		StudentID: studentID,
		Status:    models.SessionInProgress,
		StartedAt: &now,
		Duration:  paper.Duration,
	}
	if err := s.repo.Session().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	live := &liveSession{
		engine:   engine,
		record:   record,
		progress: GradingProgress{State: grading.StateIdle},
	}
	engine.BindSubmit(func(reason string) {
		s.beginGrading(live, reason)
	})

	if err := engine.StartClock(paper.Duration); err != nil {
		return nil, fmt.Errorf("failed to start countdown: %w", err)
	}

	s.mu.Lock()
	s.live[id] = live
	s.mu.Unlock()

	s.logger.Info("Exam session started",
		"session_id", id,
		"paper_id", paper.ID,
		"student_id", studentID,
		"duration_sec", paper.Duration)

	return &SessionResponse{
		SessionID:      id,
		PaperID:        paper.ID,
		PaperTitle:     paper.Title,
		TotalQuestions: paper.TotalQuestions(),
		DurationSec:    paper.Duration,
		RemainingSec:   engine.Clock().Remaining(),
		Question:       s.buildView(engine, engine.Current()),
	}, nil
}

// checkActiveSession enforces one in-progress attempt per student and
// paper. A stale row with no live engine is left over from a process
// restart; it is closed out as abandoned and a fresh attempt is allowed.
func (s *sessionService) checkActiveSession(ctx context.Context, studentID string, paperID uint) error {
	active, err := s.repo.Session().GetActiveByStudent(ctx, studentID, paperID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to check active sessions: %w", err)
	}

	s.mu.RLock()
	_, isLive := s.live[active.ID]
	s.mu.RUnlock()
	if isLive {
		return ErrSessionConflict
	}

	reason := models.EndReasonAbandoned
	active.Status = models.SessionAbandoned
	active.EndReason = &reason
	if err := s.repo.Session().Update(ctx, active); err != nil {
		return fmt.Errorf("failed to close stale session: %w", err)
	}
	s.logger.Warn("Closed stale session from previous run", "session_id", active.ID, "student_id", studentID)
	return nil
}

// flushFunc hands each committed answer write to the answer repository.
// The write happens off the request path; a failed flush only costs the
// incremental copy, the full snapshot is re-saved at submission.
func (s *sessionService) flushFunc(sessionID string) session.FlushFunc {
	return func(questionIndex int, value string) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), answerFlushTimeout)
			defer cancel()
			if err := s.repo.Answer().SaveAnswer(ctx, sessionID, questionIndex, value); err != nil {
				s.logger.Error("Failed to flush answer",
					"session_id", sessionID,
					"question_index", questionIndex,
					"error", err)
			}
		}()
	}
}

func (s *sessionService) Submit(ctx context.Context, sessionID, reason string) error {
	live, err := s.getLive(sessionID)
	if err != nil {
		// Graded sessions leave the registry; a repeated submit on one is
		// still a safe no-op.
		record, rerr := s.repo.Session().GetByID(ctx, sessionID)
		if rerr != nil {
			if repositories.IsNotFoundError(rerr) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to load session: %w", rerr)
		}
		if record.Status == models.SessionSubmitted || record.Status == models.SessionGraded {
			s.logger.Info("Duplicate submit ignored", "session_id", sessionID, "reason", reason)
			return nil
		}
		return ErrSessionNotFound
	}

	if reason == "" {
		reason = models.EndReasonManual
	}
	if !live.engine.RequestSubmit(reason) {
		// Already submitted; repeated submits are a safe no-op.
		s.logger.Info("Duplicate submit ignored", "session_id", sessionID, "reason", reason)
	}
	return nil
}

// ===== GRADING =====

// beginGrading is the single submission entry point bound into the
// engine. It may run on the clock goroutine for a forced submit, so the
// heavy work moves to a background goroutine immediately.
func (s *sessionService) beginGrading(live *liveSession, reason string) {
	s.logger.Info("Session submitted",
		"session_id", live.record.ID,
		"reason", reason,
		"answered", live.engine.Sheet().AnsweredCount())
	go s.grade(live, reason)
}

func (s *sessionService) grade(live *liveSession, reason string) {
	ctx := context.Background()
	engine := live.engine
	record := live.record

	now := time.Now()
	record.Status = models.SessionSubmitted
	record.SubmittedAt = &now
	record.EndReason = &reason
	if err := s.repo.Session().Update(ctx, record); err != nil {
		s.logger.Error("Failed to mark session submitted", "session_id", record.ID, "error", err)
	}

	snapshot := engine.Sheet().Snapshot()
	if err := s.repo.Answer().SaveAnswers(ctx, record.ID, snapshot); err != nil {
		s.logger.Error("Failed to save final answers", "session_id", record.ID, "error", err)
	}

	if err := s.publisher.Publish(ctx, events.TypeSessionSubmitted, events.SessionSubmittedEvent{
		SessionID: record.ID,
		PaperID:   record.PaperID,
		StudentID: record.StudentID,
		EndReason: reason,
		Answered:  len(snapshot),
	}); err != nil {
		s.logger.Error("Failed to publish submitted event", "session_id", record.ID, "error", err)
	}

	// Objective grading is synchronous and completes before the
	// subjective pipeline starts.
	objective := grading.GradeObjective(engine.Paper(), engine.Sections(), snapshot)

	var pipeline *grading.Pipeline
	progress := grading.ProgressFunc(func(message string, percent int) {
		live.setProgress(pipeline.State(), message, percent)
	})
	pipeline = grading.NewPipeline(s.grader, grading.PipelineConfig{
		PhaseTimeout:             s.gradingCfg.PhaseTimeout,
		TranslationFallbackScore: s.gradingCfg.TranslationFallbackScore,
		WritingFallbackScore:     s.gradingCfg.WritingFallbackScore,
		NotAnsweredComment:       s.gradingCfg.NotAnsweredComment,
		FallbackComment:          s.gradingCfg.FallbackComment,
	}, s.logger, progress)

	translation, writing := pipeline.Run(ctx, s.buildPipelineInput(engine, snapshot))

	result, err := grading.Aggregate(record, objective, translation, writing,
		s.subjectiveDetails(engine, snapshot, translation, writing), s.bands)
	if err != nil {
		s.logger.Error("Failed to assemble result", "session_id", record.ID, "error", err)
		s.notifyResult(nil, fmt.Errorf("failed to assemble result: %w", err))
		return
	}
	live.setResult(result)

	persisted := true
	var saveErr error
	if err := s.repo.Result().Create(ctx, result); err != nil {
		// Grading finished but the write did not: the distinct failure
		// mode. The in-memory result stays readable and the caller owns
		// the retry policy.
		persisted = false
		saveErr = fmt.Errorf("%w: %v", ErrResultNotSaved, err)
		s.logger.Error("Failed to save result", "session_id", record.ID, "result_id", result.ID, "error", err)
	} else {
		record.Status = models.SessionGraded
		if err := s.repo.Session().Update(ctx, record); err != nil {
			s.logger.Error("Failed to mark session graded", "session_id", record.ID, "error", err)
		}
	}

	if err := s.publisher.Publish(ctx, events.TypeSessionGraded, events.SessionGradedEvent{
		SessionID:  record.ID,
		ResultID:   result.ID,
		TotalScore: result.TotalScore,
		Grade:      result.Grade,
		Persisted:  persisted,
	}); err != nil {
		s.logger.Error("Failed to publish graded event", "session_id", record.ID, "error", err)
	}

	// A persisted session is fully served by storage from here on; drop
	// the live entry so the registry does not grow with finished exams.
	// The graded-but-unsaved session stays live so its result remains
	// readable from memory.
	if persisted {
		s.mu.Lock()
		delete(s.live, record.ID)
		s.mu.Unlock()
	}

	s.logger.Info("Session graded",
		"session_id", record.ID,
		"total_score", result.TotalScore,
		"grade", result.Grade,
		"wrong_count", result.WrongCount,
		"persisted", persisted)

	s.notifyResult(result, saveErr)
}

func (s *sessionService) notifyResult(result *models.ExamResult, err error) {
	if s.onResult != nil {
		s.onResult(result, err)
	}
}

// buildPipelineInput pulls the two free-text answers and their reference
// material out of the paper. A paper without a translation or writing
// section yields empty input for that phase, which the pipeline treats
// as not answered.
func (s *sessionService) buildPipelineInput(engine *session.Session, answers map[int]string) grading.PipelineInput {
	var in grading.PipelineInput
	if sec, ok := engine.Sections().ByType(models.SectionTranslation); ok {
		q := engine.Paper().Questions[sec.Start]
		in.TranslationAnswer = answers[sec.Start]
		in.ReferenceText = q.ReferenceText
	}
	if sec, ok := engine.Sections().ByType(models.SectionWriting); ok {
		q := engine.Paper().Questions[sec.Start]
		in.WritingAnswer = answers[sec.Start]
		in.TopicText = q.TopicText
	}
	return in
}

// subjectiveDetails builds the audit rows for the free-text questions.
// The AI score is the only correctness signal for these, so the boolean
// stays false and the phase comment goes into the explanation column.
func (s *sessionService) subjectiveDetails(engine *session.Session, answers map[int]string, translation, writing grading.PhaseResult) []models.QuestionDetail {
	var details []models.QuestionDetail
	appendDetail := func(sectionType models.SectionType, phase grading.PhaseResult) {
		sec, ok := engine.Sections().ByType(sectionType)
		if !ok {
			return
		}
		q := engine.Paper().Questions[sec.Start]
		details = append(details, models.QuestionDetail{
			Index:       q.Index,
			Type:        q.Type,
			UserAnswer:  answers[sec.Start],
			IsCorrect:   false,
			Explanation: phase.Comment,
		})
	}
	appendDetail(models.SectionTranslation, translation)
	appendDetail(models.SectionWriting, writing)
	return details
}

// ===== NAVIGATION =====

func (s *sessionService) MoveTo(ctx context.Context, sessionID string, index int) (*NavigationResponse, error) {
	live, err := s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	q, err := live.engine.MoveTo(index)
	if err != nil {
		return nil, err
	}
	return s.navResponse(live.engine, q, false), nil
}

func (s *sessionService) Next(ctx context.Context, sessionID string) (*NavigationResponse, error) {
	live, err := s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	q, submitted, err := live.engine.Next()
	if err != nil {
		return nil, err
	}
	if submitted {
		return &NavigationResponse{Submitted: true}, nil
	}
	return s.navResponse(live.engine, q, false), nil
}

func (s *sessionService) Previous(ctx context.Context, sessionID string) (*NavigationResponse, error) {
	live, err := s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	q, err := live.engine.Previous()
	if err != nil {
		return nil, err
	}
	return s.navResponse(live.engine, q, false), nil
}

func (s *sessionService) JumpToSection(ctx context.Context, sessionID string, sectionType models.SectionType) (*NavigationResponse, error) {
	live, err := s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	q, err := live.engine.JumpToSection(sectionType)
	if err != nil {
		return nil, err
	}
	return s.navResponse(live.engine, q, false), nil
}

// ===== ANSWER CAPTURE =====

func (s *sessionService) RecordChoice(ctx context.Context, sessionID string, req *RecordChoiceRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	live, err := s.getActive(ctx, sessionID)
	if err != nil {
		return err
	}
	return live.engine.RecordChoice(req.QuestionIndex, session.OptionIndex(req.OptionIndex))
}

func (s *sessionService) RecordText(ctx context.Context, sessionID string, req *RecordTextRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	live, err := s.getActive(ctx, sessionID)
	if err != nil {
		return err
	}
	if req.Staged {
		return live.engine.StageText(req.QuestionIndex, req.Text)
	}
	return live.engine.RecordText(req.QuestionIndex, req.Text)
}

// ===== TIME =====

func (s *sessionService) TimeRemaining(ctx context.Context, sessionID string) (int, error) {
	live, err := s.getLive(sessionID)
	if err != nil {
		return 0, err
	}
	return live.engine.Clock().Remaining(), nil
}

// ===== GRADING OUTPUT =====

func (s *sessionService) Progress(ctx context.Context, sessionID string) (*GradingProgress, error) {
	live, err := s.getLive(sessionID)
	if err == nil {
		p := live.getProgress()
		return &p, nil
	}

	// Not live: a graded session from an earlier run still reports done.
	if _, rerr := s.repo.Result().GetBySession(ctx, sessionID); rerr == nil {
		return &GradingProgress{State: grading.StateFinished, Message: "done", Percent: 100, Done: true}, nil
	}
	return nil, err
}

func (s *sessionService) Result(ctx context.Context, sessionID string) (*models.ExamResult, error) {
	s.mu.RLock()
	live, isLive := s.live[sessionID]
	s.mu.RUnlock()
	if isLive {
		if r := live.getResult(); r != nil {
			return r, nil
		}
	}

	result, err := s.repo.Result().GetBySession(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	return result, nil
}

func (s *sessionService) ExportResult(ctx context.Context, sessionID string) ([]byte, error) {
	result, err := s.Result(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return export.ResultWorkbook(result)
}

// ===== HELPERS =====

func (s *sessionService) getLive(sessionID string) (*liveSession, error) {
	s.mu.RLock()
	live, ok := s.live[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return live, nil
}

func (s *sessionService) getActive(ctx context.Context, sessionID string) (*liveSession, error) {
	live, err := s.getLive(sessionID)
	if err != nil {
		// The session may have finished and been evicted; a stored row in
		// any terminal state still answers "not active" rather than
		// "not found".
		record, rerr := s.repo.Session().GetByID(ctx, sessionID)
		if rerr == nil && record.Status != models.SessionInProgress {
			return nil, ErrSessionNotActive
		}
		return nil, ErrSessionNotFound
	}
	if live.engine.Submitted() {
		return nil, ErrSessionNotActive
	}
	return live, nil
}

func (s *sessionService) navResponse(engine *session.Session, q *models.Question, submitted bool) *NavigationResponse {
	return &NavigationResponse{
		Question:     s.buildView(engine, q),
		Submitted:    submitted,
		RemainingSec: engine.Clock().Remaining(),
	}
}

func (s *sessionService) buildView(engine *session.Session, q *models.Question) *QuestionView {
	sec, _ := engine.Sections().ByIndex(q.Index)
	answer, answered := engine.Sheet().Value(q.Index)

	return &QuestionView{
		Index:           q.Index,
		Type:            q.Type,
		Text:            q.Text,
		Options:         q.Options,
		SectionLabel:    sec.Label,
		NumberInSection: q.Index - sec.Start + 1,
		SectionTotal:    sec.Len(),
		IsFirst:         q.Index == 0,
		IsLast:          q.Index == engine.Paper().TotalQuestions()-1,
		Answered:        answered,
		CurrentAnswer:   answer,
	}
}
