package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/CET-Mate/exam-session-service/internal/config"
	"github.com/CET-Mate/exam-session-service/internal/events"
	"github.com/CET-Mate/exam-session-service/internal/grading"
	"github.com/CET-Mate/exam-session-service/internal/models"
	"github.com/CET-Mate/exam-session-service/internal/repositories"
	"github.com/CET-Mate/exam-session-service/internal/validator"
)

// ===== MOCKS =====

// mockStore is the shared in-memory state behind the mock repositories.
type mockStore struct {
	mu        sync.Mutex
	paper     *models.ExamPaper
	sessions  map[string]*models.ExamSession
	answers   map[string]map[int]string
	results   map[string]*models.ExamResult
	resultErr error
}

// mockRepository implements repositories.Repository over a mockStore.
type mockRepository struct {
	*mockStore
}

func newMockRepository(paper *models.ExamPaper) *mockRepository {
	return &mockRepository{mockStore: &mockStore{
		paper:    paper,
		sessions: make(map[string]*models.ExamSession),
		answers:  make(map[string]map[int]string),
		results:  make(map[string]*models.ExamResult),
	}}
}

func (m *mockRepository) Paper() repositories.PaperRepository {
	return &mockPaperRepo{m.mockStore}
}
func (m *mockRepository) Session() repositories.SessionRepository {
	return &mockSessionRepo{m.mockStore}
}
func (m *mockRepository) Answer() repositories.AnswerRepository {
	return &mockAnswerRepo{m.mockStore}
}
func (m *mockRepository) Result() repositories.ResultRepository {
	return &mockResultRepo{m.mockStore}
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

type mockPaperRepo struct{ *mockStore }

func (m *mockPaperRepo) GetByID(ctx context.Context, id uint) (*models.ExamPaper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paper == nil || m.paper.ID != id {
		return nil, repositories.ErrNotFound
	}
	return m.paper, nil
}

func (m *mockPaperRepo) List(ctx context.Context, limit, offset int) ([]*models.ExamPaper, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paper == nil {
		return nil, 0, nil
	}
	return []*models.ExamPaper{m.paper}, 1, nil
}

type mockSessionRepo struct{ *mockStore }

func (m *mockSessionRepo) Create(ctx context.Context, session *models.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id string) (*models.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionRepo) GetActiveByStudent(ctx context.Context, studentID string, paperID uint) (*models.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.StudentID == studentID && s.PaperID == paperID && s.Status == models.SessionInProgress {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *mockSessionRepo) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	return nil, 0, nil
}

type mockAnswerRepo struct{ *mockStore }

func (m *mockAnswerRepo) SaveAnswer(ctx context.Context, sessionID string, questionIndex int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.answers[sessionID] == nil {
		m.answers[sessionID] = make(map[int]string)
	}
	if value == "" {
		delete(m.answers[sessionID], questionIndex)
		return nil
	}
	m.answers[sessionID][questionIndex] = value
	return nil
}

func (m *mockAnswerRepo) SaveAnswers(ctx context.Context, sessionID string, answers map[int]string) error {
	for index, value := range answers {
		if err := m.SaveAnswer(ctx, sessionID, index, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockAnswerRepo) GetBySession(ctx context.Context, sessionID string) ([]*models.SessionAnswer, error) {
	return nil, nil
}

type mockResultRepo struct{ *mockStore }

func (m *mockResultRepo) Create(ctx context.Context, result *models.ExamResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resultErr != nil {
		return m.resultErr
	}
	m.results[result.SessionID] = result
	return nil
}

func (m *mockResultRepo) GetBySession(ctx context.Context, sessionID string) (*models.ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.results[sessionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return result, nil
}

func (m *mockResultRepo) List(ctx context.Context, filters repositories.ResultFilters) ([]*models.ExamResult, int64, error) {
	return nil, 0, nil
}

func (m *mockRepository) seedSession(s *models.ExamSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	m.sessions[s.ID] = &copied
}

func (m *mockRepository) setResultErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resultErr = err
}

func (m *mockRepository) sessionStatus(id string) models.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s.Status
	}
	return ""
}

func (m *mockRepository) savedAnswer(sessionID string, index int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answers[sessionID][index]
}

// scriptedGrader returns fixed scores for both subjective phases.
type scriptedGrader struct {
	translation grading.GradeScore
	writing     grading.GradeScore
	err         error
}

func (g *scriptedGrader) GradeTranslation(ctx context.Context, answerText, referenceText string) (grading.GradeScore, error) {
	return g.translation, g.err
}

func (g *scriptedGrader) GradeWriting(ctx context.Context, answerText, topicText string) (grading.GradeScore, error) {
	return g.writing, g.err
}

// ===== FIXTURES =====

func servicesTestPaper() *models.ExamPaper {
	abcd := []string{"a", "b", "c", "d"}
	return &models.ExamPaper{
		ID:    1,
		Title: "CET-4 Mock Paper",
		Questions: []models.Question{
			{Index: 0, Type: models.ClozeChoice, Options: abcd, CorrectOption: 0},
			{Index: 1, Type: models.ClozeChoice, Options: abcd, CorrectOption: 1},
			{Index: 2, Type: models.ReadingChoice, Options: abcd, CorrectOption: 2},
			{Index: 3, Type: models.ReadingChoice, Options: abcd, CorrectOption: 3},
			{Index: 4, Type: models.NewTypeChoice, Options: abcd, CorrectOption: 0},
			{Index: 5, Type: models.Translation, CorrectOption: models.NoCorrectOption, ReferenceText: "原文"},
			{Index: 6, Type: models.Writing, CorrectOption: models.NoCorrectOption, TopicText: "My Campus"},
		},
		Sections: []models.Section{
			{Type: models.SectionCloze, Label: "Cloze", QuestionType: models.ClozeChoice, Start: 0, End: 2, PointsPerItem: 0.5},
			{Type: models.SectionReading, Label: "Reading", QuestionType: models.ReadingChoice, Start: 2, End: 4, PointsPerItem: 1},
			{Type: models.SectionNewType, Label: "New Type", QuestionType: models.NewTypeChoice, Start: 4, End: 5, PointsPerItem: 3},
			{Type: models.SectionTranslation, Label: "Translation", QuestionType: models.Translation, Start: 5, End: 6, MaxPoints: 15},
			{Type: models.SectionWriting, Label: "Writing", QuestionType: models.Writing, Start: 6, End: 7, MaxPoints: 15},
		},
		Duration: 3600,
	}
}

func testGradingConfig() config.GradingConfig {
	return config.GradingConfig{
		PhaseTimeout:             time.Second,
		TranslationFallbackScore: 8,
		WritingFallbackScore:     8,
		TranslationMaxScore:      15,
		WritingMaxScore:          15,
		NotAnsweredComment:       "未作答",
		FallbackComment:          "自动评分失败，已按默认分计入",
		Bands: []grading.GradeBand{
			{Name: "excellent", Min: 85},
			{Name: "good", Min: 70},
			{Name: "pass", Min: 60},
			{Name: "fail", Min: 0},
		},
	}
}

type serviceFixture struct {
	service   SessionService
	repo      *mockRepository
	publisher *events.MockEventPublisher
	results   chan resultNotification
}

type resultNotification struct {
	result *models.ExamResult
	err    error
}

func newServiceFixture(t *testing.T, grader grading.AIGrader) *serviceFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := newMockRepository(servicesTestPaper())
	publisher := events.NewMockEventPublisher(logger)
	results := make(chan resultNotification, 4)

	service, err := NewSessionService(
		repo, grader, publisher, validator.New(),
		testGradingConfig(), time.Hour,
		func(result *models.ExamResult, err error) {
			results <- resultNotification{result: result, err: err}
		},
		logger,
	)
	if err != nil {
		t.Fatalf("NewSessionService: %v", err)
	}
	return &serviceFixture{service: service, repo: repo, publisher: publisher, results: results}
}

func (f *serviceFixture) waitForResult(t *testing.T) resultNotification {
	t.Helper()
	select {
	case n := <-f.results:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for grading to finish")
		return resultNotification{}
	}
}

// ===== TESTS =====

func TestSessionService_Start(t *testing.T) {
	f := newServiceFixture(t, &scriptedGrader{})
	ctx := context.Background()

	resp, err := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if resp.SessionID == "" {
		t.Error("expected a session ID")
	}
	if resp.TotalQuestions != 7 || resp.DurationSec != 3600 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Question == nil || resp.Question.Index != 0 || !resp.Question.IsFirst {
		t.Errorf("session must open on the first question, got %+v", resp.Question)
	}
	if resp.Question.SectionLabel != "Cloze" || resp.Question.NumberInSection != 1 {
		t.Errorf("section labeling wrong: %+v", resp.Question)
	}
	if got := f.repo.sessionStatus(resp.SessionID); got != models.SessionInProgress {
		t.Errorf("stored status = %s", got)
	}
}

func TestSessionService_Start_PaperNotFound(t *testing.T) {
	f := newServiceFixture(t, &scriptedGrader{})

	_, err := f.service.Start(context.Background(), &StartSessionRequest{PaperID: 99}, "student-1")
	if !errors.Is(err, ErrPaperNotFound) {
		t.Errorf("expected ErrPaperNotFound, got %v", err)
	}
}

func TestSessionService_Start_Conflict(t *testing.T) {
	f := newServiceFixture(t, &scriptedGrader{})
	ctx := context.Background()

	if _, err := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1"); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1"); !errors.Is(err, ErrSessionConflict) {
		t.Errorf("expected ErrSessionConflict, got %v", err)
	}
}

func TestSessionService_Start_ClosesStaleSession(t *testing.T) {
	f := newServiceFixture(t, &scriptedGrader{})
	ctx := context.Background()

	// Leftover row from a previous process with no live engine.
	stale := &models.ExamSession{
		ID:        "stale-1",
		PaperID:   1,
		StudentID: "student-1",
		Status:    models.SessionInProgress,
	}
	f.repo.seedSession(stale)

	resp, err := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start over stale session: %v", err)
	}
	if resp.SessionID == "stale-1" {
		t.Error("expected a fresh session ID")
	}
	if got := f.repo.sessionStatus("stale-1"); got != models.SessionAbandoned {
		t.Errorf("stale session status = %s, want abandoned", got)
	}
}

func TestSessionService_FullFlow(t *testing.T) {
	grader := &scriptedGrader{
		translation: grading.GradeScore{Score: 12, Comment: "译文流畅"},
		writing:     grading.GradeScore{Score: 10, Comment: "结构清晰"},
	}
	f := newServiceFixture(t, grader)
	ctx := context.Background()

	resp, err := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := resp.SessionID

	// Objective answers: 0, 2, 4 correct; 1 wrong; 3 unanswered.
	answers := []RecordChoiceRequest{
		{QuestionIndex: 0, OptionIndex: 0},
		{QuestionIndex: 1, OptionIndex: 2},
		{QuestionIndex: 2, OptionIndex: 2},
		{QuestionIndex: 4, OptionIndex: 0},
	}
	for _, req := range answers {
		if err := f.service.RecordChoice(ctx, id, &req); err != nil {
			t.Fatalf("RecordChoice(%d): %v", req.QuestionIndex, err)
		}
	}

	// Committed translation, staged writing draft.
	if err := f.service.RecordText(ctx, id, &RecordTextRequest{QuestionIndex: 5, Text: "我的翻译"}); err != nil {
		t.Fatalf("RecordText: %v", err)
	}
	if err := f.service.RecordText(ctx, id, &RecordTextRequest{QuestionIndex: 6, Text: "essay draft", Staged: true}); err != nil {
		t.Fatalf("RecordText staged: %v", err)
	}

	nav, err := f.service.Next(ctx, id)
	if err != nil || nav.Question == nil || nav.Question.Index != 1 {
		t.Fatalf("Next: nav=%+v err=%v", nav, err)
	}

	if err := f.service.Submit(ctx, id, models.EndReasonManual); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	notification := f.waitForResult(t)
	if notification.err != nil {
		t.Fatalf("grading failed: %v", notification.err)
	}
	result := notification.result

	// Objective 4.5 + translation 12 + writing 10.
	if result.TotalScore != 26.5 {
		t.Errorf("total = %v, want 26.5", result.TotalScore)
	}
	if result.Grade != "fail" {
		t.Errorf("grade = %q", result.Grade)
	}
	if result.TranslationScore != 12 || result.WritingScore != 10 {
		t.Errorf("subjective scores %v / %v", result.TranslationScore, result.WritingScore)
	}

	// The staged essay draft was captured by the submit path.
	if got := f.repo.savedAnswer(id, 6); got != "essay draft" {
		t.Errorf("staged draft not persisted, got %q", got)
	}

	if got := f.repo.sessionStatus(id); got != models.SessionGraded {
		t.Errorf("session status = %s, want graded", got)
	}

	// One submitted event and one graded event, in order.
	published := f.publisher.GetPublishedEvents()
	if len(published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(published))
	}
	if published[0].Type != events.TypeSessionSubmitted || published[1].Type != events.TypeSessionGraded {
		t.Errorf("event order wrong: %s, %s", published[0].Type, published[1].Type)
	}
	graded, ok := published[1].Data.(events.SessionGradedEvent)
	if !ok || !graded.Persisted || graded.TotalScore != 26.5 {
		t.Errorf("graded event payload wrong: %+v", published[1].Data)
	}

	// Progress reports done, Result serves the stored row.
	progress, err := f.service.Progress(ctx, id)
	if err != nil || !progress.Done || progress.Percent != 100 {
		t.Errorf("progress = %+v err=%v", progress, err)
	}
	got, err := f.service.Result(ctx, id)
	if err != nil || got.TotalScore != 26.5 {
		t.Errorf("Result = %+v err=%v", got, err)
	}
}

func TestSessionService_GradedSessionLeavesRegistry(t *testing.T) {
	grader := &scriptedGrader{
		translation: grading.GradeScore{Score: 12, Comment: "译文流畅"},
		writing:     grading.GradeScore{Score: 10, Comment: "结构清晰"},
	}
	f := newServiceFixture(t, grader)
	ctx := context.Background()

	resp, err := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.service.Submit(ctx, resp.SessionID, models.EndReasonManual); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	f.waitForResult(t)

	// The persisted session must not be held in memory for the life of
	// the process.
	svc := f.service.(*sessionService)
	svc.mu.RLock()
	_, held := svc.live[resp.SessionID]
	liveCount := len(svc.live)
	svc.mu.RUnlock()
	if held || liveCount != 0 {
		t.Errorf("graded session still held in registry (len=%d)", liveCount)
	}

	// Result and progress are still served from storage.
	result, err := f.service.Result(ctx, resp.SessionID)
	if err != nil || result == nil {
		t.Errorf("Result after eviction: %+v err=%v", result, err)
	}
	progress, err := f.service.Progress(ctx, resp.SessionID)
	if err != nil || !progress.Done || progress.Percent != 100 {
		t.Errorf("Progress after eviction: %+v err=%v", progress, err)
	}

	// Navigation on the finished session still reports not-active.
	if _, err := f.service.Next(ctx, resp.SessionID); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("expected ErrSessionNotActive after eviction, got %v", err)
	}
}

func TestSessionService_Submit_Idempotent(t *testing.T) {
	f := newServiceFixture(t, &scriptedGrader{})
	ctx := context.Background()

	resp, err := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := f.service.Submit(ctx, resp.SessionID, models.EndReasonManual); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	f.waitForResult(t)

	// Repeated submits are safe no-ops and grade nothing twice.
	if err := f.service.Submit(ctx, resp.SessionID, models.EndReasonTimeout); err != nil {
		t.Fatalf("repeated Submit: %v", err)
	}
	select {
	case <-f.results:
		t.Fatal("second submit must not grade again")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSessionService_NavigationAfterSubmit(t *testing.T) {
	f := newServiceFixture(t, &scriptedGrader{})
	ctx := context.Background()

	resp, _ := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1")
	f.service.Submit(ctx, resp.SessionID, models.EndReasonManual)
	f.waitForResult(t)

	if _, err := f.service.Next(ctx, resp.SessionID); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("expected ErrSessionNotActive, got %v", err)
	}
	if err := f.service.RecordChoice(ctx, resp.SessionID, &RecordChoiceRequest{QuestionIndex: 0, OptionIndex: 0}); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("expected ErrSessionNotActive, got %v", err)
	}
}

func TestSessionService_UnknownSession(t *testing.T) {
	f := newServiceFixture(t, &scriptedGrader{})
	ctx := context.Background()

	if _, err := f.service.Next(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := f.service.TimeRemaining(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionService_ResultNotSaved(t *testing.T) {
	f := newServiceFixture(t, &scriptedGrader{})
	f.repo.setResultErr(errors.New("disk full"))
	ctx := context.Background()

	resp, err := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.service.Submit(ctx, resp.SessionID, models.EndReasonManual); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	notification := f.waitForResult(t)
	if !errors.Is(notification.err, ErrResultNotSaved) {
		t.Fatalf("expected ErrResultNotSaved, got %v", notification.err)
	}
	if notification.result == nil {
		t.Fatal("the in-memory result must still be delivered")
	}

	// The graded event still goes out, flagged unpersisted.
	published := f.publisher.GetPublishedEvents()
	if len(published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(published))
	}
	graded, ok := published[1].Data.(events.SessionGradedEvent)
	if !ok || graded.Persisted {
		t.Errorf("graded event must be flagged unpersisted: %+v", published[1].Data)
	}

	// The result stays readable from memory: the unsaved session keeps
	// its registry entry.
	svc := f.service.(*sessionService)
	svc.mu.RLock()
	_, held := svc.live[resp.SessionID]
	svc.mu.RUnlock()
	if !held {
		t.Error("unsaved result must keep the session in the live registry")
	}
	got, err := f.service.Result(ctx, resp.SessionID)
	if err != nil || got == nil {
		t.Errorf("Result = %v err=%v", got, err)
	}
}

func TestSessionService_TimeRemaining(t *testing.T) {
	f := newServiceFixture(t, &scriptedGrader{})
	ctx := context.Background()

	resp, err := f.service.Start(ctx, &StartSessionRequest{PaperID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	remaining, err := f.service.TimeRemaining(ctx, resp.SessionID)
	if err != nil {
		t.Fatalf("TimeRemaining: %v", err)
	}
	if remaining != 3600 {
		t.Errorf("remaining = %d, want 3600", remaining)
	}
}
