package grading

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Pipeline states, strictly forward-moving.
type PipelineState string

const (
	StateIdle               PipelineState = "idle"
	StateGradingTranslation PipelineState = "grading_translation"
	StateGradingWriting     PipelineState = "grading_writing"
	StateFinished           PipelineState = "finished"
)

// PhaseOutcome is the terminal outcome of one subjective phase. Exactly
// one outcome is recorded per phase; the pipeline never finishes with an
// unset score.
type PhaseOutcome string

const (
	OutcomeSuccess  PhaseOutcome = "success"
	OutcomeEmpty    PhaseOutcome = "empty"
	OutcomeFallback PhaseOutcome = "fallback"
)

// PhaseResult is the typed per-phase result.
type PhaseResult struct {
	Score      float64
	Comment    string
	Outcome    PhaseOutcome
	FinishedAt time.Time
}

// GradeScore is what the AI collaborator returns for one answer.
type GradeScore struct {
	Score   float64
	Comment string
}

// AIGrader is the external grading collaborator. Implementations must
// treat each call as single-shot; the pipeline never sends empty answers.
type AIGrader interface {
	GradeTranslation(ctx context.Context, answerText, referenceText string) (GradeScore, error)
	GradeWriting(ctx context.Context, answerText, topicText string) (GradeScore, error)
}

// ProgressReporter receives pipeline progress at phase entry and
// completion. Percentages are monotonically non-decreasing checkpoints.
type ProgressReporter interface {
	OnProgress(message string, percent int)
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(message string, percent int)

func (f ProgressFunc) OnProgress(message string, percent int) { f(message, percent) }

// PipelineConfig holds the fallback policy and the per-phase latency
// bound.
type PipelineConfig struct {
	PhaseTimeout             time.Duration
	TranslationFallbackScore float64
	WritingFallbackScore     float64
	NotAnsweredComment       string
	FallbackComment          string
}

// PipelineInput carries the two free-text answers and their reference
// material into a run.
type PipelineInput struct {
	TranslationAnswer string
	ReferenceText     string
	WritingAnswer     string
	TopicText         string
}

// Pipeline drives the two-phase subjective grading chain: translation
// first, then writing. A phase failure degrades to the fallback score and
// the chain still moves forward; the overall submission never stalls on
// the grading service.
type Pipeline struct {
	grader   AIGrader
	cfg      PipelineConfig
	logger   *slog.Logger
	progress ProgressReporter

	mu    sync.Mutex
	state PipelineState
}

// NewPipeline creates an idle pipeline. progress may be nil.
func NewPipeline(grader AIGrader, cfg PipelineConfig, logger *slog.Logger, progress ProgressReporter) *Pipeline {
	if cfg.PhaseTimeout <= 0 {
		cfg.PhaseTimeout = 30 * time.Second
	}
	return &Pipeline{
		grader:   grader,
		cfg:      cfg,
		logger:   logger,
		progress: progress,
		state:    StateIdle,
	}
}

// State returns the current pipeline state.
func (p *Pipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s PipelineState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) report(message string, percent int) {
	if p.progress != nil {
		p.progress.OnProgress(message, percent)
	}
}

// Run executes both phases in order and always reaches StateFinished with
// both results set. Writing grading never starts before translation has
// reached a terminal outcome.
func (p *Pipeline) Run(ctx context.Context, in PipelineInput) (translation, writing PhaseResult) {
	p.setState(StateGradingTranslation)
	p.report("grading translation", 10)
	translation = p.runPhase(ctx, "translation", in.TranslationAnswer, p.cfg.TranslationFallbackScore,
		func(phaseCtx context.Context) (GradeScore, error) {
			return p.grader.GradeTranslation(phaseCtx, in.TranslationAnswer, in.ReferenceText)
		})
	p.report("grading translation", 50)

	p.setState(StateGradingWriting)
	p.report("grading writing", 60)
	writing = p.runPhase(ctx, "writing", in.WritingAnswer, p.cfg.WritingFallbackScore,
		func(phaseCtx context.Context) (GradeScore, error) {
			return p.grader.GradeWriting(phaseCtx, in.WritingAnswer, in.TopicText)
		})
	p.report("grading writing", 90)

	p.setState(StateFinished)
	p.report("done", 100)
	return translation, writing
}

// runPhase resolves one phase to its single terminal outcome. Empty
// answers short-circuit without touching the network; any grading error
// degrades to the fixed fallback score.
func (p *Pipeline) runPhase(ctx context.Context, phase, answer string, fallbackScore float64, call func(context.Context) (GradeScore, error)) PhaseResult {
	if strings.TrimSpace(answer) == "" {
		p.logger.Info("Subjective phase skipped, no answer", "phase", phase)
		return PhaseResult{
			Score:      0,
			Comment:    p.cfg.NotAnsweredComment,
			Outcome:    OutcomeEmpty,
			FinishedAt: time.Now(),
		}
	}

	phaseCtx, cancel := context.WithTimeout(ctx, p.cfg.PhaseTimeout)
	defer cancel()

	result, err := call(phaseCtx)
	if err != nil {
		p.logger.Warn("Subjective grading failed, applying fallback score",
			"phase", phase,
			"fallback_score", fallbackScore,
			"error", err)
		return PhaseResult{
			Score:      fallbackScore,
			Comment:    p.cfg.FallbackComment,
			Outcome:    OutcomeFallback,
			FinishedAt: time.Now(),
		}
	}

	p.logger.Info("Subjective phase graded", "phase", phase, "score", result.Score)
	return PhaseResult{
		Score:      result.Score,
		Comment:    result.Comment,
		Outcome:    OutcomeSuccess,
		FinishedAt: time.Now(),
	}
}
