// Package analysis sequences gateway and sandbox calls into the
// hypothesis-generation, hypothesis-testing and synthesis workflows,
// streaming partial output to the caller as it arrives.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
	"github.com/prudhvi1709/hypoforge/internal/model/hypothesis"
	"github.com/prudhvi1709/hypoforge/internal/service/llm"
	"github.com/prudhvi1709/hypoforge/internal/service/sandbox"
	"github.com/prudhvi1709/hypoforge/internal/service/session"
)

// Stage identifies where a per-hypothesis test currently is. Stages advance
// strictly in order; any failure moves to StageFailed.
type Stage string

const (
	StageAnalysisPending  Stage = "analysis_pending"
	StageAnalysisComplete Stage = "analysis_complete"
	StageExecuting        Stage = "executing"
	StageExecuted         Stage = "executed"
	StageSummaryPending   Stage = "summary_pending"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// Event is one frame of an orchestration stream. Content always carries the
// complete-so-far text of the stage being streamed, never a bare delta.
type Event struct {
	Event       string                  `json:"event"`
	Stage       Stage                   `json:"stage,omitempty"`
	FailedStage Stage                   `json:"failed_stage,omitempty"`
	Content     string                  `json:"content,omitempty"`
	Hypotheses  []hypothesis.Hypothesis `json:"hypotheses,omitempty"`
	Success     *bool                   `json:"success,omitempty"`
	PValue      *float64                `json:"p_value,omitempty"`
	Outcome     *hypothesis.Outcome     `json:"outcome,omitempty"`
	Error       string                  `json:"error,omitempty"`
	Status      int                     `json:"status,omitempty"`
	Body        string                  `json:"body,omitempty"`
	Finished    bool                    `json:"finished,omitempty"`
}

// EmitFunc receives stream events. Implementations must be safe to call from
// the orchestrating goroutine only.
type EmitFunc func(Event)

// Service wires the session store, the sandbox runner and the completion
// gateway together.
type Service struct {
	store  *session.Store
	runner *sandbox.Runner
	client *llm.Client
	logger *zap.Logger
}

// NewService builds the orchestrator. client may be nil when the completion
// service is not configured; gateway-backed workflows then report
// unavailability while direct execution keeps working.
func NewService(store *session.Store, runner *sandbox.Runner, client *llm.Client, logger *zap.Logger) *Service {
	return &Service{store: store, runner: runner, client: client, logger: logger}
}

func (s *Service) requireGateway() error {
	if s.client == nil {
		return apperr.New(apperr.KindConfig, "completion service not configured")
	}
	return nil
}

// GenerateHypotheses streams a structured-schema completion for the session's
// dataset description. Partial JSON is generally unparsable mid-stream, so
// only the final accumulated content is parsed into hypotheses.
func (s *Service) GenerateHypotheses(ctx context.Context, sessionID string, emit EmitFunc) error {
	if err := s.requireGateway(); err != nil {
		return s.fail(emit, "", err)
	}
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return s.fail(emit, "", err)
	}

	final, err := s.client.Stream(ctx, llm.Request{
		System: generationPrompt,
		User:   sess.Description,
		Schema: true,
	}, func(total string) {
		emit(Event{Event: "delta", Content: total})
	})
	if err != nil {
		return s.fail(emit, "", err)
	}

	var parsed struct {
		Hypotheses []hypothesis.Hypothesis `json:"hypotheses"`
	}
	if err := sonic.ConfigStd.Unmarshal([]byte(final), &parsed); err != nil {
		return s.fail(emit, "", apperr.Wrap(apperr.KindUpstream, err, "completion service returned unparsable hypotheses"))
	}

	emit(Event{Event: "hypotheses", Hypotheses: parsed.Hypotheses, Finished: true})
	s.logger.Info("hypotheses generated",
		zap.String("session_id", sessionID),
		zap.Int("count", len(parsed.Hypotheses)))
	return nil
}

// TestHypothesis runs the full staged test for one hypothesis: generate
// analysis code, execute it, then summarize the outcome.
func (s *Service) TestHypothesis(ctx context.Context, sessionID string, hyp hypothesis.Hypothesis, emit EmitFunc) error {
	if err := s.requireGateway(); err != nil {
		return s.fail(emit, "", err)
	}
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return s.fail(emit, "", err)
	}
	ds, err := s.store.Load(sessionID)
	if err != nil {
		return s.fail(emit, "", err)
	}

	emit(Event{Event: "stage", Stage: StageAnalysisPending})
	analysisText, err := s.client.Stream(ctx, llm.Request{
		System: analysisPrompt,
		User:   fmt.Sprintf("Hypothesis: %s\n\n%s", hyp.Title, sess.Description),
	}, func(total string) {
		emit(Event{Event: "delta", Stage: StageAnalysisPending, Content: total})
	})
	if err != nil {
		return s.fail(emit, StageAnalysisPending, err)
	}
	emit(Event{Event: "stage", Stage: StageAnalysisComplete})

	code := sandbox.ExtractCode(analysisText)

	emit(Event{Event: "stage", Stage: StageExecuting})
	success, pValue, err := s.runner.Run(ctx, code, ds)
	if err != nil {
		return s.fail(emit, StageExecuting, err)
	}
	emit(Event{Event: "stage", Stage: StageExecuted, Success: &success, PValue: &pValue})

	emit(Event{Event: "stage", Stage: StageSummaryPending})
	summary, err := s.client.Stream(ctx, llm.Request{
		System: summaryPrompt,
		User: fmt.Sprintf("Hypothesis: %s\n\n%s\n\nResult: %t. p-value: %.6f",
			hyp.Title, sess.Description, success, pValue),
	}, func(total string) {
		emit(Event{Event: "delta", Stage: StageSummaryPending, Content: total})
	})
	if err != nil {
		return s.fail(emit, StageSummaryPending, err)
	}

	emit(Event{
		Event: "result",
		Stage: StageDone,
		Outcome: &hypothesis.Outcome{
			Success:  success,
			PValue:   pValue,
			Analysis: analysisText,
			Summary:  summary,
		},
		Finished: true,
	})
	s.logger.Info("hypothesis tested",
		zap.String("session_id", sessionID),
		zap.Bool("success", success),
		zap.Float64("p_value", pValue))
	return nil
}

// ExecuteDirect runs caller-supplied analysis text against a session's
// dataset without involving the gateway.
func (s *Service) ExecuteDirect(ctx context.Context, sessionID, analysisCode string) (bool, float64, error) {
	ds, err := s.store.Load(sessionID)
	if err != nil {
		return false, 0, err
	}
	return s.runner.Run(ctx, sandbox.ExtractCode(analysisCode), ds)
}

// Synthesize streams a synthesis document over the tested hypotheses the
// caller submitted. Records without an outcome are filtered out.
func (s *Service) Synthesize(ctx context.Context, records []hypothesis.Record, emit EmitFunc) error {
	if err := s.requireGateway(); err != nil {
		return s.fail(emit, "", err)
	}
	var blocks []string
	for _, rec := range records {
		if rec.Outcome == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Hypothesis: %s\nBenefit: %s\nResult: %s", rec.Title, rec.Benefit, rec.Outcome))
	}
	if len(blocks) == 0 {
		return s.fail(emit, "", apperr.New(apperr.KindBadInput, "no tested hypotheses to synthesize"))
	}

	final, err := s.client.Stream(ctx, llm.Request{
		System: synthesisPrompt,
		User:   strings.Join(blocks, "\n\n"),
	}, func(total string) {
		emit(Event{Event: "delta", Content: total})
	})
	if err != nil {
		return s.fail(emit, "", err)
	}

	emit(Event{Event: "synthesis", Content: final, Finished: true})
	return nil
}

// fail emits a terminal error event, surfacing the failing stage and, for
// upstream errors, the remote status and body verbatim.
func (s *Service) fail(emit EmitFunc, stage Stage, err error) error {
	ev := Event{Event: "error", Stage: StageFailed, FailedStage: stage, Error: err.Error(), Finished: true}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindUpstream {
		ev.Status = appErr.UpstreamStatus
		ev.Body = appErr.UpstreamBody
	}
	emit(ev)
	return err
}
