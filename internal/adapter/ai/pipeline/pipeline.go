// Package pipeline chains transcription and evaluation providers with
// per-provider retries and cross-provider failover. Both stages are total:
// they always produce a result, degrading to sentinels when every provider
// fails.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// TranscriptionUnavailable is stored as the transcript when every provider
// failed. The evaluation stage detects it by prefix and skips scoring.
const TranscriptionUnavailable = "[Transcription unavailable — pending manual review]"

// transcriptionUnavailablePrefix is the stable detection key. The suffix of
// the sentinel may be reworded; the prefix may not.
const transcriptionUnavailablePrefix = "[Transcription unavailable"

// Pipeline orders providers by preference and walks them with retries.
type Pipeline struct {
	transcribers []domain.TranscriptionProvider
	evaluators   []domain.EvaluationProvider
	policy       Policy
}

// New builds a pipeline. Providers are tried in the order given.
func New(transcribers []domain.TranscriptionProvider, evaluators []domain.EvaluationProvider, policy Policy) *Pipeline {
	if policy.MaxAttempts < 1 {
		policy = DefaultPolicy
	}
	return &Pipeline{transcribers: transcribers, evaluators: evaluators, policy: policy}
}

// Transcribe runs the transcription chain. It never returns an error: when
// every provider fails the result carries the unavailable sentinel so the
// answer can still be persisted for manual review.
func (p *Pipeline) Transcribe(ctx context.Context, audio []byte, mimeType string) domain.TranscriptionResult {
	tr := otel.Tracer("adapter.ai.pipeline")
	ctx, span := tr.Start(ctx, "pipeline.transcribe")
	defer span.End()

	for _, provider := range p.transcribers {
		var res domain.TranscriptionResult
		err := Do(ctx, p.policy, func() error {
			var callErr error
			res, callErr = provider.Transcribe(ctx, audio, mimeType)
			return callErr
		}, func(err error, next time.Duration) {
			observability.PipelineRetriesTotal.WithLabelValues("transcription", provider.Name()).Inc()
			slog.Warn("transcription attempt failed, retrying",
				slog.String("provider", provider.Name()),
				slog.Duration("next_delay", next),
				slog.Any("error", err))
		})
		if err == nil {
			observability.StageOutcome("transcription", provider.Name(), "success")
			span.SetAttributes(attribute.String("provider", provider.Name()))
			return res
		}
		observability.StageOutcome("transcription", provider.Name(), "failure")
		slog.Error("transcription provider exhausted",
			slog.String("provider", provider.Name()),
			slog.Any("error", err))
	}

	observability.StageOutcome("transcription", "fallback", "sentinel")
	span.SetAttributes(attribute.String("provider", "fallback"))
	return domain.TranscriptionResult{
		Transcript: TranscriptionUnavailable,
		Provider:   "fallback",
	}
}

// Evaluate runs the evaluation chain. Transcripts that are empty or carry the
// unavailable sentinel are not sent to any provider; they get the neutral
// default immediately. Never returns an error.
func (p *Pipeline) Evaluate(ctx context.Context, transcript, questionText string, rubric map[string]string) domain.EvaluationResult {
	tr := otel.Tracer("adapter.ai.pipeline")
	ctx, span := tr.Start(ctx, "pipeline.evaluate")
	defer span.End()

	if strings.TrimSpace(transcript) == "" || strings.Contains(transcript, transcriptionUnavailablePrefix) {
		observability.StageOutcome("evaluation", "fallback", "skipped")
		span.SetAttributes(attribute.String("provider", "fallback"))
		return ai.DefaultEvaluation("No transcript available")
	}

	for _, provider := range p.evaluators {
		var res domain.EvaluationResult
		err := Do(ctx, p.policy, func() error {
			var callErr error
			res, callErr = provider.Evaluate(ctx, transcript, questionText, rubric)
			return callErr
		}, func(err error, next time.Duration) {
			observability.PipelineRetriesTotal.WithLabelValues("evaluation", provider.Name()).Inc()
			slog.Warn("evaluation attempt failed, retrying",
				slog.String("provider", provider.Name()),
				slog.Duration("next_delay", next),
				slog.Any("error", err))
		})
		if err == nil {
			observability.StageOutcome("evaluation", provider.Name(), "success")
			span.SetAttributes(attribute.String("provider", provider.Name()))
			return res
		}
		observability.StageOutcome("evaluation", provider.Name(), "failure")
		slog.Error("evaluation provider exhausted",
			slog.String("provider", provider.Name()),
			slog.Any("error", err))
	}

	observability.StageOutcome("evaluation", "fallback", "sentinel")
	span.SetAttributes(attribute.String("provider", "fallback"))
	return ai.DefaultEvaluation("All AI providers failed — requires manual review")
}

// ProcessAnswer runs both stages for one answer. The evaluation result always
// carries the transcription stage's transcript, including sentinels. Total:
// never returns an error.
func (p *Pipeline) ProcessAnswer(ctx context.Context, audio []byte, mimeType, questionText string, rubric map[string]string) domain.PipelineResult {
	transcription := p.Transcribe(ctx, audio, mimeType)
	evaluation := p.Evaluate(ctx, transcription.Transcript, questionText, rubric)
	evaluation.Transcript = transcription.Transcript
	return domain.PipelineResult{
		Transcription: transcription,
		Evaluation:    evaluation,
	}
}
