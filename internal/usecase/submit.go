// Package usecase contains the application services that tie transport,
// providers, and persistence together.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// AnswerPipeline is the AI processing stage consumed by the submit service.
type AnswerPipeline interface {
	ProcessAnswer(ctx context.Context, audio []byte, mimeType, questionText string, rubric map[string]string) domain.PipelineResult
}

// SubmitAnswerInput is one candidate answer ready for processing. The session
// token has already been verified by the transport layer.
type SubmitAnswerInput struct {
	SessionID        string
	QuestionID       string
	QuestionIndex    int
	TabSwitches      int
	Audio            []byte
	MIMEType         string
	AudioDurationSec float64
}

// SubmitAnswerOutput reports what was stored. AIError is non-empty when the
// answer was persisted but evaluation did not complete; the submission itself
// still succeeded.
type SubmitAnswerOutput struct {
	AnswerID       string
	Transcript     string
	Scores         map[string]int
	AverageScore   int
	Recommendation string
	AIError        string
}

// SubmitAnswerService ingests answers: persist first, evaluate second, so a
// misbehaving provider can never lose a recording.
type SubmitAnswerService struct {
	Answers   domain.AnswerRepository
	Sessions  domain.SessionRepository
	Questions domain.QuestionRepository
	Audio     domain.AudioStore
	Pipeline  AnswerPipeline
	Events    domain.EventPublisher
}

// NewSubmitAnswerService wires the submit service. Events may be nil.
func NewSubmitAnswerService(
	answers domain.AnswerRepository,
	sessions domain.SessionRepository,
	questions domain.QuestionRepository,
	audio domain.AudioStore,
	pipeline AnswerPipeline,
	events domain.EventPublisher,
) *SubmitAnswerService {
	return &SubmitAnswerService{
		Answers:   answers,
		Sessions:  sessions,
		Questions: questions,
		Audio:     audio,
		Pipeline:  pipeline,
		Events:    events,
	}
}

// Submit stores the answer, runs the AI pipeline, and records the evaluation.
func (s *SubmitAnswerService) Submit(ctx context.Context, in SubmitAnswerInput) (SubmitAnswerOutput, error) {
	tracer := otel.Tracer("usecase.submit")
	ctx, span := tracer.Start(ctx, "submit.Answer")
	span.SetAttributes(
		attribute.String("session_id", in.SessionID),
		attribute.Int("question_index", in.QuestionIndex),
	)
	defer span.End()

	session, err := s.Sessions.Get(ctx, in.SessionID)
	if err != nil {
		return SubmitAnswerOutput{}, fmt.Errorf("op=submit: %w", err)
	}
	if session.Status != domain.SessionInProgress {
		return SubmitAnswerOutput{}, fmt.Errorf("op=submit: session %s is %s: %w", session.ID, session.Status, domain.ErrConflict)
	}

	question, err := s.Questions.Get(ctx, in.QuestionID)
	if err != nil {
		return SubmitAnswerOutput{}, fmt.Errorf("op=submit: question: %w", err)
	}

	audioKey := fmt.Sprintf("%s/%d%s", in.SessionID, in.QuestionIndex, extForMIME(in.MIMEType))
	if err := s.Audio.Put(ctx, audioKey, in.Audio, in.MIMEType); err != nil {
		return SubmitAnswerOutput{}, fmt.Errorf("op=submit: store audio: %w", err)
	}

	durationSec := in.AudioDurationSec
	if durationSec <= 0 {
		// Size-based estimate at ~16 kB/s; replaced by the provider-reported
		// duration once transcription succeeds.
		durationSec = float64(len(in.Audio)) / 16000
	}

	answerID, err := s.Answers.Upsert(ctx, domain.Answer{
		SessionID:        in.SessionID,
		QuestionID:       in.QuestionID,
		QuestionIndex:    in.QuestionIndex,
		AudioKey:         audioKey,
		AudioDurationSec: durationSec,
		TabSwitches:      in.TabSwitches,
		SubmittedAt:      time.Now().UTC(),
	})
	if err != nil {
		return SubmitAnswerOutput{}, fmt.Errorf("op=submit: %w", err)
	}
	observability.AnswersSubmittedTotal.Inc()

	out := SubmitAnswerOutput{AnswerID: answerID}
	if aiErr := s.evaluate(ctx, answerID, in, question, &out); aiErr != "" {
		out.AIError = aiErr
	}
	return out, nil
}

// evaluate runs the pipeline and persists its result. It recovers panics from
// provider SDKs: the answer row already exists, so any failure here degrades
// the response instead of failing the submission.
func (s *SubmitAnswerService) evaluate(ctx context.Context, answerID string, in SubmitAnswerInput, question domain.Question, out *SubmitAnswerOutput) (aiErr string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("answer evaluation panicked",
				slog.String("answer_id", answerID),
				slog.Any("panic", r))
			aiErr = "evaluation failed unexpectedly; answer stored for manual review"
		}
	}()

	res := s.Pipeline.ProcessAnswer(ctx, in.Audio, in.MIMEType, question.Text, question.Rubric)

	scores, avg := NormalizeScores(res.Evaluation.Score)
	recommendation := res.Evaluation.Recommendation
	if recommendation == "" {
		recommendation = domain.RecommendationForScore(float64(avg))
	}

	transcript := res.Transcription.Transcript
	now := time.Now().UTC()
	err := s.Answers.UpdateEvaluation(ctx, answerID, domain.Answer{
		Transcript:       &transcript,
		Scores:           scores,
		AverageScore:     &avg,
		AudioDurationSec: res.Transcription.DurationSeconds,
		Strengths:        res.Evaluation.Strengths,
		Risks:            res.Evaluation.Risks,
		Recommendation:   &recommendation,
		EvaluatedAt:      &now,
	})
	if err != nil {
		slog.Error("failed to persist evaluation",
			slog.String("answer_id", answerID),
			slog.Any("error", err))
		return "evaluation could not be saved; answer stored for manual review"
	}

	out.Transcript = transcript
	out.Scores = scores
	out.AverageScore = avg
	out.Recommendation = recommendation
	observability.ObserveAnswerScore(avg)

	var summary *string
	if sum := res.Evaluation.Summary; sum != "" {
		summary = &sum
	}
	if total, _, ok, err := s.Sessions.RecomputeAggregate(ctx, in.SessionID, summary); err != nil {
		slog.Error("session aggregate recompute failed",
			slog.String("session_id", in.SessionID),
			slog.Any("error", err))
	} else if ok {
		observability.ObserveSessionScore(total)
	}

	if s.Events != nil {
		ev := domain.AnswerEvaluatedEvent{
			SessionID:     in.SessionID,
			AnswerID:      answerID,
			QuestionIndex: in.QuestionIndex,
			AverageScore:  avg,
			Provider:      res.Evaluation.Provider,
			EvaluatedAt:   now,
		}
		if err := s.Events.PublishAnswerEvaluated(ctx, ev); err != nil {
			slog.Warn("answer-evaluated event publish failed",
				slog.String("answer_id", answerID),
				slog.Any("error", err))
		}
	}
	return ""
}

// NormalizeScores converts raw 0-5 dimension scores to the 0-100 scale and
// averages them. A dimension missing from the provider result counts as the
// neutral midpoint, so the average is always over exactly five dimensions.
func NormalizeScores(raw map[string]float64) (map[string]int, int) {
	scores := make(map[string]int, len(domain.ScoreDimensions))
	sum := 0
	for _, dim := range domain.ScoreDimensions {
		v, ok := raw[dim]
		if !ok {
			v = 3
		}
		n := int(math.Round(v / 5 * 100))
		scores[dim] = n
		sum += n
	}
	avg := int(math.Round(float64(sum) / float64(len(domain.ScoreDimensions))))
	return scores, avg
}

func extForMIME(mimeType string) string {
	switch {
	case mimeType == "audio/ogg":
		return ".ogg"
	case mimeType == "audio/wav", mimeType == "audio/x-wav":
		return ".wav"
	case mimeType == "audio/mp4", mimeType == "audio/x-m4a":
		return ".m4a"
	case mimeType == "audio/mpeg":
		return ".mp3"
	default:
		return ".webm"
	}
}
