package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrEmptyResult       = errors.New("empty provider result")
	ErrInternal          = errors.New("internal error")
)

// Recommendation tiers produced by evaluation and by the session aggregate.
const (
	RecommendationStrongHire   = "strong_hire"
	RecommendationHire         = "hire"
	RecommendationMaybe        = "maybe"
	RecommendationNoHire       = "no_hire"
	RecommendationStrongNoHire = "strong_no_hire"
)

// ScoreDimensions lists the five scored dimensions in canonical order.
var ScoreDimensions = []string{"clarity", "relevance", "confidence", "technical_fit", "communication"}

// RecommendationForScore maps a 0-100 session score to a recommendation tier.
// Thresholds are a fixed hiring policy; change only with product sign-off.
func RecommendationForScore(score float64) string {
	switch {
	case score >= 80:
		return RecommendationStrongHire
	case score >= 65:
		return RecommendationHire
	case score >= 45:
		return RecommendationMaybe
	case score >= 25:
		return RecommendationNoHire
	default:
		return RecommendationStrongNoHire
	}
}

// Question is an immutable-per-session prompt supplied by the question bank.
// The pipeline treats it as read-only input.
type Question struct {
	ID           string
	Text         string
	Category     string
	Difficulty   string
	TimeLimitSec int
	Rubric       map[string]string
	CreatedAt    time.Time
}

// SessionStatus enumerates interview session states owned by the scheduler.
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Session is the subset of the interview session the core reads and mutates:
// token verification on ingest, total_score/ai_recommendation on aggregate
// recompute. Everything else on the row belongs to the scheduling service.
type Session struct {
	ID               string
	OrgID            string
	Status           SessionStatus
	TokenHash        string
	TotalScore       *float64
	AIRecommendation *string
	AISummary        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Answer is one candidate response, uniquely keyed by (SessionID, QuestionIndex).
// A re-submission for the same index replaces the row rather than duplicating it.
type Answer struct {
	ID               string
	SessionID        string
	QuestionID       string
	QuestionIndex    int
	AudioKey         string
	AudioDurationSec float64
	TabSwitches      int
	Transcript       *string
	Scores           map[string]int // normalized 0-100 per dimension
	AverageScore     *int
	Strengths        []string
	Risks            []string
	Recommendation   *string
	SubmittedAt      time.Time
	EvaluatedAt      *time.Time
}

// Evaluated reports whether the answer has been scored by the pipeline.
func (a Answer) Evaluated() bool { return a.EvaluatedAt != nil }

// TranscriptionResult is the output of one transcription provider call.
type TranscriptionResult struct {
	Transcript      string
	Language        string
	DurationSeconds float64
	Provider        string
	Model           string
	LatencyMS       int64
}

// EvaluationResult is the transient output of the evaluation stage. It is
// unpacked into Answer fields and the session aggregate, never persisted
// as its own entity.
type EvaluationResult struct {
	Transcript         string
	Score              map[string]float64 // raw 0-5 per dimension
	ScoreJustification map[string]string
	Summary            string
	Strengths          []string
	Risks              []string
	Recommendation     string
	Provider           string
	Model              string
	LatencyMS          int64
}

// PipelineResult bundles both stages of one processed answer.
type PipelineResult struct {
	Transcription TranscriptionResult
	Evaluation    EvaluationResult
}

// Repositories (ports)

type AnswerRepository interface {
	// Upsert inserts or replaces the answer for (SessionID, QuestionIndex)
	// and returns the id of the surviving row.
	Upsert(ctx Context, a Answer) (string, error)
	Get(ctx Context, sessionID string, questionIndex int) (Answer, error)
	// UpdateEvaluation records transcript/scores for an already-stored answer.
	UpdateEvaluation(ctx Context, id string, a Answer) error
	ListBySession(ctx Context, sessionID string) ([]Answer, error)
}

type SessionRepository interface {
	Get(ctx Context, id string) (Session, error)
	// RecomputeAggregate re-reads all evaluated answers of the session and
	// persists total_score/ai_recommendation. ok is false when the session
	// has no evaluated answers yet (aggregate stays null).
	RecomputeAggregate(ctx Context, id string, summary *string) (total float64, recommendation string, ok bool, err error)
}

type QuestionRepository interface {
	Get(ctx Context, id string) (Question, error)
	Create(ctx Context, q Question) (string, error)
}

// Providers (ports)

// TranscriptionProvider converts recorded audio into a transcript. Errors on
// transport/auth/quota failure; an empty transcript is also an error (soft
// failure) so the caller can retry or fail over.
type TranscriptionProvider interface {
	Name() string
	Transcribe(ctx Context, audio []byte, mimeType string) (TranscriptionResult, error)
}

// EvaluationProvider scores a transcript against a question and rubric.
type EvaluationProvider interface {
	Name() string
	Evaluate(ctx Context, transcript, questionText string, rubric map[string]string) (EvaluationResult, error)
}

// AudioStore persists raw answer audio and returns control once the bytes are
// durable. Object-storage specifics live behind this boundary.
type AudioStore interface {
	Put(ctx Context, key string, data []byte, mimeType string) error
}

// EventPublisher emits domain events for downstream consumers (dashboard,
// notification fan-out). Publishing is best-effort after durable persistence.
type EventPublisher interface {
	PublishAnswerEvaluated(ctx Context, ev AnswerEvaluatedEvent) error
}

// AnswerEvaluatedEvent is emitted after an answer's evaluation is persisted.
type AnswerEvaluatedEvent struct {
	SessionID     string    `json:"session_id"`
	AnswerID      string    `json:"answer_id"`
	QuestionIndex int       `json:"question_index"`
	AverageScore  int       `json:"average_score"`
	Provider      string    `json:"provider"`
	EvaluatedAt   time.Time `json:"evaluated_at"`
}

// Context is an alias so the domain package does not spread context imports
// through every port signature.
type Context = context.Context
