package usecase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// SessionResult bundles a session and its answers for reviewers.
type SessionResult struct {
	Session domain.Session
	Answers []domain.Answer
}

// EvaluatedCount reports how many answers have been scored.
func (r SessionResult) EvaluatedCount() int {
	n := 0
	for _, a := range r.Answers {
		if a.Evaluated() {
			n++
		}
	}
	return n
}

// SessionResultService serves read-side session summaries.
type SessionResultService struct {
	Sessions domain.SessionRepository
	Answers  domain.AnswerRepository
}

// NewSessionResultService wires the result service.
func NewSessionResultService(sessions domain.SessionRepository, answers domain.AnswerRepository) *SessionResultService {
	return &SessionResultService{Sessions: sessions, Answers: answers}
}

// Get loads the session with all its answers, ordered by question index.
func (s *SessionResultService) Get(ctx context.Context, sessionID string) (SessionResult, error) {
	tracer := otel.Tracer("usecase.result")
	ctx, span := tracer.Start(ctx, "result.Get")
	span.SetAttributes(attribute.String("session_id", sessionID))
	defer span.End()

	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return SessionResult{}, fmt.Errorf("op=result: %w", err)
	}
	answers, err := s.Answers.ListBySession(ctx, sessionID)
	if err != nil {
		return SessionResult{}, fmt.Errorf("op=result: %w", err)
	}
	return SessionResult{Session: session, Answers: answers}, nil
}
