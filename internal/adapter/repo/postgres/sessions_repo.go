package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// SessionRepo reads sessions and maintains their score aggregate.
type SessionRepo struct{ Pool PgxPool }

// NewSessionRepo constructs a SessionRepo with the given pool.
func NewSessionRepo(p PgxPool) *SessionRepo { return &SessionRepo{Pool: p} }

// Get loads a session by id or returns ErrNotFound.
func (r *SessionRepo) Get(ctx domain.Context, id string) (domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "sessions"),
	)
	q := `SELECT id, org_id, status, token_hash, total_score, ai_recommendation, ai_summary, created_at, updated_at
		FROM sessions WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var s domain.Session
	if err := row.Scan(&s.ID, &s.OrgID, &s.Status, &s.TokenHash, &s.TotalScore, &s.AIRecommendation, &s.AISummary, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, fmt.Errorf("op=session.get: %w", domain.ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("op=session.get: %w", err)
	}
	return s, nil
}

// RecomputeAggregate rewrites the session total from its evaluated answers in
// one statement. Concurrent recomputes for the same session are harmless: each
// reads the full answer set, so the last writer stores a complete aggregate.
func (r *SessionRepo) RecomputeAggregate(ctx domain.Context, id string, summary *string) (float64, string, bool, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.RecomputeAggregate")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "sessions"),
	)
	// Thresholds mirror domain.RecommendationForScore.
	q := `UPDATE sessions SET
			total_score = agg.avg_score,
			ai_recommendation = CASE
				WHEN agg.avg_score >= 80 THEN 'strong_hire'
				WHEN agg.avg_score >= 65 THEN 'hire'
				WHEN agg.avg_score >= 45 THEN 'maybe'
				WHEN agg.avg_score >= 25 THEN 'no_hire'
				ELSE 'strong_no_hire'
			END,
			ai_summary = COALESCE($2, ai_summary),
			updated_at = $3
		FROM (
			SELECT ROUND(AVG(average_score)::numeric, 1)::float8 AS avg_score
			FROM answers
			WHERE session_id = $1 AND evaluated_at IS NOT NULL
		) agg
		WHERE sessions.id = $1 AND agg.avg_score IS NOT NULL
		RETURNING sessions.total_score, sessions.ai_recommendation`
	row := r.Pool.QueryRow(ctx, q, id, summary, time.Now().UTC())
	var total float64
	var recommendation string
	if err := row.Scan(&total, &recommendation); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Session missing or no evaluated answers yet; aggregate stays null.
			return 0, "", false, nil
		}
		return 0, "", false, fmt.Errorf("op=session.recompute_aggregate: %w", err)
	}
	return total, recommendation, true, nil
}
