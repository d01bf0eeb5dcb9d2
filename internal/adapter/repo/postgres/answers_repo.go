// Package postgres provides PostgreSQL database adapters.
//
// It implements the repository ports for data persistence with
// connection pooling and transaction support.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// AnswerRepo persists answers using a minimal pgx pool.
type AnswerRepo struct{ Pool PgxPool }

// NewAnswerRepo constructs an AnswerRepo with the given pool.
func NewAnswerRepo(p PgxPool) *AnswerRepo { return &AnswerRepo{Pool: p} }

const answerColumns = `id, session_id, question_id, question_index, audio_key, audio_duration_sec,
	tab_switches, transcript, scores, average_score, strengths, risks, recommendation,
	submitted_at, evaluated_at`

// Upsert inserts the answer or, when the (session_id, question_index) slot is
// already taken, replaces it. A replacement resets evaluation columns so a
// stale evaluation never survives a re-recording.
func (r *AnswerRepo) Upsert(ctx domain.Context, a domain.Answer) (string, error) {
	tracer := otel.Tracer("repo.answers")
	ctx, span := tracer.Start(ctx, "answers.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "answers"),
	)
	id := a.ID
	if id == "" {
		id = uuid.New().String()
	}
	submittedAt := a.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}
	q := `INSERT INTO answers (id, session_id, question_id, question_index, audio_key, audio_duration_sec, tab_switches, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (session_id, question_index) DO UPDATE SET
			question_id = EXCLUDED.question_id,
			audio_key = EXCLUDED.audio_key,
			audio_duration_sec = EXCLUDED.audio_duration_sec,
			tab_switches = EXCLUDED.tab_switches,
			submitted_at = EXCLUDED.submitted_at,
			transcript = NULL,
			scores = NULL,
			average_score = NULL,
			strengths = NULL,
			risks = NULL,
			recommendation = NULL,
			evaluated_at = NULL
		RETURNING id`
	row := r.Pool.QueryRow(ctx, q, id, a.SessionID, a.QuestionID, a.QuestionIndex, a.AudioKey, a.AudioDurationSec, a.TabSwitches, submittedAt)
	var storedID string
	if err := row.Scan(&storedID); err != nil {
		return "", fmt.Errorf("op=answer.upsert: %w", err)
	}
	return storedID, nil
}

// Get loads one answer by its (session_id, question_index) slot.
func (r *AnswerRepo) Get(ctx domain.Context, sessionID string, questionIndex int) (domain.Answer, error) {
	tracer := otel.Tracer("repo.answers")
	ctx, span := tracer.Start(ctx, "answers.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "answers"),
	)
	q := `SELECT ` + answerColumns + ` FROM answers WHERE session_id=$1 AND question_index=$2`
	row := r.Pool.QueryRow(ctx, q, sessionID, questionIndex)
	a, err := scanAnswer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Answer{}, fmt.Errorf("op=answer.get: %w", domain.ErrNotFound)
		}
		return domain.Answer{}, fmt.Errorf("op=answer.get: %w", err)
	}
	return a, nil
}

// UpdateEvaluation records transcript and scores for an already-stored answer.
func (r *AnswerRepo) UpdateEvaluation(ctx domain.Context, id string, a domain.Answer) error {
	tracer := otel.Tracer("repo.answers")
	ctx, span := tracer.Start(ctx, "answers.UpdateEvaluation")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "answers"),
	)
	evaluatedAt := a.EvaluatedAt
	if evaluatedAt == nil {
		now := time.Now().UTC()
		evaluatedAt = &now
	}
	// The transcription stage reports the real audio duration; it replaces the
	// size-based estimate stored at ingest. Zero means "no duration reported".
	q := `UPDATE answers SET transcript=$2, scores=$3, average_score=$4, strengths=$5, risks=$6, recommendation=$7, evaluated_at=$8,
		audio_duration_sec = CASE WHEN $9 > 0 THEN $9 ELSE audio_duration_sec END
		WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, a.Transcript, a.Scores, a.AverageScore, a.Strengths, a.Risks, a.Recommendation, evaluatedAt, a.AudioDurationSec)
	if err != nil {
		return fmt.Errorf("op=answer.update_evaluation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=answer.update_evaluation: id=%s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListBySession returns all answers of a session ordered by question index.
func (r *AnswerRepo) ListBySession(ctx domain.Context, sessionID string) ([]domain.Answer, error) {
	tracer := otel.Tracer("repo.answers")
	ctx, span := tracer.Start(ctx, "answers.ListBySession")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "answers"),
	)
	q := `SELECT ` + answerColumns + ` FROM answers WHERE session_id=$1 ORDER BY question_index`
	rows, err := r.Pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("op=answer.list_by_session: %w", err)
	}
	defer rows.Close()
	var out []domain.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("op=answer.list_by_session: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=answer.list_by_session: %w", err)
	}
	return out, nil
}

func scanAnswer(row pgx.Row) (domain.Answer, error) {
	var a domain.Answer
	err := row.Scan(
		&a.ID, &a.SessionID, &a.QuestionID, &a.QuestionIndex, &a.AudioKey, &a.AudioDurationSec,
		&a.TabSwitches, &a.Transcript, &a.Scores, &a.AverageScore, &a.Strengths, &a.Risks,
		&a.Recommendation, &a.SubmittedAt, &a.EvaluatedAt,
	)
	return a, err
}
