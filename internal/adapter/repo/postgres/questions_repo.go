package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// QuestionRepo loads and seeds interview questions.
type QuestionRepo struct{ Pool PgxPool }

// NewQuestionRepo constructs a QuestionRepo with the given pool.
func NewQuestionRepo(p PgxPool) *QuestionRepo { return &QuestionRepo{Pool: p} }

// Get loads a question by id or returns ErrNotFound.
func (r *QuestionRepo) Get(ctx domain.Context, id string) (domain.Question, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "questions"),
	)
	q := `SELECT id, text, category, difficulty, time_limit_sec, rubric, created_at FROM questions WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var out domain.Question
	if err := row.Scan(&out.ID, &out.Text, &out.Category, &out.Difficulty, &out.TimeLimitSec, &out.Rubric, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, fmt.Errorf("op=question.get: %w", domain.ErrNotFound)
		}
		return domain.Question{}, fmt.Errorf("op=question.get: %w", err)
	}
	return out, nil
}

// Create stores a new question and returns its id (generates one if empty).
func (r *QuestionRepo) Create(ctx domain.Context, q domain.Question) (string, error) {
	tracer := otel.Tracer("repo.questions")
	ctx, span := tracer.Start(ctx, "questions.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "questions"),
	)
	id := q.ID
	if id == "" {
		id = uuid.New().String()
	}
	stmt := `INSERT INTO questions (id, text, category, difficulty, time_limit_sec, rubric, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.Pool.Exec(ctx, stmt, id, q.Text, q.Category, q.Difficulty, q.TimeLimitSec, q.Rubric, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=question.create: %w", err)
	}
	return id, nil
}
