package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/usecase"
)

// fakeAnswerRepo keys rows by (session_id, question_index) the way the real
// table's unique constraint does.
type fakeAnswerRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.Answer
	nextID  int
	upserts int

	upsertErr error
	updateErr error
}

func newFakeAnswerRepo() *fakeAnswerRepo {
	return &fakeAnswerRepo{rows: map[string]domain.Answer{}}
}

func slotKey(sessionID string, questionIndex int) string {
	return fmt.Sprintf("%s#%d", sessionID, questionIndex)
}

func (f *fakeAnswerRepo) Upsert(_ domain.Context, a domain.Answer) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	f.upserts++
	key := slotKey(a.SessionID, a.QuestionIndex)
	if existing, ok := f.rows[key]; ok {
		a.ID = existing.ID
	} else {
		f.nextID++
		a.ID = fmt.Sprintf("answer-%d", f.nextID)
	}
	f.rows[key] = a
	return a.ID, nil
}

func (f *fakeAnswerRepo) Get(_ domain.Context, sessionID string, questionIndex int) (domain.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[slotKey(sessionID, questionIndex)]
	if !ok {
		return domain.Answer{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeAnswerRepo) UpdateEvaluation(_ domain.Context, id string, a domain.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for key, row := range f.rows {
		if row.ID == id {
			row.Transcript = a.Transcript
			row.Scores = a.Scores
			row.AverageScore = a.AverageScore
			row.Strengths = a.Strengths
			row.Risks = a.Risks
			row.Recommendation = a.Recommendation
			row.EvaluatedAt = a.EvaluatedAt
			if a.AudioDurationSec > 0 {
				row.AudioDurationSec = a.AudioDurationSec
			}
			f.rows[key] = row
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeAnswerRepo) ListBySession(_ domain.Context, sessionID string) ([]domain.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Answer
	for _, row := range f.rows {
		if row.SessionID == sessionID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeSessionRepo struct {
	session     domain.Session
	getErr      error
	recomputes  int
	lastSummary *string

	aggTotal float64
	aggRec   string
	aggOK    bool
	aggErr   error
}

func (f *fakeSessionRepo) Get(_ domain.Context, id string) (domain.Session, error) {
	if f.getErr != nil {
		return domain.Session{}, f.getErr
	}
	if f.session.ID != id {
		return domain.Session{}, domain.ErrNotFound
	}
	return f.session, nil
}

func (f *fakeSessionRepo) RecomputeAggregate(_ domain.Context, _ string, summary *string) (float64, string, bool, error) {
	f.recomputes++
	f.lastSummary = summary
	return f.aggTotal, f.aggRec, f.aggOK, f.aggErr
}

type fakeQuestionRepo struct {
	question domain.Question
}

func (f *fakeQuestionRepo) Get(_ domain.Context, id string) (domain.Question, error) {
	if f.question.ID != id {
		return domain.Question{}, domain.ErrNotFound
	}
	return f.question, nil
}

func (f *fakeQuestionRepo) Create(_ domain.Context, q domain.Question) (string, error) {
	return q.ID, nil
}

type fakeAudioStore struct {
	puts   []string
	putErr error
}

func (f *fakeAudioStore) Put(_ domain.Context, key string, _ []byte, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, key)
	return nil
}

type fakePipeline struct {
	result domain.PipelineResult
	panics bool
	calls  int
}

func (f *fakePipeline) ProcessAnswer(_ context.Context, _ []byte, _, _ string, _ map[string]string) domain.PipelineResult {
	f.calls++
	if f.panics {
		panic("provider sdk blew up")
	}
	return f.result
}

type fakePublisher struct {
	events []domain.AnswerEvaluatedEvent
	err    error
}

func (f *fakePublisher) PublishAnswerEvaluated(_ domain.Context, ev domain.AnswerEvaluatedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

var (
	_ domain.AnswerRepository   = (*fakeAnswerRepo)(nil)
	_ domain.SessionRepository  = (*fakeSessionRepo)(nil)
	_ domain.QuestionRepository = (*fakeQuestionRepo)(nil)
	_ domain.AudioStore         = (*fakeAudioStore)(nil)
	_ usecase.AnswerPipeline    = (*fakePipeline)(nil)
	_ domain.EventPublisher     = (*fakePublisher)(nil)
)
