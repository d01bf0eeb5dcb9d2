package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/usecase"
)

const (
	testSessionID = "2f1f3c9a-8f4e-4c38-9a57-0f6f3d3a1b11"
	testToken     = "interview-invite-token"
)

type stubSessionRepo struct{ session domain.Session }

func (s *stubSessionRepo) Get(_ domain.Context, id string) (domain.Session, error) {
	if s.session.ID != id {
		return domain.Session{}, domain.ErrNotFound
	}
	return s.session, nil
}

func (s *stubSessionRepo) RecomputeAggregate(_ domain.Context, _ string, _ *string) (float64, string, bool, error) {
	return 60, domain.RecommendationMaybe, true, nil
}

type stubAnswerRepo struct{ answers []domain.Answer }

func (s *stubAnswerRepo) Upsert(_ domain.Context, a domain.Answer) (string, error) {
	a.ID = "answer-1"
	s.answers = append(s.answers, a)
	return a.ID, nil
}

func (s *stubAnswerRepo) Get(_ domain.Context, _ string, _ int) (domain.Answer, error) {
	return domain.Answer{}, domain.ErrNotFound
}

func (s *stubAnswerRepo) UpdateEvaluation(_ domain.Context, _ string, _ domain.Answer) error {
	return nil
}

func (s *stubAnswerRepo) ListBySession(_ domain.Context, _ string) ([]domain.Answer, error) {
	return s.answers, nil
}

type stubQuestionRepo struct{}

func (stubQuestionRepo) Get(_ domain.Context, id string) (domain.Question, error) {
	return domain.Question{ID: id, Text: "Tell me about yourself."}, nil
}

func (stubQuestionRepo) Create(_ domain.Context, q domain.Question) (string, error) { return q.ID, nil }

type stubAudioStore struct{}

func (stubAudioStore) Put(_ domain.Context, _ string, _ []byte, _ string) error { return nil }

type stubPipeline struct{}

func (stubPipeline) ProcessAnswer(_ context.Context, _ []byte, _, _ string, _ map[string]string) domain.PipelineResult {
	return domain.PipelineResult{
		Transcription: domain.TranscriptionResult{Transcript: "hello there", Provider: "groq"},
		Evaluation: domain.EvaluationResult{
			Score:          map[string]float64{"clarity": 4, "relevance": 4, "confidence": 4, "technical_fit": 4, "communication": 4},
			Summary:        "fine",
			Recommendation: domain.RecommendationHire,
			Provider:       "groq",
		},
	}
}

func testSession(t *testing.T) domain.Session {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	require.NoError(t, err)
	return domain.Session{
		ID:        testSessionID,
		OrgID:     "org-1",
		Status:    domain.SessionInProgress,
		TokenHash: string(hash),
		UpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, session domain.Session) (*httpserver.Server, *stubAnswerRepo) {
	t.Helper()
	sessions := &stubSessionRepo{session: session}
	answers := &stubAnswerRepo{}
	submit := usecase.NewSubmitAnswerService(answers, sessions, stubQuestionRepo{}, stubAudioStore{}, stubPipeline{}, nil)
	results := usecase.NewSessionResultService(sessions, answers)
	return httpserver.NewServer(submit, results, sessions, nil, 1<<20), answers
}

// wavAudio returns a minimal RIFF/WAVE header so content sniffing sees audio.
func wavAudio() []byte {
	b := make([]byte, 512)
	copy(b, "RIFF")
	copy(b[8:], "WAVE")
	return b
}

func multipartBody(t *testing.T, fields map[string]string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "answer.wav")
		require.NoError(t, err)
		_, err = fw.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func defaultFields() map[string]string {
	return map[string]string{
		"session_id":     testSessionID,
		"question_id":    "q-1",
		"question_index": "0",
		"tab_switches":   "3",
	}
}

func doSubmit(t *testing.T, srv *httpserver.Server, fields map[string]string, audio []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, audio)
	req := httptest.NewRequest(http.MethodPost, "/v1/answers", body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.SubmitAnswerHandler()(rec, req)
	return rec
}

func TestSubmitAnswer_Success(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, testSession(t))

	rec := doSubmit(t, srv, defaultFields(), wavAudio(), testToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success      bool           `json:"success"`
		AnswerID     string         `json:"answer_id"`
		Transcript   string         `json:"transcript"`
		Scores       map[string]int `json:"scores"`
		AverageScore *int           `json:"average_score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "answer-1", resp.AnswerID)
	assert.Equal(t, "hello there", resp.Transcript)
	require.NotNil(t, resp.AverageScore)
	assert.Equal(t, 80, *resp.AverageScore)
}

func TestSubmitAnswer_AuthFailures(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, testSession(t))

	rec := doSubmit(t, srv, defaultFields(), wavAudio(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doSubmit(t, srv, defaultFields(), wavAudio(), "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitAnswer_ValidationFailures(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, testSession(t))

	t.Run("missing session id", func(t *testing.T) {
		fields := defaultFields()
		fields["session_id"] = ""
		rec := doSubmit(t, srv, fields, wavAudio(), testToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad question index", func(t *testing.T) {
		fields := defaultFields()
		fields["question_index"] = "not-a-number"
		rec := doSubmit(t, srv, fields, wavAudio(), testToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing audio", func(t *testing.T) {
		rec := doSubmit(t, srv, defaultFields(), nil, testToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non audio payload", func(t *testing.T) {
		rec := doSubmit(t, srv, defaultFields(), []byte("plain text, not audio at all"), testToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitAnswer_CompletedSessionConflicts(t *testing.T) {
	t.Parallel()
	session := testSession(t)
	session.Status = domain.SessionCompleted
	srv, _ := newTestServer(t, session)

	rec := doSubmit(t, srv, defaultFields(), wavAudio(), testToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionResult_ETagRoundTrip(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, testSession(t))

	router := chi.NewRouter()
	router.Get("/v1/sessions/{id}/result", srv.SessionResultHandler())

	get := func(etag string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/sessions/%s/result", testSessionID), nil)
		req.Header.Set("Authorization", "Bearer "+testToken)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := get("")
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var resp struct {
		SessionID string `json:"session_id"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))
	assert.Equal(t, testSessionID, resp.SessionID)
	assert.Equal(t, "in_progress", resp.Status)

	second := get(etag)
	assert.Equal(t, http.StatusNotModified, second.Code)
}

func TestSessionResult_RequiresToken(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, testSession(t))
	router := chi.NewRouter()
	router.Get("/v1/sessions/{id}/result", srv.SessionResultHandler())

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/sessions/%s/result", testSessionID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReadyzHandler(t *testing.T) {
	t.Parallel()
	ok := func(_ domain.Context) error { return nil }
	bad := func(_ domain.Context) error { return fmt.Errorf("connection refused") }

	rec := httptest.NewRecorder()
	httpserver.ReadyzHandler(map[string]func(domain.Context) error{"db": ok})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	httpserver.ReadyzHandler(map[string]func(domain.Context) error{"db": ok, "redis": bad})(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
