package httpserver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/usecase"
)

// Server wires usecases into HTTP handlers.
type Server struct {
	Submit   *usecase.SubmitAnswerService
	Results  *usecase.SessionResultService
	Sessions domain.SessionRepository
	Limiter  ratelimiter.Limiter

	MaxUploadBytes int64
	validate       *validator.Validate
}

// NewServer constructs a Server.
func NewServer(submit *usecase.SubmitAnswerService, results *usecase.SessionResultService, sessions domain.SessionRepository, limiter ratelimiter.Limiter, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 25 << 20
	}
	return &Server{
		Submit:         submit,
		Results:        results,
		Sessions:       sessions,
		Limiter:        limiter,
		MaxUploadBytes: maxUploadBytes,
		validate:       validator.New(),
	}
}

type submitAnswerRequest struct {
	SessionID     string `validate:"required,uuid4|uuid"`
	QuestionID    string `validate:"required"`
	QuestionIndex int    `validate:"gte=0,lte=99"`
	TabSwitches   int    `validate:"gte=0"`
}

type submitAnswerResponse struct {
	Success        bool           `json:"success"`
	AnswerID       string         `json:"answer_id"`
	Transcript     string         `json:"transcript,omitempty"`
	Scores         map[string]int `json:"scores,omitempty"`
	AverageScore   *int           `json:"average_score,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	AIError        string         `json:"ai_error,omitempty"`
}

// SubmitAnswerHandler accepts one recorded answer as multipart form data and
// runs it through the evaluation pipeline.
func (s *Server) SubmitAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Limiter != nil {
			allowed, retryAfter, _ := s.Limiter.Allow(r.Context(), "answers:"+clientIP(r), 1)
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				writeError(w, r, fmt.Errorf("too many submissions: %w", domain.ErrRateLimited), nil)
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
		if err := r.ParseMultipartForm(s.MaxUploadBytes); err != nil {
			writeError(w, r, fmt.Errorf("parse multipart form: %w", domain.ErrInvalidArgument), err.Error())
			return
		}

		questionIndex, err := strconv.Atoi(r.FormValue("question_index"))
		if err != nil {
			writeError(w, r, fmt.Errorf("question_index: %w", domain.ErrInvalidArgument), nil)
			return
		}
		tabSwitches := 0
		if v := r.FormValue("tab_switches"); v != "" {
			if tabSwitches, err = strconv.Atoi(v); err != nil {
				writeError(w, r, fmt.Errorf("tab_switches: %w", domain.ErrInvalidArgument), nil)
				return
			}
		}
		req := submitAnswerRequest{
			SessionID:     r.FormValue("session_id"),
			QuestionID:    r.FormValue("question_id"),
			QuestionIndex: questionIndex,
			TabSwitches:   tabSwitches,
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("validate: %w", domain.ErrInvalidArgument), err.Error())
			return
		}

		if err := s.authorizeSession(r, req.SessionID); err != nil {
			writeError(w, r, err, nil)
			return
		}

		file, header, err := r.FormFile("audio")
		if err != nil {
			writeError(w, r, fmt.Errorf("audio file is required: %w", domain.ErrInvalidArgument), nil)
			return
		}
		defer func() { _ = file.Close() }()
		audio, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("read audio: %w", domain.ErrInternal), nil)
			return
		}

		mime := mimetype.Detect(audio)
		if !isAudioMIME(mime.String()) {
			writeError(w, r, fmt.Errorf("unsupported content type %s for %s: %w", mime.String(), header.Filename, domain.ErrInvalidArgument), nil)
			return
		}

		out, err := s.Submit.Submit(r.Context(), usecase.SubmitAnswerInput{
			SessionID:     req.SessionID,
			QuestionID:    req.QuestionID,
			QuestionIndex: req.QuestionIndex,
			TabSwitches:   req.TabSwitches,
			Audio:         audio,
			MIMEType:      mime.String(),
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		resp := submitAnswerResponse{
			Success:        true,
			AnswerID:       out.AnswerID,
			Transcript:     out.Transcript,
			Scores:         out.Scores,
			Recommendation: out.Recommendation,
			AIError:        out.AIError,
		}
		if out.AIError == "" {
			avg := out.AverageScore
			resp.AverageScore = &avg
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type sessionResultResponse struct {
	SessionID        string                 `json:"session_id"`
	Status           string                 `json:"status"`
	TotalScore       *float64               `json:"total_score"`
	AIRecommendation *string                `json:"ai_recommendation"`
	AISummary        *string                `json:"ai_summary"`
	EvaluatedAnswers int                    `json:"evaluated_answers"`
	Answers          []answerResultResponse `json:"answers"`
}

type answerResultResponse struct {
	QuestionID     string         `json:"question_id"`
	QuestionIndex  int            `json:"question_index"`
	TabSwitches    int            `json:"tab_switches"`
	Transcript     *string        `json:"transcript"`
	Scores         map[string]int `json:"scores"`
	AverageScore   *int           `json:"average_score"`
	Strengths      []string       `json:"strengths"`
	Risks          []string       `json:"risks"`
	Recommendation *string        `json:"recommendation"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	EvaluatedAt    *time.Time     `json:"evaluated_at"`
}

// SessionResultHandler returns the session summary with all answers. The
// response carries an ETag derived from the session's last update; clients
// polling for evaluation progress get 304s until something changes.
func (s *Server) SessionResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "id")
		if sessionID == "" {
			writeError(w, r, fmt.Errorf("session id is required: %w", domain.ErrInvalidArgument), nil)
			return
		}
		if err := s.authorizeSession(r, sessionID); err != nil {
			writeError(w, r, err, nil)
			return
		}

		res, err := s.Results.Get(r.Context(), sessionID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		etag := resultETag(res)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}

		resp := sessionResultResponse{
			SessionID:        res.Session.ID,
			Status:           string(res.Session.Status),
			TotalScore:       res.Session.TotalScore,
			AIRecommendation: res.Session.AIRecommendation,
			AISummary:        res.Session.AISummary,
			EvaluatedAnswers: res.EvaluatedCount(),
			Answers:          make([]answerResultResponse, 0, len(res.Answers)),
		}
		for _, a := range res.Answers {
			resp.Answers = append(resp.Answers, answerResultResponse{
				QuestionID:     a.QuestionID,
				QuestionIndex:  a.QuestionIndex,
				TabSwitches:    a.TabSwitches,
				Transcript:     a.Transcript,
				Scores:         a.Scores,
				AverageScore:   a.AverageScore,
				Strengths:      a.Strengths,
				Risks:          a.Risks,
				Recommendation: a.Recommendation,
				SubmittedAt:    a.SubmittedAt,
				EvaluatedAt:    a.EvaluatedAt,
			})
		}
		w.Header().Set("ETag", etag)
		writeJSON(w, http.StatusOK, resp)
	}
}

// authorizeSession verifies the bearer interview token against the session's
// stored bcrypt hash.
func (s *Server) authorizeSession(r *http.Request, sessionID string) error {
	token := bearerToken(r)
	if token == "" {
		return fmt.Errorf("missing bearer token: %w", domain.ErrUnauthorized)
	}
	session, err := s.Sessions.Get(r.Context(), sessionID)
	if err != nil {
		return err
	}
	if session.TokenHash == "" {
		return fmt.Errorf("session has no access token: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(session.TokenHash), []byte(token)); err != nil {
		return fmt.Errorf("invalid session token: %w", domain.ErrUnauthorized)
	}
	return nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

func resultETag(res usecase.SessionResult) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d", res.Session.ID, res.Session.UpdatedAt.UTC().Format(time.RFC3339Nano), len(res.Answers), res.EvaluatedCount())
	if res.Session.TotalScore != nil {
		fmt.Fprintf(h, "|%.1f", *res.Session.TotalScore)
	}
	return `W/"` + hex.EncodeToString(h.Sum(nil)[:16]) + `"`
}

// isAudioMIME accepts audio containers, including webm recordings that sniff
// as video/webm when the browser muxes an audio-only track.
func isAudioMIME(m string) bool {
	return strings.HasPrefix(m, "audio/") || m == "video/webm" || m == "application/ogg"
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// HealthzHandler reports process liveness.
func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler runs each dependency check and reports 503 when any fails.
func ReadyzHandler(checks map[string]func(ctx domain.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		writeJSON(w, status, results)
	}
}
