// Package groq implements transcription and evaluation against the Groq API
// through its OpenAI-compatible surface.
package groq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// minAudioBytes guards against empty or truncated uploads. Anything smaller
// than this cannot contain a decodable audio frame.
const minAudioBytes = 100

// maxTranscriptTokens bounds the transcript portion of the evaluation prompt.
const maxTranscriptTokens = 6000

// Config holds Groq client configuration.
type Config struct {
	APIKey       string
	BaseURL      string
	STTModel     string
	EvalModel    string
	EvalFallback string
	EvalTimeout  time.Duration
	MaxTokens    int
	Temperature  float32
}

// Client calls Groq for both pipeline stages. It implements
// domain.TranscriptionProvider and domain.EvaluationProvider.
type Client struct {
	api     *openai.Client
	cfg     Config
	counter *tokencount.Counter
}

// NewClient builds a Groq client. BaseURL defaults to the public Groq
// OpenAI-compatible endpoint.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("op=groq.NewClient: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.STTModel == "" {
		cfg.STTModel = "whisper-large-v3-turbo"
	}
	if cfg.EvalModel == "" {
		cfg.EvalModel = "llama-3.3-70b-versatile"
	}
	if cfg.EvalFallback == "" {
		cfg.EvalFallback = "llama-3.1-8b-instant"
	}
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = 15 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		cfg:     cfg,
		counter: tokencount.NewCounter(),
	}, nil
}

func (c *Client) Name() string { return "groq" }

// Transcribe sends answer audio to whisper and returns the transcript.
// An empty transcript is a soft failure so the caller can retry or fail over.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (domain.TranscriptionResult, error) {
	if len(audio) < minAudioBytes {
		return domain.TranscriptionResult{}, fmt.Errorf("op=groq.Transcribe: audio too small (%d bytes): %w", len(audio), domain.ErrInvalidArgument)
	}

	tr := otel.Tracer("adapter.ai.groq")
	ctx, span := tr.Start(ctx, "groq.transcribe")
	span.SetAttributes(attribute.String("model", c.cfg.STTModel), attribute.Int("audio_bytes", len(audio)))
	defer span.End()

	start := time.Now()
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.STTModel,
		Reader:   bytes.NewReader(audio),
		FilePath: "answer" + extForMIME(mimeType),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	latency := time.Since(start)
	observability.ObserveAIRequest("groq", "transcribe", latency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.TranscriptionResult{}, fmt.Errorf("op=groq.Transcribe: %w", classify(err))
	}

	transcript := strings.TrimSpace(resp.Text)
	if transcript == "" {
		return domain.TranscriptionResult{}, fmt.Errorf("op=groq.Transcribe: %w", domain.ErrEmptyResult)
	}

	return domain.TranscriptionResult{
		Transcript:      transcript,
		Language:        resp.Language,
		DurationSeconds: float64(resp.Duration),
		Provider:        "groq",
		Model:           c.cfg.STTModel,
		LatencyMS:       latency.Milliseconds(),
	}, nil
}

// Evaluate scores a transcript with the primary llama model, falling back to
// the smaller model when the primary fails or returns an unusable response.
// Each model call is bounded by its own timeout.
func (c *Client) Evaluate(ctx context.Context, transcript, questionText string, rubric map[string]string) (domain.EvaluationResult, error) {
	tr := otel.Tracer("adapter.ai.groq")
	ctx, span := tr.Start(ctx, "groq.evaluate")
	defer span.End()

	transcript = c.counter.Truncate(transcript, c.cfg.EvalModel, maxTranscriptTokens)
	prompt := ai.BuildEvaluationPrompt(questionText, transcript, rubric)

	var lastErr error
	for _, model := range []string{c.cfg.EvalModel, c.cfg.EvalFallback} {
		res, err := c.evaluateWithModel(ctx, model, prompt, transcript)
		if err == nil {
			span.SetAttributes(attribute.String("model", model))
			return res, nil
		}
		lastErr = err
		slog.Warn("groq evaluation model failed",
			slog.String("model", model),
			slog.Any("error", err))
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return domain.EvaluationResult{}, fmt.Errorf("op=groq.Evaluate: %w", lastErr)
}

func (c *Client) evaluateWithModel(ctx context.Context, model, prompt, transcript string) (domain.EvaluationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.EvalTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a strict technical interview evaluator. Respond with JSON only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	latency := time.Since(start)
	observability.ObserveAIRequest("groq", "evaluate", latency)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			slog.Error("TIMEOUT groq evaluation call exceeded deadline",
				slog.String("model", model),
				slog.Duration("timeout", c.cfg.EvalTimeout))
			return domain.EvaluationResult{}, fmt.Errorf("model %s: %w", model, domain.ErrUpstreamTimeout)
		}
		return domain.EvaluationResult{}, fmt.Errorf("model %s: %w", model, classify(err))
	}
	if len(resp.Choices) == 0 {
		return domain.EvaluationResult{}, fmt.Errorf("model %s: no choices: %w", model, domain.ErrEmptyResult)
	}

	raw, ok := ai.ExtractEvaluationJSON(resp.Choices[0].Message.Content)
	if !ok {
		return domain.EvaluationResult{}, fmt.Errorf("model %s: unparseable response: %w", model, domain.ErrEmptyResult)
	}
	res := ai.ParseEvaluation(raw, transcript, "groq", model, latency.Milliseconds())
	if len(res.Score) == 0 || res.Summary == "" {
		return domain.EvaluationResult{}, fmt.Errorf("model %s: incomplete evaluation: %w", model, domain.ErrEmptyResult)
	}
	return res, nil
}

// classify maps API errors onto the domain error taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return fmt.Errorf("%v: %w", err, domain.ErrUpstreamRateLimit)
		case 408, 504:
			return fmt.Errorf("%v: %w", err, domain.ErrUpstreamTimeout)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, domain.ErrUpstreamTimeout)
	}
	return err
}

func extForMIME(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return ".webm"
	case strings.Contains(mimeType, "ogg"):
		return ".ogg"
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return ".m4a"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	default:
		return ".webm"
	}
}
