// Package gemini implements transcription and evaluation against the Google
// Gemini API using inline audio understanding.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

const minAudioBytes = 100

// NoSpeechMarker is what the model is told to return when the recording holds
// no intelligible speech. It is a valid transcript, not a failure.
const NoSpeechMarker = "[No clear speech detected]"

const transcribeInstruction = `Transcribe this audio recording of an interview answer verbatim.
Return ONLY the spoken words, with normal punctuation. Do not summarize,
translate, or add commentary. If there is no clear speech, return exactly:
` + NoSpeechMarker

// Config holds Gemini client configuration. Model lists are tried in order
// until one produces a usable result.
type Config struct {
	APIKey     string
	STTModels  []string
	EvalModels []string
}

// Client calls Gemini for both pipeline stages. It implements
// domain.TranscriptionProvider and domain.EvaluationProvider.
type Client struct {
	api *genai.Client
	cfg Config
}

// NewClient builds a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("op=gemini.NewClient: api key is required")
	}
	if len(cfg.STTModels) == 0 {
		cfg.STTModels = []string{"gemini-2.0-flash", "gemini-1.5-flash"}
	}
	if len(cfg.EvalModels) == 0 {
		cfg.EvalModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}
	}
	api, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("op=gemini.NewClient: %w", err)
	}
	return &Client{api: api, cfg: cfg}, nil
}

func (c *Client) Name() string { return "gemini" }

// Close releases the underlying API client.
func (c *Client) Close() error { return c.api.Close() }

// Transcribe sends the audio inline and asks for a verbatim transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (domain.TranscriptionResult, error) {
	if len(audio) < minAudioBytes {
		return domain.TranscriptionResult{}, fmt.Errorf("op=gemini.Transcribe: audio too small (%d bytes): %w", len(audio), domain.ErrInvalidArgument)
	}

	tr := otel.Tracer("adapter.ai.gemini")
	ctx, span := tr.Start(ctx, "gemini.transcribe")
	span.SetAttributes(attribute.Int("audio_bytes", len(audio)))
	defer span.End()

	var lastErr error
	for _, modelName := range c.cfg.STTModels {
		start := time.Now()
		text, err := c.generate(ctx, modelName, "",
			genai.Blob{MIMEType: mimeType, Data: audio},
			genai.Text(transcribeInstruction),
		)
		latency := time.Since(start)
		observability.ObserveAIRequest("gemini", "transcribe", latency)
		if err != nil {
			lastErr = err
			slog.Warn("gemini transcription model failed",
				slog.String("model", modelName),
				slog.Any("error", err))
			continue
		}
		transcript := strings.TrimSpace(text)
		if transcript == "" {
			lastErr = fmt.Errorf("model %s: %w", modelName, domain.ErrEmptyResult)
			continue
		}
		span.SetAttributes(attribute.String("model", modelName))
		return domain.TranscriptionResult{
			Transcript: transcript,
			Provider:   "gemini",
			Model:      modelName,
			LatencyMS:  latency.Milliseconds(),
		}, nil
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return domain.TranscriptionResult{}, fmt.Errorf("op=gemini.Transcribe: %w", lastErr)
}

// Evaluate scores a transcript, walking the model list until one returns a
// complete evaluation.
func (c *Client) Evaluate(ctx context.Context, transcript, questionText string, rubric map[string]string) (domain.EvaluationResult, error) {
	tr := otel.Tracer("adapter.ai.gemini")
	ctx, span := tr.Start(ctx, "gemini.evaluate")
	defer span.End()

	prompt := ai.BuildEvaluationPrompt(questionText, transcript, rubric)

	var lastErr error
	for _, modelName := range c.cfg.EvalModels {
		start := time.Now()
		text, err := c.generate(ctx, modelName, "application/json", genai.Text(prompt))
		latency := time.Since(start)
		observability.ObserveAIRequest("gemini", "evaluate", latency)
		if err != nil {
			lastErr = err
			slog.Warn("gemini evaluation model failed",
				slog.String("model", modelName),
				slog.Any("error", err))
			continue
		}
		raw, ok := ai.ExtractEvaluationJSON(text)
		if !ok {
			lastErr = fmt.Errorf("model %s: unparseable response: %w", modelName, domain.ErrEmptyResult)
			continue
		}
		res := ai.ParseEvaluation(raw, transcript, "gemini", modelName, latency.Milliseconds())
		if len(res.Score) == 0 || res.Summary == "" {
			lastErr = fmt.Errorf("model %s: incomplete evaluation: %w", modelName, domain.ErrEmptyResult)
			continue
		}
		span.SetAttributes(attribute.String("model", modelName))
		return res, nil
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return domain.EvaluationResult{}, fmt.Errorf("op=gemini.Evaluate: %w", lastErr)
}

// generate runs one GenerateContent call and concatenates the text parts of
// the first candidate.
func (c *Client) generate(ctx context.Context, modelName, responseMIME string, parts ...genai.Part) (string, error) {
	model := c.api.GenerativeModel(modelName)
	if responseMIME != "" {
		model.GenerationConfig.ResponseMIMEType = responseMIME
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", modelName, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model %s: no candidates: %w", modelName, domain.ErrEmptyResult)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}
