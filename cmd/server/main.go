// Command server starts the AI interview evaluator HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/groq"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/pipeline"
	httpserver "github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/queue/events"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/storage"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/app"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/config"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/usecase"
)

func main() {
	seedPath := flag.String("seed", "", "path to a YAML question bank to load before serving")
	flag.Parse()

	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	answerRepo := postgres.NewAnswerRepo(pool)
	sessionRepo := postgres.NewSessionRepo(pool)
	questionRepo := postgres.NewQuestionRepo(pool)

	if *seedPath != "" {
		if err := seedQuestionsFromYAML(ctx, questionRepo, *seedPath); err != nil {
			slog.Error("question seeding failed", slog.String("path", *seedPath), slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("question bank seeded", slog.String("path", *seedPath))
	}

	audioStore, err := storage.NewLocalAudioStore(cfg.AudioDir)
	if err != nil {
		slog.Error("audio store init failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Provider chain: Groq first, Gemini as fallback. A provider with no
	// credentials is left out of the chain instead of failing at call time.
	var transcribers []domain.TranscriptionProvider
	var evaluators []domain.EvaluationProvider
	if cfg.GroqAPIKey != "" {
		groqClient, err := groq.NewClient(groq.Config{
			APIKey:       cfg.GroqAPIKey,
			BaseURL:      cfg.GroqBaseURL,
			STTModel:     cfg.GroqSTTModel,
			EvalModel:    cfg.GroqEvalModel,
			EvalFallback: cfg.GroqEvalFallback,
			EvalTimeout:  cfg.GroqEvalTimeout,
		})
		if err != nil {
			slog.Error("groq client init failed", slog.Any("error", err))
			os.Exit(1)
		}
		transcribers = append(transcribers, groqClient)
		evaluators = append(evaluators, groqClient)
	}
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:     cfg.GeminiAPIKey,
			STTModels:  cfg.GeminiSTTModels,
			EvalModels: cfg.GeminiEvalModels,
		})
		if err != nil {
			slog.Error("gemini client init failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = geminiClient.Close() }()
		transcribers = append(transcribers, geminiClient)
		evaluators = append(evaluators, geminiClient)
	}
	if len(transcribers) == 0 {
		slog.Warn("no AI provider credentials configured; answers will be stored unevaluated")
	}

	pl := pipeline.New(transcribers, evaluators, pipeline.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		Delay:       cfg.RetryDelay,
	})

	var publisher domain.EventPublisher
	checks := app.ReadyChecks{
		"db": func(ctx domain.Context) error { return pool.Ping(ctx) },
	}
	if cfg.EventsEnabled() {
		producer, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			slog.Error("event producer connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = producer.Close() }()
		publisher = producer
		checks["kafka"] = producer.Ping
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rdb.Close() }()
	checks["redis"] = func(ctx domain.Context) error { return rdb.Ping(ctx).Err() }
	limiter := ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
		"answers": ratelimiter.NewBucketConfigFromPerMinute(cfg.AnswerRateLimitPerMin),
	})

	submitSvc := usecase.NewSubmitAnswerService(answerRepo, sessionRepo, questionRepo, audioStore, pl, publisher)
	resultSvc := usecase.NewSessionResultService(sessionRepo, answerRepo)
	srv := httpserver.NewServer(submitSvc, resultSvc, sessionRepo, limiter, cfg.MaxUploadMB<<20)

	handler := app.BuildRouter(cfg, srv, checks)
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		slog.Info("http server listening", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down", slog.Duration("grace", cfg.ServerShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
