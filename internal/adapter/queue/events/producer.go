// Package events publishes domain events to Kafka-compatible brokers.
//
// Events are advisory: downstream dashboards and notification fan-out consume
// them, but answer persistence never depends on delivery. Publishing is
// fire-and-forget with async batching.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// TopicAnswerEvaluated carries one record per evaluated answer.
const TopicAnswerEvaluated = "interview.answer.evaluated"

const flushTimeout = 5 * time.Second

// Producer wraps a Kafka producer and implements domain.EventPublisher.
type Producer struct {
	client *kgo.Client
}

// NewProducer constructs a Producer against the given brokers.
func NewProducer(brokers []string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=events.NewProducer: no seed brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(5),
		kgo.ProducerBatchMaxBytes(1_000_000),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=events.NewProducer: %w", err)
	}
	slog.Info("event producer created", slog.Any("brokers", brokers))
	return &Producer{client: client}, nil
}

// PublishAnswerEvaluated emits one answer-evaluated record, keyed by session
// so per-session ordering holds. Delivery errors are logged, not returned to
// the submission path.
func (p *Producer) PublishAnswerEvaluated(ctx domain.Context, ev domain.AnswerEvaluatedEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("op=events.PublishAnswerEvaluated: marshal: %w", err)
	}
	record := &kgo.Record{
		Topic: TopicAnswerEvaluated,
		Key:   []byte(ev.SessionID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "session_id", Value: []byte(ev.SessionID)},
			{Key: "answer_id", Value: []byte(ev.AnswerID)},
		},
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			slog.Error("answer-evaluated event delivery failed",
				slog.String("session_id", ev.SessionID),
				slog.String("answer_id", ev.AnswerID),
				slog.Any("error", err))
			return
		}
		slog.Debug("answer-evaluated event delivered",
			slog.String("topic", r.Topic),
			slog.String("answer_id", ev.AnswerID))
	})
	return nil
}

// Ping checks broker reachability for the readiness probe.
func (p *Producer) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes pending records and closes the producer.
func (p *Producer) Close() error {
	if p.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := p.client.Flush(ctx); err != nil {
			slog.Warn("event producer flush failed", slog.Any("error", err))
		}
		p.client.Close()
	}
	return nil
}
