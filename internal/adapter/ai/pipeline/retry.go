package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// Policy bounds retries of a single provider. Delays grow linearly: the wait
// before attempt n+1 is Delay*n.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy matches the provider contract: two attempts, one second base
// delay.
var DefaultPolicy = Policy{MaxAttempts: 2, Delay: time.Second}

// linearBackOff implements backoff.BackOff with a linearly growing interval.
type linearBackOff struct {
	delay time.Duration
	n     int64
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.n++
	return l.delay * time.Duration(l.n)
}

func (l *linearBackOff) Reset() { l.n = 0 }

// Do runs op up to p.MaxAttempts times with linear backoff, stopping early on
// context cancellation or a permanent (invalid input) error. notify, when
// non-nil, fires once per retry.
func Do(ctx context.Context, p Policy, op func() error, notify func(err error, next time.Duration)) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{delay: p.Delay}, uint64(p.MaxAttempts-1)),
		ctx,
	)
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		// Bad input never gets better on retry.
		if errors.Is(err, domain.ErrInvalidArgument) {
			return backoff.Permanent(err)
		}
		return err
	}
	if notify == nil {
		notify = func(error, time.Duration) {}
	}
	return backoff.RetryNotify(wrapped, b, notify)
}
