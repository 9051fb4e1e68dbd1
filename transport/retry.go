package transport

import (
	"context"
	"fmt"
	"time"
)

// RetryOptions bound the inline retry loop around a publish. The loop
// blocks the caller for its duration; an exhausted attempt budget is
// reported as an error and the payload is abandoned for this cycle.
type RetryOptions struct {
	MaxAttempts int
	MinInterval time.Duration
	MaxInterval time.Duration
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts: 3,
		MinInterval: time.Second,
		MaxInterval: 30 * time.Second,
	}
}

// RetryPublisher wraps a Publisher with a bounded retry loop and
// exponential backoff between attempts.
type RetryPublisher struct {
	publisher Publisher
	opts      RetryOptions
}

func NewRetryPublisher(p Publisher, opts RetryOptions) *RetryPublisher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = time.Second
	}
	if opts.MaxInterval < opts.MinInterval {
		opts.MaxInterval = opts.MinInterval
	}
	return &RetryPublisher{publisher: p, opts: opts}
}

func (r *RetryPublisher) Publish(ctx context.Context, payload []byte) error {
	interval := r.opts.MinInterval
	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		lastErr = r.publisher.Publish(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if attempt == r.opts.MaxAttempts {
			break
		}
		log.Warnf("Publish attempt %d/%d failed: %v. Retrying in %s.",
			attempt, r.opts.MaxAttempts, lastErr, interval)
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
		interval *= 2
		if interval > r.opts.MaxInterval {
			interval = r.opts.MaxInterval
		}
	}
	return fmt.Errorf("publish failed after %d attempts: %v", r.opts.MaxAttempts, lastErr)
}
