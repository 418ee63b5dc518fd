package roulette

import (
	"context"
	"fmt"
	"time"
)

// retrier runs an operation with exponential backoff while its error stays retryable
type retrier struct {
	attempts  int
	baseDelay time.Duration
	logger    Logger
}

func newRetrier(attempts int, baseDelay time.Duration, logger Logger) *retrier {
	if attempts < 0 {
		attempts = 0
	}
	if baseDelay <= 0 {
		baseDelay = DefaultRetryInterval
	}
	return &retrier{attempts: attempts, baseDelay: baseDelay, logger: orDefaultLogger(logger)}
}

// backoff returns baseDelay * 2^(attempt-1), capped at MaxRetryDelay
func (r *retrier) backoff(attempt int) time.Duration {
	delay := time.Duration(1<<(attempt-1)) * r.baseDelay
	if delay > MaxRetryDelay || delay <= 0 {
		delay = MaxRetryDelay
	}
	return delay
}

func (r *retrier) execute(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	startTime := time.Now()

	for attempt := 0; attempt <= r.attempts; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt)
			r.logger.Debug("Retrying %s (attempt %d/%d) after %v, total elapsed: %v",
				operation, attempt, r.attempts, delay, time.Since(startTime))

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry for %s after %v (attempt %d/%d): %w",
					operation, time.Since(startTime), attempt, r.attempts+1, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				r.logger.Info("%s succeeded after %d retries (total time: %v)", operation, attempt, time.Since(startTime))
			}
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) {
			r.logger.Debug("Non-retryable error for %s (attempt %d): %v", operation, attempt+1, err)
			break
		}
		if attempt == r.attempts {
			r.logger.Error("Final attempt for %s failed (attempt %d/%d): %v", operation, attempt+1, r.attempts+1, err)
		}
	}

	if IsRetryableError(lastErr) {
		// 重试耗尽: 连接层故障
		return ErrRedisConnectionFailed.
			WithOperation(operation).
			WithSeverity(SeverityHigh).
			WithDetails(fmt.Sprintf("gave up after %d attempts in %v", r.attempts+1, time.Since(startTime))).
			WithCause(lastErr)
	}
	return fmt.Errorf("%s failed after %v: %w", operation, time.Since(startTime), lastErr)
}
