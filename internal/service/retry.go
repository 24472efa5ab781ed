package service

import (
	"context"
	"time"

	"quiz_engine/internal/util"
	"quiz_engine/pkg/logger"
	"quiz_engine/pkg/monitoring"

	"go.uber.org/zap"
)

// RetryPolicy 只用于幂等的读操作，写操作从不重试
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// retryRead 在瞬时错误时按指数退避重试，非瞬时错误立即返回
func retryRead[T any](ctx context.Context, op string, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !util.IsTransient(err) || attempt == attempts {
			break
		}

		monitoring.FetchRetries.WithLabelValues(op).Inc()
		logger.Log.Warn("transient read failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return zero, lastErr
}
