package service

import (
	"context"
	"errors"
	"time"

	"group-vault/internal/core/ports"
	"group-vault/pkg/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// retryBackoff is multiplied by the attempt number between retries.
var retryBackoff = 5 * time.Millisecond

// withRetry re-runs fn while it fails on a stale row version or a serialization
// abort. Business errors return on the first attempt. Once maxAttempts is
// spent the last error is surfaced as a SYS_002 conflict.
func withRetry[T any](ctx context.Context, maxAttempts int, log zerolog.Logger, op string, fn func() (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		if !isRetryable(err) {
			return zero, err
		}
		lastErr = err
		log.Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("contention, retrying")

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, apperror.InternalError(ctx.Err())
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}

	log.Warn().Err(lastErr).Str("op", op).Int("attempts", maxAttempts).Msg("contention retries exhausted")
	return zero, apperror.ErrConcurrentModification(lastErr)
}

// isRetryable reports whether err is a scheduling artifact rather than a semantic failure.
func isRetryable(err error) bool {
	if errors.Is(err, ports.ErrVersionConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// isBusinessFailure reports whether err is a typed rejection that a retry cannot fix.
func isBusinessFailure(err error) bool {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind != apperror.KindInternal && appErr.Kind != apperror.KindConflict
}
