package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/infrastructure/logger"
)

const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"

	// Class 08: the connection dropped before the statement ran.
	pgErrClassConnection = "08"
)

// RetrierConfig tunes the backoff of a Retrier. Zero fields take defaults.
type RetrierConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// Retrier implements usecase.Retrier. A reconciliation batch is re-run when
// Postgres aborts it for lock contention or a dropped connection; every
// other error is returned as is.
type Retrier struct {
	cfg    RetrierConfig
	logger zerolog.Logger
}

// NewRetrier creates a Retrier with the default reconciliation backoff.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithConfig(RetrierConfig{}, logger)
}

func NewRetrierWithConfig(cfg RetrierConfig, logger zerolog.Logger) *Retrier {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = time.Second
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 10 * time.Second
	}
	return &Retrier{cfg: cfg, logger: logger}
}

// Retry runs operation until it succeeds, fails permanently, runs out of
// retries or ctx is done.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.cfg.InitialInterval
	eb.MaxInterval = r.cfg.MaxInterval
	eb.MaxElapsedTime = r.cfg.MaxElapsedTime

	b := backoff.WithContext(backoff.WithMaxRetries(eb, r.cfg.MaxRetries), ctx)

	l := logger.FromContext(ctx, r.logger)
	attempt := 0

	return backoff.RetryNotify(func() error {
		attempt++
		err := operation()
		if err != nil && !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		l.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("retryable database error, retrying")
	})
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
			return true
		}
		return strings.HasPrefix(pgErr.Code, pgErrClassConnection)
	}
	return pgconn.SafeToRetry(err)
}
