package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5/pgconn"
)

// RetryPolicy retries transient store failures with exponential backoff and
// jitter. It belongs to the repository layer; services never retry.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
	// OnRetry is called before each new attempt. Optional.
	OnRetry func(op string, attempt uint, err error)
}

var DefaultRetryPolicy = RetryPolicy{
	Attempts: 3,
	Delay:    50 * time.Millisecond,
	MaxDelay: 500 * time.Millisecond,
}

// NoRetry runs each operation exactly once.
var NoRetry = RetryPolicy{Attempts: 1}

// Do runs fn until it succeeds, returns a non-transient error, runs out of
// attempts or ctx is done. The last error is returned unwrapped.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	opts := []retry.Option{
		retry.Attempts(attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(p.Delay),
		retry.RetryIf(IsTransient),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	}
	if p.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(p.MaxDelay))
	}
	if p.Delay > 0 {
		opts = append(opts, retry.MaxJitter(p.Delay/2))
	}
	if p.OnRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			p.OnRetry(op, n+1, err)
		}))
	}

	return retry.Do(fn, opts...)
}

// IsTransient reports whether err is worth retrying: a connection-level
// postgres failure that never reached the server, a postgres serialization or
// deadlock failure, or a sqlite lock contention error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "57P03":
			// serialization_failure, deadlock_detected, cannot_connect_now
			return true
		}
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	return isTransientSQLiteErr(err)
}

func isTransientSQLiteErr(err error) bool {
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"IOERR_SHORT_READ",
		"database is locked",
		"database table is locked",
		"(5)",
		"(6)",
		"(522)",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
