/**
 * @description
 * Retry helper for transient Postgres failures. Deadlocks and serialization
 * conflicts between the listing and detail writers are retried with jittered
 * backoff; every other error is returned as-is.
 *
 * @dependencies
 * - github.com/jackc/pgconn: Postgres error codes
 */

package db

import (
	"errors"
	"math/rand"
	"time"

	"github.com/jackc/pgconn"
)

const maxRetries = 5

// IsRetryable reports whether err is a transient Postgres conflict
// (deadlock 40P01 or serialization failure 40001).
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40P01" || pgErr.Code == "40001"
	}
	return false
}

// WithRetry runs fn up to maxRetries times, backing off between retryable
// failures. The last error is returned when all attempts fail.
func WithRetry(fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		backoff := time.Duration(attempt*100+rand.Intn(100)) * time.Millisecond
		time.Sleep(backoff)
	}
	return err
}
