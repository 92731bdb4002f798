package draftstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// maxAttempts bounds the calls made for one draft operation.
const maxAttempts = 3

// TransientError is a backend answer worth retrying: 429 or a 5xx.
type TransientError struct {
	Op     string
	Path   string
	Status int
	Body   string
}

func (e *TransientError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s: transient status %d: %s", e.Op, e.Path, e.Status, body)
}

// IsTransient reports whether err wraps a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// retryDelay doubles from 250ms up to 4s and adds up to 50% jitter.
func retryDelay(attempt int) time.Duration {
	d := min(250*time.Millisecond<<attempt, 4*time.Second)
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}

func withRetry(ctx context.Context, delay func(int) time.Duration, fn func() error) error {
	var err error
	for attempt := range maxAttempts {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		t := time.NewTimer(delay(attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return err
}
