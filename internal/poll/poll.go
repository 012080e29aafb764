package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrExhausted = errors.New("poll attempts exhausted")
	errNotReady  = errors.New("condition not met yet")
)

type CheckFunc func(context.Context) (done bool, err error)

// Until calls check every interval until it reports done, the context is canceled
// or maxAttempts checks were made. Errors returned by check count as a failed
// attempt and are reported alongside ErrExhausted.
func Until(c context.Context, interval time.Duration, maxAttempts uint64, check CheckFunc) error {
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	var lastErr error
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), maxAttempts-1),
		c,
	)
	err := backoff.Retry(func() error {
		done, err := check(c)
		if err != nil {
			lastErr = err
			return err
		}
		if !done {
			return errNotReady
		}
		return nil
	}, b)
	if err == nil {
		return nil
	}
	if cerr := c.Err(); cerr != nil {
		return cerr
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrExhausted, lastErr)
	}
	return ErrExhausted
}
