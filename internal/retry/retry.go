// Package retry is a bounded retry combinator shared by call sites that talk to
// the database or the cache and may hit transient failures.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type options struct {
	maxAttempts uint64
	backOff     backoff.BackOff
	notify      func(err error, next time.Duration)
}

type Option func(*options)

func WithMaxAttempts(n uint64) Option {
	return func(o *options) {
		o.maxAttempts = n
	}
}

func WithBackOff(b backoff.BackOff) Option {
	return func(o *options) {
		o.backOff = b
	}
}

func WithExponentialBackOff(initial, max time.Duration) Option {
	return func(o *options) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = max
		o.backOff = b
	}
}

func WithNotify(fn func(err error, next time.Duration)) Option {
	return func(o *options) {
		o.notify = fn
	}
}

// Permanent stops the retry loop and makes Do return err as is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a Permanent error, the context is done or
// maxAttempts (default 3) attempts were made. The last error is returned.
func Do[T any](c context.Context, op func(context.Context) (T, error), opts ...Option) (T, error) {
	o := options{maxAttempts: 3, backOff: backoff.NewExponentialBackOff()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxAttempts == 0 {
		o.maxAttempts = 1
	}

	b := backoff.WithContext(backoff.WithMaxRetries(o.backOff, o.maxAttempts-1), c)
	return backoff.RetryNotifyWithData(
		func() (T, error) {
			return op(c)
		},
		b,
		o.notify,
	)
}
