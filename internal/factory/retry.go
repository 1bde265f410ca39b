package factory

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// LockWait calls Lock until it succeeds, fails with an error other than
// ErrRetryLock, b gives up, or ctx is done.
func (f *Factory) LockWait(ctx context.Context, key string, b backoff.BackOff) error {
	attempts := 0
	op := func() error {
		attempts++
		err := f.Lock(key)
		if err == nil || errors.Is(err, ErrRetryLock) {
			return err
		}
		return backoff.Permanent(err)
	}
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if err != nil {
		f.log.WithError(err).WithField("dataset", key).WithField("attempts", attempts).Debug("lock wait gave up")
	}
	return err
}
