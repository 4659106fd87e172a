package erp

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	lockRetryInterval = 3 * time.Second
	lockRetryAttempts = 20
)

// withLockRetry runs op, retrying lock and not-yet-committed errors with a
// constant backoff until the editing user releases the object or the ERP
// commits. Any other error fails immediately.
func withLockRetry(log *zap.Logger, op func() error) error {
	policy := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(lockRetryInterval), lockRetryAttempts)

	return backoff.RetryNotify(
		func() error {
			err := op()
			if err != nil && !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		policy,
		func(err error, wait time.Duration) {
			log.Warn("object locked in the ERP, retrying",
				zap.Error(err), zap.Duration("wait", wait))
		},
	)
}
