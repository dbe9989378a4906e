// Package supervisor restarts a long running task with exponential backoff.
package supervisor

import (
	"errors"
	"github.com/cenkalti/backoff/v4"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"golang.org/x/net/context"
	"time"
)

type Options struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	RandomizationFactor float64
	MaxRetries          uint64
	// Fatal errors end the loop without a retry.
	Fatal []error
}

func DefaultOptions() Options {
	return Options{
		InitialInterval:     2 * time.Second,
		MaxInterval:         120 * time.Second,
		RandomizationFactor: 0.5,
		MaxRetries:          10,
	}
}

func (o Options) fatal(err error) bool {
	for _, target := range o.Fatal {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Run calls task until it returns nil, returns a fatal error, ctx is done or
// the retries run out. The last error is returned.
func Run(ctx context.Context, name string, options Options, task func(context.Context) error) error {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = options.InitialInterval
	exponential.MaxInterval = options.MaxInterval
	exponential.RandomizationFactor = options.RandomizationFactor
	exponential.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exponential, options.MaxRetries), ctx)

	operation := func() error {
		err := task(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		if options.fatal(err) {
			dlog.Error("fatal error, not restarting", "task", name, dlog.Err(err))
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		dlog.Error("task failed, restarting", "task", name, "in", wait.String(), dlog.Err(err))
	}
	err := backoff.RetryNotify(operation, policy, notify)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
