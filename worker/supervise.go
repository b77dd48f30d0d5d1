package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/glimte/paperless-go/reliability"
)

var errLoopEnded = errors.New("worker: loop ended")

// Loop is one run of a worker over a freshly created consumer
type Loop func(ctx context.Context) error

// Supervise runs loop and restarts it with backoff whenever it ends while
// ctx is still live, for example because the broker closed its channel.
// It returns nil once ctx is done, or the last error if the policy gives up.
func Supervise(ctx context.Context, name string, loop Loop, policy reliability.RetryPolicy, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = reliability.NewExponentialBackoff(time.Second, time.Minute, 2.0, -1)
	}
	logger = logger.With("worker", name)

	err := reliability.Retry(ctx, policy, func() error {
		err := loop(ctx)
		if ctx.Err() != nil {
			return reliability.Permanent(ctx.Err())
		}
		if err == nil {
			err = errLoopEnded
		}
		logger.Warn("worker loop ended, restarting", "error", err)
		return err
	})

	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		logger.Error("worker gave up", "error", err)
	}
	return err
}
