package resilience

import (
	"context"
	"fmt"
	"time"
)

// Call runs fn through cb with ctx bounded by timeout and returns fn's
// result. A nil cb skips the breaker and a zero timeout leaves ctx as is.
// fn must honor ctx; Call does not abandon it. When the deadline, not the
// caller, ended the call, the error wraps context.DeadlineExceeded.
func Call[T any](ctx context.Context, cb *CircuitBreaker, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	attempt := func() error {
		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		v, err := fn(callCtx)
		if err != nil {
			if ctx.Err() == nil && callCtx.Err() != nil {
				return fmt.Errorf("%w after %v: %v", context.DeadlineExceeded, timeout, err)
			}
			return err
		}
		out = v
		return nil
	}

	var err error
	if cb == nil {
		err = attempt()
	} else {
		err = cb.Execute(attempt)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
