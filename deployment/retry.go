// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrPollTimeout is returned by RetryPolicy.Poll when the condition did not hold before the deadline.
var ErrPollTimeout = errors.New("polling timed out")

// Clock abstracts time so polling can be tested without real sleeps.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, in which case it returns the context error.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy re-checks a condition at a fixed interval until it holds, the deadline passes
// or the context is cancelled.
type RetryPolicy struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    Clock
}

// Poll calls check until it reports done. The first check runs immediately.
// An error from check stops polling and is returned as is.
func (p RetryPolicy) Poll(ctx context.Context, check func(context.Context) (bool, error)) error {
	if p.Interval <= 0 {
		return fmt.Errorf("deployment.RetryPolicy.Poll: interval must be positive, got %s", p.Interval)
	}

	clock := p.Clock
	if clock == nil {
		clock = RealClock()
	}

	deadline := clock.Now().Add(p.Timeout)
	backoff := retry.WithMaxRetries(p.maxRetries(), retry.NewConstant(p.Interval))

	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}

		if done {
			return nil
		}

		next, stop := backoff.Next()
		if stop || clock.Now().Add(next).After(deadline) {
			return ErrPollTimeout
		}

		if err := clock.Sleep(ctx, next); err != nil {
			return fmt.Errorf("deployment.RetryPolicy.Poll: %w", err)
		}
	}
}

// maxRetries is the number of sleeps that fit in the timeout.
func (p RetryPolicy) maxRetries() uint64 {
	if p.Timeout <= 0 {
		return 0
	}

	n := p.Timeout / p.Interval
	if p.Timeout%p.Interval != 0 {
		n++
	}

	return uint64(n)
}
