// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package deployment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollImmediateSuccess(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	calls := 0

	err := RetryPolicy{Interval: time.Second, Timeout: time.Minute, Clock: clock}.Poll(context.Background(), func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, clock.sleeps)
}

func TestPollTimeout(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	start := clock.Now()
	calls := 0

	err := RetryPolicy{Interval: 10 * time.Second, Timeout: 25 * time.Second, Clock: clock}.Poll(context.Background(), func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	require.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, clock.sleeps)
	assert.Equal(t, start.Add(20*time.Second), clock.Now())
}

func TestPollCheckError(t *testing.T) {
	t.Parallel()

	err := RetryPolicy{Interval: time.Second, Timeout: time.Minute, Clock: newFakeClock()}.Poll(context.Background(), func(context.Context) (bool, error) {
		return false, errBoom
	})
	assert.ErrorIs(t, err, errBoom)
}

func TestPollCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryPolicy{Interval: time.Second, Timeout: time.Minute, Clock: newFakeClock()}.Poll(ctx, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollInvalidInterval(t *testing.T) {
	t.Parallel()

	err := RetryPolicy{Timeout: time.Minute}.Poll(context.Background(), func(context.Context) (bool, error) {
		return true, nil
	})
	assert.Error(t, err)
}

func TestRealClockSleepHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, RealClock().Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, RealClock().Sleep(context.Background(), time.Millisecond))
}
