package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/tenantauth/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitFrom_OnFailure(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime, false)

	elapsed := time.Since(startTime)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestTimingDelay_WaitFrom_OnSuccess_NoDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime, true)

	assert.Less(t, time.Since(startTime), 10*time.Millisecond)
}

func TestTimingDelay_WaitFrom_OnSuccess_WithDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 100, DelayOnSuccess: true})
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime, true)

	assert.GreaterOrEqual(t, time.Since(startTime), 100*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AdjustsForElapsedTime(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 100})
	startTime := time.Now()

	// Simulate some work already done
	time.Sleep(50 * time.Millisecond)

	timing.WaitFrom(context.Background(), startTime, false)

	elapsed := time.Since(startTime)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 140*time.Millisecond)
}

func TestTimingDelay_WaitFrom_NoWaitIfAlreadyExceeded(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 50})
	startTime := time.Now()

	time.Sleep(100 * time.Millisecond)

	timing.WaitFrom(context.Background(), startTime, false)

	assert.Less(t, time.Since(startTime), 130*time.Millisecond)
}

func TestTimingDelay_WaitFrom_StopsOnCancel(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 5000})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	startTime := time.Now()
	timing.WaitFrom(ctx, startTime, false)

	assert.Less(t, time.Since(startTime), 100*time.Millisecond)
}

func TestTimingDelay_NilIsNoop(t *testing.T) {
	var timing *auth.TimingDelay
	startTime := time.Now()

	timing.WaitFrom(context.Background(), startTime, false)

	assert.Less(t, time.Since(startTime), 10*time.Millisecond)
}
