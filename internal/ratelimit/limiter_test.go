package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterUnlimitedWhenZero(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 100; i++ {
		if wait := l.Acquire(); wait != 0 {
			t.Fatalf("rpm=0 should never wait, got %v", wait)
		}
	}
}

func TestLimiterAdmitsUpToRPMWithoutWaiting(t *testing.T) {
	l := NewLimiter(3)
	for i := 0; i < 3; i++ {
		if wait := l.Acquire(); wait != 0 {
			t.Fatalf("acquire %d: expected no wait, got %v", i, wait)
		}
	}
	if wait := l.WaitTime(); wait <= 0 {
		t.Fatalf("expected positive wait after exhausting window, got %v", wait)
	}
}

func TestLimiterPurgesExpiredTimestamps(t *testing.T) {
	l := NewLimiter(1)
	l.timestamps = append(l.timestamps, time.Now().Add(-2*time.Minute))
	if wait := l.WaitTime(); wait != 0 {
		t.Fatalf("expired timestamp should not count against window, got wait %v", wait)
	}
}

func TestLimiterAcquireAsyncHonorsCancellation(t *testing.T) {
	l := NewLimiter(1)
	l.Acquire() // exhaust the single slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.AcquireAsync(ctx)
	if err == nil {
		t.Fatalf("expected context cancellation error")
	}
}

func TestRegistryGetOrCreateReusesLimiter(t *testing.T) {
	r := NewRegistry()
	a := r.GetOrCreate(1, 5)
	b := r.GetOrCreate(1, 5)
	if a != b {
		t.Fatalf("expected same limiter instance for unchanged rpm")
	}
}

func TestRegistryGetOrCreateDropsStateOnReconfigure(t *testing.T) {
	r := NewRegistry()
	a := r.GetOrCreate(1, 1)
	a.Acquire()
	if wait := a.WaitTime(); wait <= 0 {
		t.Fatalf("expected exhausted limiter to report a wait")
	}

	b := r.GetOrCreate(1, 5)
	if a == b {
		t.Fatalf("expected a new limiter instance after rpm change")
	}
	if wait := b.WaitTime(); wait != 0 {
		t.Fatalf("reconfigured limiter should start with fresh state, got wait %v", wait)
	}
}
