package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(0, func(context.Context) {}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if _, err := New(-time.Second, func(context.Context) {}); err == nil {
		t.Fatalf("expected error for negative interval")
	}
	if _, err := New(time.Second, nil); err == nil {
		t.Fatalf("expected error for nil tick function")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	var ticks atomic.Int64
	s, err := New(10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if !s.Start() {
		t.Fatalf("Start should succeed on a stopped scheduler")
	}
	if s.Start() {
		t.Fatalf("second Start should report already running")
	}
	if !s.IsRunning() {
		t.Fatalf("IsRunning should be true after Start")
	}

	time.Sleep(55 * time.Millisecond)

	if !s.Stop() {
		t.Fatalf("Stop should succeed on a running scheduler")
	}
	if s.Stop() {
		t.Fatalf("second Stop should report already stopped")
	}
	if s.IsRunning() {
		t.Fatalf("IsRunning should be false after Stop")
	}

	// First tick fires immediately, then roughly every interval.
	if got := ticks.Load(); got < 2 {
		t.Fatalf("expected at least 2 ticks, got %d", got)
	}

	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != after {
		t.Fatalf("ticks continued after Stop")
	}
}

func TestRestart(t *testing.T) {
	t.Parallel()

	var ticks atomic.Int64
	s, err := New(5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	first := ticks.Load()
	if !s.Start() {
		t.Fatalf("restart should succeed")
	}
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	if ticks.Load() <= first {
		t.Fatalf("expected more ticks after restart")
	}
}

func TestTickPanicRecovered(t *testing.T) {
	t.Parallel()

	var ticks atomic.Int64
	s, err := New(5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
		panic("boom")
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.Start()
	time.Sleep(25 * time.Millisecond)
	s.Stop()

	// A panicking tick must not kill the loop.
	if got := ticks.Load(); got < 2 {
		t.Fatalf("expected ticks to continue after panic, got %d", got)
	}
}
