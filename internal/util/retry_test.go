package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollSucceedsAfterRetries(t *testing.T) {
	cfg := &PollConfig{Attempts: 3, Interval: time.Millisecond}

	calls := 0
	err := Poll(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, "thing")

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestPollExhaustsAttempts(t *testing.T) {
	cfg := &PollConfig{Attempts: 2, Interval: time.Millisecond}

	calls := 0
	err := Poll(context.Background(), cfg, func() error {
		calls++
		return errors.New("still broken")
	}, "thing")

	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestPollRespectsContext(t *testing.T) {
	cfg := &PollConfig{Attempts: 10, Interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Poll(ctx, cfg, func() error { return errors.New("nope") }, "thing")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPollNilConfigUsesDefaults(t *testing.T) {
	if err := Poll(context.Background(), nil, func() error { return nil }, "thing"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}
