package util

import (
	"context"
	"fmt"
	"time"
)

// PollConfig holds fixed-interval polling configuration
type PollConfig struct {
	Attempts int           // Maximum number of attempts
	Interval time.Duration // Fixed wait between attempts
}

// DefaultPollConfig returns the default readiness polling configuration
func DefaultPollConfig() *PollConfig {
	return &PollConfig{
		Attempts: 3,
		Interval: time.Second,
	}
}

// Poll executes a check repeatedly, waiting a fixed interval between
// attempts, until it succeeds or the attempts are exhausted. Returns the
// last error when all attempts fail, wrapped with ErrNotReady.
func Poll(ctx context.Context, cfg *PollConfig, check func() error, name string) error {
	if cfg == nil {
		cfg = DefaultPollConfig()
	}

	var err error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		err = check()
		if err == nil {
			if attempt > 1 {
				DebugLog("Poll: %s succeeded on attempt %d/%d", name, attempt, cfg.Attempts)
			}
			return nil
		}

		if attempt == cfg.Attempts {
			break
		}

		DebugLog("Poll: %s not ready (attempt %d/%d), retrying in %v: %v",
			name, attempt, cfg.Attempts, cfg.Interval, err)

		select {
		case <-time.After(cfg.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %v", ErrNotReady, name, cfg.Attempts, err)
}
