package rewardd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	rewards "azorion/native/taskrewards"
)

// Scheduler periodically refreshes the available task count.
type Scheduler struct {
	processor *Processor
	caller    rewards.Identity
	interval  time.Duration
	logger    *slog.Logger
}

// NewScheduler runs refreshes as caller every interval.
func NewScheduler(processor *Processor, caller rewards.Identity, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{processor: processor, caller: caller, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.processor.Randomize(ctx, s.caller)
	switch {
	case err == nil:
	case errors.Is(err, rewards.ErrCooldownRngTasks):
		s.logger.Debug("task refresh skipped", slog.String("reason", "cooldown"))
	default:
		s.logger.Warn("task refresh failed", slog.Any("error", err))
	}
}
