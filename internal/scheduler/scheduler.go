// Package scheduler triggers periodic embedding sync runs.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/refbase-io/refbase/internal/domain"
)

// Runner executes one sync batch.
type Runner interface {
	EmbedPending(ctx context.Context, batchSize int) (domain.JobResult, error)
}

// Scheduler runs the sync job on a fixed interval. Errors are logged
// and never stop the loop.
type Scheduler struct {
	runner    Runner
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
	stop      chan struct{}
	done      chan struct{}
}

// New creates a scheduler. It does not start until Start is called.
func New(runner Runner, interval time.Duration, batchSize int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:    runner,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the timer loop in a goroutine.
func (s *Scheduler) Start() {
	go s.loop()
}

// Stop terminates the loop and waits for the current run to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	res, err := s.runner.EmbedPending(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("scheduled sync failed",
			zap.Int("processed", res.Processed),
			zap.Int("failed", res.Failed),
			zap.Error(err))
		return
	}
	if res.Processed > 0 {
		s.logger.Info("scheduled sync completed",
			zap.Int("processed", res.Processed),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed))
	}
}
