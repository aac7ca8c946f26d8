// Package scheduler runs named repeating tasks with explicit
// cancellation, replacing ad hoc interval timers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Task is one repeating job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler owns a set of tasks and their goroutines.
type Scheduler struct {
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		logger: log.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches a task loop. The task runs once immediately, then on
// every interval tick, until ctx is cancelled. A panicking run is
// logged and the loop continues.
func (s *Scheduler) Start(ctx context.Context, task Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(task.Interval)
		defer ticker.Stop()

		s.logger.Info().Str("task", task.Name).Dur("interval", task.Interval).Msg("Task started")
		s.runOnce(ctx, task)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Str("task", task.Name).Msg("Task stopped")
				return
			case <-ticker.C:
				s.runOnce(ctx, task)
			}
		}
	}()
}

// Wait blocks until every task loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("task", task.Name).Interface("panic", r).Msg("Task run panicked")
		}
	}()
	task.Run(ctx)
}
