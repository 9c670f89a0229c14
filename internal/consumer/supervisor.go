package consumer

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const lagReportInterval = 15 * time.Second

type Health struct {
	State        State  `json:"state"`
	Restarts     int64  `json:"restarts"`
	LastError    string `json:"last_error,omitempty"`
	Processed    int64  `json:"processed"`
	Skipped      int64  `json:"skipped"`
	DeadLettered int64  `json:"dead_lettered"`
	Healthy      bool   `json:"healthy"`
}

// Supervisor keeps one Consumer running in the background and restarts it when
// Run panics or returns while the supervisor is still active.
type Supervisor struct {
	consumer     *Consumer
	restartDelay time.Duration
	maxDelay     time.Duration

	restarts atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSupervisor(c *Consumer) *Supervisor {
	return &Supervisor{
		consumer:     c,
		restartDelay: time.Second,
		maxDelay:     time.Minute,
	}
}

func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
}

func (s *Supervisor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.restartDelay
	bo.MaxInterval = s.maxDelay
	bo.MaxElapsedTime = 0

	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = fmt.Errorf("consumer exited unexpectedly")
		}

		s.restarts.Add(1)
		s.consumer.recordError(err)

		delay := bo.NextBackOff()
		log.Error().Err(err).Str("component", "Supervisor").Dur("restart_in", delay).Msg("restarting consumer")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "Supervisor").Str("stack", string(debug.Stack())).Msg("consumer panicked")
			err = fmt.Errorf("consumer panic: %v", r)
		}
	}()

	return s.consumer.Run(ctx)
}

// Stop cancels the consumer and waits for it to finish or for ctx to expire.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for consumer to stop: %w", ctx.Err())
	}
}

func (s *Supervisor) Health() Health {
	c := s.consumer
	state := c.State()

	h := Health{
		State:        state,
		Restarts:     s.restarts.Load(),
		Processed:    c.processed.Load(),
		Skipped:      c.skipped.Load(),
		DeadLettered: c.deadLettered.Load(),
		Healthy:      state != StateErrored && state != StateStopping && state != StateStopped,
	}
	if err := c.LastError(); err != nil {
		h.LastError = err.Error()
	}

	return h
}

// ScheduleLagReport registers a job that refreshes the lag gauge every 15
// seconds. The scheduler is owned and started by the caller.
func ScheduleLagReport(scheduler gocron.Scheduler, c *Consumer) (gocron.Job, error) {
	return scheduler.NewJob(
		gocron.DurationJob(lagReportInterval),
		gocron.NewTask(c.ReportLag),
		gocron.WithName("consumer-lag"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
}
