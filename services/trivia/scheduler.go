package trivia

import (
	"context"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/hugs-network/trivia_layer/pkg/logger"
)

const (
	DefaultRoundSchedule  = "@every 1h"
	DefaultWaitForReplies = 120 * time.Second
	DefaultGradeAttempts  = 1
)

// SchedulerConfig controls automatic round posting.
type SchedulerConfig struct {
	Schedule       string
	WaitForReplies time.Duration
	GradeAttempts  int
}

// Scheduler posts a round on a cron schedule and grades it after a wait.
type Scheduler struct {
	svc *Service
	cfg SchedulerConfig
	log *logger.Logger

	mu     sync.Mutex
	cron   *rcron.Cron
	cancel context.CancelFunc
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewScheduler builds a scheduler for svc.
func NewScheduler(svc *Service, cfg SchedulerConfig, log *logger.Logger) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultRoundSchedule
	}
	if cfg.WaitForReplies <= 0 {
		cfg.WaitForReplies = DefaultWaitForReplies
	}
	if cfg.GradeAttempts <= 0 {
		cfg.GradeAttempts = DefaultGradeAttempts
	}
	if log == nil {
		log = logger.NewDefault("trivia-scheduler")
	}
	return &Scheduler{svc: svc, cfg: cfg, log: log, sleep: sleepCtx}
}

func (s *Scheduler) Name() string { return "trivia-scheduler" }

// Start registers the cron job. Overlapping runs are skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := rcron.New(rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger)))
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunOnce(runCtx); err != nil {
			s.log.WithError(err).Warn("scheduled round failed")
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("round schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.cron = c
	s.cancel = cancel
	s.log.WithField("schedule", s.cfg.Schedule).Info("round scheduler started")
	return nil
}

// Stop cancels an in-flight round wait and waits for the job to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	cancel()
	done := c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce posts a round at a random category and level, grades it up to
// GradeAttempts times spaced by WaitForReplies, and abandons it if nobody
// answered.
func (s *Scheduler) RunOnce(ctx context.Context) (Outcome, error) {
	bank := s.svc.Bank()
	r, err := s.svc.PostRound(ctx, bank.RandomCategory(), bank.RandomLevel())
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Round: r, Status: StatusPosted}
	for i := 0; i < s.cfg.GradeAttempts; i++ {
		if err := s.sleep(ctx, s.cfg.WaitForReplies); err != nil {
			return out, err
		}
		out, err = s.svc.GradeRound(ctx, r.ID)
		if err != nil {
			return out, err
		}
		if out.Status != StatusPosted {
			return out, nil
		}
	}

	if _, err := s.svc.AbandonRound(ctx, r.ID); err != nil {
		return out, err
	}
	out.Status = StatusAbandoned
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
