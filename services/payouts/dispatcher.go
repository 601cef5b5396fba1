// Package payouts pays round winners from a durable payout record so a
// failed settlement can be retried after the round has closed.
package payouts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	rcron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/hugs-network/trivia_layer/internal/metrics"
	"github.com/hugs-network/trivia_layer/internal/scoreboard"
	"github.com/hugs-network/trivia_layer/pkg/logger"
	"github.com/hugs-network/trivia_layer/services/rewards"
	"github.com/hugs-network/trivia_layer/services/trivia"
)

const (
	DefaultMaxAttempts = 5
	DefaultSchedule    = "@every 5m"
	DefaultBatchSize   = 100

	ErrNoAddress = "no_address"
	ErrStore     = "store_error"
)

// Store persists payout records.
type Store interface {
	CreatePayout(ctx context.Context, p scoreboard.Payout) (scoreboard.Payout, error)
	UpdatePayout(ctx context.Context, p scoreboard.Payout) (scoreboard.Payout, error)
	ListRetryable(ctx context.Context, maxAttempts, limit int) ([]scoreboard.Payout, error)
	ClaimPayout(ctx context.Context, p scoreboard.Payout) (scoreboard.Payout, error)
}

// AddressBook resolves a platform handle to a ledger address.
type AddressBook interface {
	AddressFor(ctx context.Context, handle string) (string, error)
}

// Rewarder settles one reward.
type Rewarder interface {
	PayReward(ctx context.Context, req rewards.RewardRequest) rewards.RewardResult
}

// Config controls payout amounts and retries.
type Config struct {
	Amount      float64
	Token       string
	MaxAttempts int
	Schedule    string
	BatchSize   int
}

// Dispatcher records and settles payouts. It implements trivia.Settler.
type Dispatcher struct {
	cfg      Config
	store    Store
	book     AddressBook
	rewarder Rewarder
	log      *logger.Logger

	mu   sync.Mutex
	cron *rcron.Cron
}

var _ trivia.Settler = (*Dispatcher)(nil)

// New builds a dispatcher.
func New(cfg Config, store Store, book AddressBook, rewarder Rewarder, log *logger.Logger) *Dispatcher {
	if cfg.Amount <= 0 {
		cfg.Amount = rewards.DefaultRewardAmount
	}
	if cfg.Token == "" {
		cfg.Token = rewards.DefaultToken
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if log == nil {
		log = logger.NewDefault("payouts")
	}
	return &Dispatcher{cfg: cfg, store: store, book: book, rewarder: rewarder, log: log}
}

// Settle writes an in_flight payout for the winner and attempts it once.
// The record is created already claimed so a concurrent Retry pass leaves
// it alone.
func (d *Dispatcher) Settle(ctx context.Context, w trivia.Winner) trivia.Settlement {
	p := scoreboard.Payout{
		ID:       uuid.New().String(),
		RoundID:  w.RoundID,
		Username: w.Handle,
		Amount:   d.cfg.Amount,
		Token:    d.cfg.Token,
		Status:   scoreboard.PayoutInFlight,
	}
	created, err := d.store.CreatePayout(ctx, p)
	if err != nil {
		d.log.WithError(err).WithField("round_id", w.RoundID).Error("record payout failed")
		metrics.RecordPayout(ErrStore)
		return trivia.Settlement{PayoutID: p.ID, Error: ErrStore, Detail: err.Error()}
	}
	return d.attempt(ctx, created)
}

func (d *Dispatcher) attempt(ctx context.Context, p scoreboard.Payout) trivia.Settlement {
	log := d.log.WithFields(logrus.Fields{"payout_id": p.ID, "round_id": p.RoundID, "handle": p.Username})

	if p.Address == "" {
		addr, err := d.book.AddressFor(ctx, p.Username)
		if err != nil {
			log.WithError(err).Warn("address lookup failed")
		}
		p.Address = addr
	}
	if p.Address == "" {
		p.Status = scoreboard.PayoutPending
		p.LastError = ErrNoAddress
		d.save(ctx, p, log)
		metrics.RecordPayout(ErrNoAddress)
		return trivia.Settlement{PayoutID: p.ID, Error: ErrNoAddress, Detail: "winner has no linked address"}
	}

	p.Attempts++
	res := d.rewarder.PayReward(ctx, rewards.RewardRequest{
		Address: p.Address,
		Amount:  p.Amount,
		Token:   p.Token,
		Reason:  fmt.Sprintf("trivia round %s", p.RoundID),
	})
	out := trivia.Settlement{OK: res.OK, PayoutID: p.ID, TxHash: res.TxHash, Detail: res.Detail}
	if res.OK {
		p.Status = scoreboard.PayoutPaid
		p.TxHash = res.TxHash
		p.LastError = ""
		log.WithField("tx_hash", res.TxHash).Info("payout settled")
		metrics.RecordPayout("paid")
	} else {
		p.Status = scoreboard.PayoutFailed
		p.LastError = string(res.Error)
		out.Error = string(res.Error)
		log.WithField("error", res.Error).WithField("attempts", p.Attempts).Warn("payout failed")
		metrics.RecordPayout(string(res.Error))
	}
	d.save(ctx, p, log)
	return out
}

func (d *Dispatcher) save(ctx context.Context, p scoreboard.Payout, log *logrus.Entry) {
	if _, err := d.store.UpdatePayout(ctx, p); err != nil {
		log.WithError(err).Error("update payout failed")
	}
}

// RetryReport summarizes one retry pass.
type RetryReport struct {
	Attempted int `json:"attempted"`
	Paid      int `json:"paid"`
	Failed    int `json:"failed"`
	NoAddress int `json:"no_address"`
	Skipped   int `json:"skipped"`
}

// Retry re-attempts pending and failed payouts below MaxAttempts. Each
// payout is claimed first; one claimed elsewhere is skipped.
func (d *Dispatcher) Retry(ctx context.Context) (RetryReport, error) {
	var report RetryReport
	due, err := d.store.ListRetryable(ctx, d.cfg.MaxAttempts, d.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("list retryable payouts: %w", err)
	}
	for _, p := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		claimed, err := d.store.ClaimPayout(ctx, p)
		if errors.Is(err, scoreboard.ErrClaimed) {
			report.Skipped++
			continue
		}
		if err != nil {
			d.log.WithError(err).WithField("payout_id", p.ID).Error("claim payout failed")
			report.Skipped++
			continue
		}
		report.Attempted++
		st := d.attempt(ctx, claimed)
		switch {
		case st.OK:
			report.Paid++
		case st.Error == ErrNoAddress:
			report.NoAddress++
		default:
			report.Failed++
		}
	}
	if report.Attempted > 0 || report.Skipped > 0 {
		d.log.WithFields(logrus.Fields{
			"attempted":  report.Attempted,
			"paid":       report.Paid,
			"failed":     report.Failed,
			"no_address": report.NoAddress,
			"skipped":    report.Skipped,
		}).Info("payout retry pass")
	}
	return report, nil
}

func (d *Dispatcher) Name() string { return "payout-retrier" }

// Start schedules Retry on the configured cron schedule.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return nil
	}
	c := rcron.New(rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger)))
	if _, err := c.AddFunc(d.cfg.Schedule, func() {
		if _, err := d.Retry(context.Background()); err != nil {
			d.log.WithError(err).Warn("payout retry failed")
		}
	}); err != nil {
		return fmt.Errorf("payout schedule %q: %w", d.cfg.Schedule, err)
	}
	c.Start()
	d.cron = c
	d.log.WithField("schedule", d.cfg.Schedule).Info("payout retrier started")
	return nil
}

// Stop halts the schedule and waits for a running pass.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
