package scoreboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PayoutStatus is the state of a reward payout.
type PayoutStatus string

const (
	PayoutPending  PayoutStatus = "pending"
	PayoutInFlight PayoutStatus = "in_flight"
	PayoutPaid     PayoutStatus = "paid"
	PayoutFailed   PayoutStatus = "failed"
)

// ClaimLease is how long an in_flight payout stays owned by the process
// that claimed it. Older claims are treated as abandoned.
const ClaimLease = 30 * time.Minute

// ErrClaimed is returned when another attempt already owns a payout.
var ErrClaimed = errors.New("payout already claimed")

// Payout is a durable record of a reward owed to a round winner.
type Payout struct {
	ID        string       `db:"id" json:"id"`
	RoundID   string       `db:"round_id" json:"round_id"`
	Username  string       `db:"username" json:"username"`
	Address   string       `db:"address" json:"address,omitempty"`
	Amount    float64      `db:"amount" json:"amount"`
	Token     string       `db:"token" json:"token"`
	Status    PayoutStatus `db:"status" json:"status"`
	Attempts  int          `db:"attempts" json:"attempts"`
	TxHash    string       `db:"tx_hash" json:"tx_hash,omitempty"`
	LastError string       `db:"last_error" json:"last_error,omitempty"`
	CreatedAt int64        `db:"created_at" json:"created_at"`
	UpdatedAt int64        `db:"updated_at" json:"updated_at"`
}

const payoutColumns = `id, round_id, username, address, amount, token, status, attempts, tx_hash, last_error, created_at, updated_at`

// CreatePayout inserts p. CreatedAt and UpdatedAt are stamped.
func (s *Store) CreatePayout(ctx context.Context, p Payout) (Payout, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	now := s.now().Unix()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Status == "" {
		p.Status = PayoutPending
	}
	p.Username = NormalizeHandle(p.Username)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO payouts (`+payoutColumns+`)
		VALUES (:id, :round_id, :username, :address, :amount, :token, :status, :attempts, :tx_hash, :last_error, :created_at, :updated_at)`, p)
	if err != nil {
		return Payout{}, fmt.Errorf("insert payout: %w", err)
	}
	return p, nil
}

// UpdatePayout stores the mutable fields of p.
func (s *Store) UpdatePayout(ctx context.Context, p Payout) (Payout, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	p.UpdatedAt = s.now().Unix()
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE payouts SET address = :address, status = :status, attempts = :attempts,
			tx_hash = :tx_hash, last_error = :last_error, updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return Payout{}, fmt.Errorf("update payout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Payout{}, fmt.Errorf("payout %s: %w", p.ID, ErrNotFound)
	}
	return p, nil
}

// GetPayout loads one payout.
func (s *Store) GetPayout(ctx context.Context, id string) (Payout, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var p Payout
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`SELECT `+payoutColumns+` FROM payouts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Payout{}, fmt.Errorf("payout %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Payout{}, fmt.Errorf("get payout: %w", err)
	}
	return p, nil
}

// ListPayouts returns payouts newest first, optionally filtered by status.
func (s *Store) ListPayouts(ctx context.Context, status PayoutStatus, limit int) ([]Payout, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if limit <= 0 {
		limit = 50
	}

	out := []Payout{}
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &out, s.db.Rebind(`
			SELECT `+payoutColumns+` FROM payouts ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	} else {
		err = s.db.SelectContext(ctx, &out, s.db.Rebind(`
			SELECT `+payoutColumns+` FROM payouts WHERE status = ? ORDER BY created_at DESC, id DESC LIMIT ?`),
			string(status), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	return out, nil
}

// ClaimPayout moves p to in_flight if it is still in the state it was read
// in. Exactly one caller wins; the rest get ErrClaimed.
func (s *Store) ClaimPayout(ctx context.Context, p Payout) (Payout, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	now := s.now()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE payouts SET status = ?, updated_at = ?
		WHERE id = ? AND updated_at = ?
			AND (status IN (?, ?) OR (status = ? AND updated_at < ?))`),
		string(PayoutInFlight), now.Unix(), p.ID, p.UpdatedAt,
		string(PayoutPending), string(PayoutFailed), string(PayoutInFlight), now.Add(-ClaimLease).Unix())
	if err != nil {
		return Payout{}, fmt.Errorf("claim payout: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return Payout{}, fmt.Errorf("payout %s: %w", p.ID, ErrClaimed)
	}
	p.Status = PayoutInFlight
	p.UpdatedAt = now.Unix()
	return p, nil
}

// ListRetryable returns unpaid payouts with fewer than maxAttempts
// attempts, oldest first. In-flight payouts are skipped until their claim
// lease runs out.
func (s *Store) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]Payout, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if limit <= 0 {
		limit = 100
	}

	out := []Payout{}
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT `+payoutColumns+` FROM payouts
		WHERE (status IN (?, ?) OR (status = ? AND updated_at < ?)) AND attempts < ?
		ORDER BY created_at ASC, id ASC LIMIT ?`),
		string(PayoutPending), string(PayoutFailed), string(PayoutInFlight), s.now().Add(-ClaimLease).Unix(),
		maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list retryable payouts: %w", err)
	}
	return out, nil
}
