// Package scoreboard keeps the durable game record: players and their
// linked ledger addresses, rounds, responses and reward payouts.
package scoreboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hugs-network/trivia_layer/services/trivia"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultDSN     = "hugs.db"
	defaultTimeout = 5 * time.Second
)

var ErrNotFound = errors.New("not found")

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Player is a scoreboard row.
type Player struct {
	Username       string  `db:"username" json:"username"`
	Address        string  `db:"address" json:"address,omitempty"`
	Hugs           float64 `db:"hugs" json:"hugs"`
	CorrectAnswers int     `db:"correct_answers" json:"correct_answers"`
	LastPlayed     int64   `db:"last_played" json:"last_played"`
}

// RoundRecord is the stored history of a round.
type RoundRecord struct {
	ID       string `db:"id" json:"id"`
	Category string `db:"category" json:"category"`
	Level    int    `db:"level" json:"level"`
	Question string `db:"question" json:"question"`
	Answer   string `db:"answer" json:"answer"`
	PostID   string `db:"post_id" json:"post_id"`
	Status   string `db:"status" json:"status"`
	Winner   string `db:"winner" json:"winner,omitempty"`
	PostedAt int64  `db:"posted_at" json:"posted_at"`
	ClosedAt int64  `db:"closed_at" json:"closed_at,omitempty"`
}

// Store is the SQL scoreboard.
type Store struct {
	db      *sqlx.DB
	reward  float64
	timeout time.Duration
	now     func() time.Time
}

// Open connects to driver/dsn, applies the schema and returns a store that
// credits reward per correct answer.
func Open(ctx context.Context, driver, dsn string, reward float64) (*Store, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if dsn == "" {
		if driver != DriverSQLite {
			return nil, fmt.Errorf("database dsn not configured")
		}
		dsn = DefaultDSN
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := Apply(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db, reward), nil
}

// New wraps an open database whose schema is already applied.
func New(db *sqlx.DB, reward float64) *Store {
	return &Store{db: db, reward: reward, timeout: defaultTimeout, now: time.Now}
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// NormalizeHandle lower-cases a platform handle and ensures the leading @.
func NormalizeHandle(handle string) string {
	h := strings.ToLower(strings.TrimSpace(handle))
	if h == "" || strings.HasPrefix(h, "@") {
		return h
	}
	return "@" + h
}

func (s *Store) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// RecordRound stores a newly posted round.
func (s *Store) RecordRound(ctx context.Context, r trivia.Round) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO rounds (id, category, level, question, answer, post_id, status, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Category, r.Level, r.Question, r.Answer, r.PostID, string(trivia.StatusPosted), r.PostedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert round %s: %w", r.ID, err)
	}
	return nil
}

// CloseRound records the terminal status of a round.
func (s *Store) CloseRound(ctx context.Context, roundID string, status trivia.Status, winner string) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE rounds SET status = ?, winner = ?, closed_at = ? WHERE id = ?`),
		string(status), NormalizeHandle(winner), s.now().Unix(), roundID)
	if err != nil {
		return fmt.Errorf("close round %s: %w", roundID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("round %s: %w", roundID, ErrNotFound)
	}
	return nil
}

// ListRounds returns the most recent rounds first.
func (s *Store) ListRounds(ctx context.Context, limit int) ([]RoundRecord, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if limit <= 0 {
		limit = 50
	}

	out := []RoundRecord{}
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT id, category, level, question, answer, post_id, status, winner, posted_at, closed_at
		FROM rounds ORDER BY posted_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	return out, nil
}

// RecordResponse stores a player's reply. Each player has one response
// per round; a later correct reply upgrades an earlier wrong one. The
// player is credited once per round when the stored response turns
// correct.
func (s *Store) RecordResponse(ctx context.Context, roundID string, reply trivia.Reply, correct bool) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	handle := NormalizeHandle(reply.Handle)
	if handle == "" {
		return fmt.Errorf("response without handle")
	}
	now := s.now().Unix()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := upsertPlayer(ctx, tx, handle, now); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO responses (round_id, username, reply_id, answer, correct, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (round_id, username) DO UPDATE
		SET reply_id = excluded.reply_id, answer = excluded.answer, correct = 1
		WHERE responses.correct = 0 AND excluded.correct = 1`),
		roundID, handle, reply.ID, reply.Text, boolInt(correct), now)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}

	if n, _ := res.RowsAffected(); correct && n > 0 {
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE players SET hugs = hugs + ?, correct_answers = correct_answers + 1 WHERE username = ?`),
			s.reward, handle)
		if err != nil {
			return fmt.Errorf("credit player: %w", err)
		}
	}
	return tx.Commit()
}

func upsertPlayer(ctx context.Context, tx *sqlx.Tx, handle string, now int64) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO players (username, last_played) VALUES (?, ?)
		ON CONFLICT (username) DO UPDATE SET last_played = excluded.last_played`),
		handle, now)
	if err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// Responses lists the stored responses of a round as handle -> correct.
func (s *Store) Responses(ctx context.Context, roundID string) (map[string]bool, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var rows []struct {
		Username string `db:"username"`
		Correct  int    `db:"correct"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT username, correct FROM responses WHERE round_id = ?`), roundID); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.Username] = r.Correct != 0
	}
	return out, nil
}

// Player loads one player.
func (s *Store) Player(ctx context.Context, handle string) (Player, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var p Player
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`
		SELECT username, address, hugs, correct_answers, last_played FROM players WHERE username = ?`),
		NormalizeHandle(handle))
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, fmt.Errorf("player %s: %w", handle, ErrNotFound)
	}
	if err != nil {
		return Player{}, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

// Leaderboard ranks players by hugs then correct answers.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Player, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if limit <= 0 {
		limit = 10
	}

	out := []Player{}
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT username, address, hugs, correct_answers, last_played FROM players
		ORDER BY hugs DESC, correct_answers DESC, username ASC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return out, nil
}

// LinkAddress associates a ledger address with a handle.
func (s *Store) LinkAddress(ctx context.Context, handle, address string) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	h := NormalizeHandle(handle)
	if h == "" {
		return fmt.Errorf("handle is required")
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO players (username, address) VALUES (?, ?)
		ON CONFLICT (username) DO UPDATE SET address = excluded.address`),
		h, strings.TrimSpace(address))
	if err != nil {
		return fmt.Errorf("link address: %w", err)
	}
	return nil
}

// AddressFor returns the linked address of a handle, or "" when none is
// linked.
func (s *Store) AddressFor(ctx context.Context, handle string) (string, error) {
	p, err := s.Player(ctx, handle)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.Address, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
