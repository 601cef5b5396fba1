// Package trivia runs trivia rounds on a social platform: it posts a
// question, grades public replies and hands the first correct answer to a
// settler.
package trivia

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a round.
type Status string

const (
	StatusPosted    Status = "posted"
	StatusGraded    Status = "graded"
	StatusAbandoned Status = "abandoned"
)

var (
	ErrRoundNotFound = errors.New("round not found")
	ErrNoPlatform    = errors.New("no social platform configured")
)

// Round is one posted question awaiting an answer.
type Round struct {
	ID               string    `json:"id"`
	Category         string    `json:"category"`
	Level            int       `json:"level"`
	Question         string    `json:"question"`
	Answer           string    `json:"answer"`
	NormalizedAnswer string    `json:"normalized_answer"`
	PostID           string    `json:"post_id"`
	PostedAt         time.Time `json:"posted_at"`
}

// Reply is a public response to a round post.
type Reply struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Text   string `json:"text"`
}

// Winner identifies who answered a round first.
type Winner struct {
	RoundID string `json:"round_id"`
	Handle  string `json:"handle"`
	ReplyID string `json:"reply_id"`
	Answer  string `json:"answer"`
}

// Settlement is what a Settler reports back for a winner.
type Settlement struct {
	OK       bool        `json:"ok"`
	PayoutID string      `json:"payout_id,omitempty"`
	TxHash   string      `json:"tx_hash,omitempty"`
	Error    string      `json:"error,omitempty"`
	Detail   interface{} `json:"detail,omitempty"`
}

// Outcome is the result of grading a round.
type Outcome struct {
	Round      Round       `json:"round"`
	Status     Status      `json:"status"`
	Replies    int         `json:"replies"`
	Winner     *Winner     `json:"winner,omitempty"`
	Settlement *Settlement `json:"settlement,omitempty"`
	Announced  bool        `json:"announced"`
}

// Platform posts to and reads from a social network.
type Platform interface {
	Post(ctx context.Context, text string) (string, error)
	Reply(ctx context.Context, postID, text string) (string, error)
	FetchReplies(ctx context.Context, postID string) ([]Reply, error)
}

// Settler pays a winner. It must not block on retries; failures are
// reported in the Settlement.
type Settler interface {
	Settle(ctx context.Context, w Winner) Settlement
}

// Recorder keeps a durable history of rounds and responses.
type Recorder interface {
	RecordRound(ctx context.Context, r Round) error
	RecordResponse(ctx context.Context, roundID string, reply Reply, correct bool) error
	CloseRound(ctx context.Context, roundID string, status Status, winner string) error
}

// RoundStore tracks active rounds. Delete reports whether this call removed
// the round, so concurrent graders can claim a round exactly once.
type RoundStore interface {
	Save(ctx context.Context, r Round) error
	Get(ctx context.Context, id string) (Round, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Round, error)
}
