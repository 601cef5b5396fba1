package trivia

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hugs-network/trivia_layer/internal/metrics"
	"github.com/hugs-network/trivia_layer/pkg/logger"
)

const DefaultCategory = "general"

// Config holds round settings.
type Config struct {
	DefaultCategory string
	// AbandonAfter is how long a round without a winner stays open when
	// graded. Zero keeps it open until abandoned explicitly.
	AbandonAfter time.Duration
}

// Service runs the round lifecycle.
type Service struct {
	cfg      Config
	bank     *Bank
	store    RoundStore
	platform Platform
	settler  Settler
	recorder Recorder
	log      *logger.Logger
	now      func() time.Time
}

// New constructs the round service. recorder may be nil.
func New(cfg Config, bank *Bank, store RoundStore, platform Platform, settler Settler, recorder Recorder, log *logger.Logger) *Service {
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = DefaultCategory
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = logger.NewDefault("trivia")
	}
	return &Service{
		cfg:      cfg,
		bank:     bank,
		store:    store,
		platform: platform,
		settler:  settler,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

// Bank exposes the question bank.
func (s *Service) Bank() *Bank { return s.bank }

// Question picks a question without posting it. Empty category uses the
// default category.
func (s *Service) Question(category string, level int) (string, int, Question) {
	category = s.category(category)
	level = ClampLevel(level)
	return category, level, s.bank.Pick(category, level)
}

func (s *Service) category(c string) string {
	c = strings.TrimSpace(strings.ToLower(c))
	if c == "" {
		return s.cfg.DefaultCategory
	}
	return c
}

// PostRound picks a question, posts it and starts tracking the round.
func (s *Service) PostRound(ctx context.Context, category string, level int) (Round, error) {
	if s.platform == nil {
		return Round{}, ErrNoPlatform
	}
	category, level, q := s.Question(category, level)

	postID, err := s.platform.Post(ctx, FormatPrompt(level, category, q.Text))
	if err != nil {
		return Round{}, fmt.Errorf("post round: %w", err)
	}

	r := Round{
		ID:               uuid.New().String(),
		Category:         category,
		Level:            level,
		Question:         q.Text,
		Answer:           q.Answer,
		NormalizedAnswer: Normalize(q.Answer),
		PostID:           postID,
		PostedAt:         s.now().UTC(),
	}
	if err := s.store.Save(ctx, r); err != nil {
		return Round{}, fmt.Errorf("save round: %w", err)
	}
	if s.recorder != nil {
		if err := s.recorder.RecordRound(ctx, r); err != nil {
			s.log.WithError(err).WithField("round_id", r.ID).Warn("record round failed")
		}
	}
	metrics.RecordRound(string(StatusPosted))

	s.log.WithFields(logrus.Fields{
		"round_id": r.ID,
		"post_id":  postID,
		"category": category,
		"level":    level,
	}).Info("round posted")
	return r, nil
}

// GradeRound fetches replies and picks the first whose normalized text
// equals the normalized answer. A winner is settled once and announced,
// and the round stops being tracked. Without a winner the round stays
// posted until it is older than AbandonAfter.
func (s *Service) GradeRound(ctx context.Context, id string) (Outcome, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if s.platform == nil {
		return Outcome{}, ErrNoPlatform
	}
	log := s.log.WithField("round_id", r.ID)

	replies, err := s.platform.FetchReplies(ctx, r.PostID)
	if err != nil {
		log.WithError(err).Warn("fetch replies failed")
		replies = nil
	}

	var winner *Winner
	for _, reply := range replies {
		correct := winner == nil && Normalize(reply.Text) == r.NormalizedAnswer
		if correct {
			winner = &Winner{RoundID: r.ID, Handle: reply.Handle, ReplyID: reply.ID, Answer: r.NormalizedAnswer}
		}
		if s.recorder != nil {
			if err := s.recorder.RecordResponse(ctx, r.ID, reply, correct); err != nil {
				log.WithError(err).WithField("handle", reply.Handle).Warn("record response failed")
			}
		}
	}

	out := Outcome{Round: r, Status: StatusPosted, Replies: len(replies)}
	if winner == nil {
		if s.cfg.AbandonAfter > 0 && s.now().Sub(r.PostedAt) >= s.cfg.AbandonAfter {
			if err := s.close(ctx, r, StatusAbandoned, ""); err != nil {
				return out, err
			}
			out.Status = StatusAbandoned
		}
		return out, nil
	}

	claimed, err := s.store.Delete(ctx, r.ID)
	if err != nil {
		return out, fmt.Errorf("claim round: %w", err)
	}
	if !claimed {
		return out, fmt.Errorf("%w: %s already closed", ErrRoundNotFound, r.ID)
	}
	out.Winner = winner
	out.Status = StatusGraded

	if s.settler != nil {
		st := s.settler.Settle(ctx, *winner)
		out.Settlement = &st
		if !st.OK {
			log.WithFields(logrus.Fields{
				"handle": winner.Handle,
				"error":  st.Error,
				"payout": st.PayoutID,
			}).Warn("settlement failed")
		}
	}

	if _, err := s.platform.Reply(ctx, r.PostID, FormatAnnouncement(winner.Handle, r.NormalizedAnswer)); err != nil {
		log.WithError(err).Warn("winner announcement failed")
	} else {
		out.Announced = true
	}

	s.record(ctx, r.ID, StatusGraded, winner.Handle)
	log.WithField("handle", winner.Handle).Info("round graded")
	return out, nil
}

// AbandonRound closes a round without a winner.
func (s *Service) AbandonRound(ctx context.Context, id string) (Round, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Round{}, err
	}
	if err := s.close(ctx, r, StatusAbandoned, ""); err != nil {
		return Round{}, err
	}
	return r, nil
}

// ActiveRounds lists rounds still awaiting a winner.
func (s *Service) ActiveRounds(ctx context.Context) ([]Round, error) {
	return s.store.List(ctx)
}

func (s *Service) close(ctx context.Context, r Round, status Status, winner string) error {
	claimed, err := s.store.Delete(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("close round: %w", err)
	}
	if !claimed {
		return fmt.Errorf("%w: %s already closed", ErrRoundNotFound, r.ID)
	}
	s.record(ctx, r.ID, status, winner)
	s.log.WithField("round_id", r.ID).Infof("round %s", status)
	return nil
}

func (s *Service) record(ctx context.Context, id string, status Status, winner string) {
	metrics.RecordRound(string(status))
	if s.recorder == nil {
		return
	}
	if err := s.recorder.CloseRound(ctx, id, status, winner); err != nil {
		s.log.WithError(err).WithField("round_id", id).Warn("record round close failed")
	}
}
