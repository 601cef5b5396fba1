package trivia

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type fakePlatform struct {
	mu        sync.Mutex
	posts     []string
	replies   map[string][]Reply
	announced []string
	postErr   error
	fetchErr  error
	replyErr  error
	seq       int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{replies: make(map[string][]Reply)}
}

func (p *fakePlatform) Post(_ context.Context, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.postErr != nil {
		return "", p.postErr
	}
	p.seq++
	p.posts = append(p.posts, text)
	return fmt.Sprintf("post-%d", p.seq), nil
}

func (p *fakePlatform) Reply(_ context.Context, postID, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.replyErr != nil {
		return "", p.replyErr
	}
	p.announced = append(p.announced, postID+": "+text)
	return "ack-" + postID, nil
}

func (p *fakePlatform) FetchReplies(_ context.Context, postID string) ([]Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.replies[postID], nil
}

func (p *fakePlatform) addReplies(postID string, texts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, text := range texts {
		p.replies[postID] = append(p.replies[postID], Reply{
			ID:     fmt.Sprintf("%s-r%d", postID, i+1),
			Handle: fmt.Sprintf("@player%d", i+1),
			Text:   text,
		})
	}
}

type fakeSettler struct {
	mu      sync.Mutex
	winners []Winner
	fail    bool
}

func (s *fakeSettler) Settle(_ context.Context, w Winner) Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winners = append(s.winners, w)
	if s.fail {
		return Settlement{PayoutID: "payout-1", Error: "reward_error"}
	}
	return Settlement{OK: true, PayoutID: "payout-1", TxHash: "mock-1"}
}

type fakeRecorder struct {
	mu        sync.Mutex
	rounds    []string
	responses map[string]bool
	closed    map[string]Status
	winners   map[string]string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		responses: make(map[string]bool),
		closed:    make(map[string]Status),
		winners:   make(map[string]string),
	}
}

func (r *fakeRecorder) RecordRound(_ context.Context, round Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, round.ID)
	return nil
}

func (r *fakeRecorder) RecordResponse(_ context.Context, roundID string, reply Reply, correct bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[roundID+"/"+reply.Handle] = correct
	return nil
}

func (r *fakeRecorder) CloseRound(_ context.Context, roundID string, status Status, winner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[roundID] = status
	r.winners[roundID] = winner
	return nil
}

var errBoom = errors.New("boom")
