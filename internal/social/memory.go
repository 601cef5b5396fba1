package social

import (
	"context"
	"fmt"
	"sync"

	"github.com/hugs-network/trivia_layer/services/trivia"
)

// Post is a message published through Memory.
type Post struct {
	ID      string `json:"id"`
	ReplyTo string `json:"reply_to,omitempty"`
	Text    string `json:"text"`
}

// Memory is an in-process platform for dry runs and tests. Replies are
// injected with AddReply.
type Memory struct {
	mu      sync.Mutex
	seq     int
	posts   []Post
	replies map[string][]trivia.Reply
}

var _ trivia.Platform = (*Memory)(nil)

// NewMemory creates an empty platform.
func NewMemory() *Memory {
	return &Memory{replies: make(map[string][]trivia.Reply)}
}

func (m *Memory) Post(_ context.Context, text string) (string, error) {
	return m.publish("", text), nil
}

func (m *Memory) Reply(_ context.Context, postID, text string) (string, error) {
	return m.publish(postID, text), nil
}

func (m *Memory) publish(replyTo, text string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("mem-%d", m.seq)
	m.posts = append(m.posts, Post{ID: id, ReplyTo: replyTo, Text: text})
	return id
}

func (m *Memory) FetchReplies(_ context.Context, postID string) ([]trivia.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]trivia.Reply, len(m.replies[postID]))
	copy(out, m.replies[postID])
	return out, nil
}

// AddReply appends a reply to postID.
func (m *Memory) AddReply(postID, handle, text string) trivia.Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r := trivia.Reply{ID: fmt.Sprintf("mem-%d", m.seq), Handle: handle, Text: text}
	m.replies[postID] = append(m.replies[postID], r)
	return r
}

// Posts returns everything published so far.
func (m *Memory) Posts() []Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Post, len(m.posts))
	copy(out, m.posts)
	return out
}
