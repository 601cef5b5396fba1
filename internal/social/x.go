// Package social adapts social platforms to the round lifecycle: posting
// questions, replying with announcements and fetching answers.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/hugs-network/trivia_layer/pkg/logger"
	"github.com/hugs-network/trivia_layer/services/trivia"
)

const (
	DefaultXBaseURL    = "https://api.twitter.com"
	defaultXTimeout    = 15 * time.Second
	defaultXRate       = rate.Limit(1)
	defaultSearchLimit = 50
)

// XConfig configures the X API v2 client. BearerToken must be a user
// context token allowed to create posts.
type XConfig struct {
	BaseURL     string
	BearerToken string
	BotUserID   string
	Timeout     time.Duration
	RateLimit   rate.Limit
	HTTPClient  *http.Client
}

// X posts rounds as tweets and reads replies through recent search.
type X struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger

	mu    sync.Mutex
	botID string
}

var _ trivia.Platform = (*X)(nil)

// NewX builds an X client.
func NewX(cfg XConfig, log *logger.Logger) (*X, error) {
	if strings.TrimSpace(cfg.BearerToken) == "" {
		return nil, fmt.Errorf("x bearer token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultXBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultXTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultXRate
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = logger.NewDefault("social-x")
	}
	return &X{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.BearerToken,
		http:    client,
		limiter: rate.NewLimiter(cfg.RateLimit, 1),
		log:     log,
		botID:   cfg.BotUserID,
	}, nil
}

// APIError is a non-2xx response from the X API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("x api: status %d: %s", e.Status, e.Body)
}

func (x *X) do(ctx context.Context, method, path string, body interface{}) (gjson.Result, error) {
	if err := x.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+x.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := x.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("x api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read x api response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, &APIError{Status: resp.StatusCode, Body: truncate(string(data), 400)}
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("x api: invalid json response")
	}
	return gjson.ParseBytes(data), nil
}

// BotUserID returns the configured bot id, looking it up once through
// /2/users/me when unset.
func (x *X) BotUserID(ctx context.Context) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.botID != "" {
		return x.botID, nil
	}
	res, err := x.do(ctx, http.MethodGet, "/2/users/me", nil)
	if err != nil {
		return "", err
	}
	id := res.Get("data.id").String()
	if id == "" {
		return "", fmt.Errorf("x api: users/me returned no id")
	}
	x.botID = id
	x.log.WithField("user", res.Get("data.username").String()).Info("authenticated to x")
	return id, nil
}

// Post publishes text and returns the tweet id.
func (x *X) Post(ctx context.Context, text string) (string, error) {
	return x.create(ctx, map[string]interface{}{"text": text})
}

// Reply publishes text as a reply to postID.
func (x *X) Reply(ctx context.Context, postID, text string) (string, error) {
	return x.create(ctx, map[string]interface{}{
		"text":  text,
		"reply": map[string]string{"in_reply_to_tweet_id": postID},
	})
}

func (x *X) create(ctx context.Context, body map[string]interface{}) (string, error) {
	res, err := x.do(ctx, http.MethodPost, "/2/tweets", body)
	if err != nil {
		return "", err
	}
	id := res.Get("data.id").String()
	if id == "" {
		return "", fmt.Errorf("x api: create tweet returned no id")
	}
	return id, nil
}

// FetchReplies searches the conversation of postID and keeps replies
// addressed to the bot, in the order the API returns them.
func (x *X) FetchReplies(ctx context.Context, postID string) ([]trivia.Reply, error) {
	botID, err := x.BotUserID(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("query", "conversation_id:"+postID)
	q.Set("expansions", "author_id,in_reply_to_user_id")
	q.Set("tweet.fields", "in_reply_to_user_id,created_at,conversation_id")
	q.Set("user.fields", "username")
	q.Set("max_results", fmt.Sprint(defaultSearchLimit))

	res, err := x.do(ctx, http.MethodGet, "/2/tweets/search/recent?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	users := make(map[string]string)
	res.Get("includes.users").ForEach(func(_, u gjson.Result) bool {
		users[u.Get("id").String()] = u.Get("username").String()
		return true
	})

	replies := []trivia.Reply{}
	res.Get("data").ForEach(func(_, t gjson.Result) bool {
		if t.Get("in_reply_to_user_id").String() != botID {
			return true
		}
		handle := "@unknown"
		if name, ok := users[t.Get("author_id").String()]; ok && name != "" {
			handle = "@" + name
		}
		replies = append(replies, trivia.Reply{
			ID:     t.Get("id").String(),
			Handle: handle,
			Text:   t.Get("text").String(),
		})
		return true
	})
	return replies, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
