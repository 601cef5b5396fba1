// Package faucet requests test-network funding for new ledger accounts.
package faucet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/hugs-network/trivia_layer/internal/ledger"
	"github.com/hugs-network/trivia_layer/pkg/logger"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultThreshold = 3
	defaultCooldown  = time.Minute
	maxTextDetail    = 400
	maxBodyBytes     = 1 << 20
)

var defaultURLs = map[ledger.Network]string{
	ledger.Testnet: "https://faucet.altnet.rippletest.net/accounts",
	ledger.Devnet:  "https://faucet.devnet.rippletest.net/accounts",
}

// DefaultURL returns the public faucet for a test network, or "" when the
// network has none.
func DefaultURL(n ledger.Network) string {
	return defaultURLs[n]
}

// Result is the outcome of one funding request. Detail carries the
// faucet's JSON body, or a status/text summary when the body is not JSON.
type Result struct {
	OK         bool                   `json:"ok"`
	StatusCode int                    `json:"status_code,omitempty"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
}

// Config configures the faucet client.
type Config struct {
	URL              string
	Timeout          time.Duration
	FailureThreshold uint32
	Cooldown         time.Duration
	HTTPClient       *http.Client
}

// Client funds addresses through an HTTP faucet guarded by a circuit
// breaker so a dead faucet is not hammered by every activation.
type Client struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *logger.Logger
}

// New creates a faucet client.
func New(cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefault("faucet")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaultThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:    "faucet",
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithField("from", from.String()).WithField("to", to.String()).Warn("faucet circuit state changed")
		},
	}

	return &Client{
		url:        cfg.URL,
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		log:        log,
	}
}

// errUnfunded marks a completed request the faucet refused, so the breaker
// counts it as a failure.
var errUnfunded = errors.New("faucet refused")

// Fund asks the faucet to fund address. It never returns an error: every
// failure is described in the Result.
func (c *Client) Fund(ctx context.Context, address string) Result {
	if c.url == "" {
		return Result{Detail: map[string]interface{}{"error": "no faucet configured"}}
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		res := c.request(ctx, address)
		if !res.OK {
			return res, errUnfunded
		}
		return res, nil
	})
	if res, ok := out.(Result); ok {
		c.log.WithField("address", address).WithField("ok", res.OK).WithField("status", res.StatusCode).Info("faucet request finished")
		return res
	}

	c.log.WithError(err).WithField("address", address).Warn("faucet request skipped")
	return Result{Detail: map[string]interface{}{"error": err.Error()}}
}

func (c *Client) request(ctx context.Context, address string) Result {
	body, err := json.Marshal(map[string]string{"destination": address})
	if err != nil {
		return Result{Detail: map[string]interface{}{"error": err.Error()}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{Detail: map[string]interface{}{"error": err.Error()}}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Detail: map[string]interface{}{"error": fmt.Sprintf("request failed: %v", err)}}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{StatusCode: resp.StatusCode, Detail: map[string]interface{}{"error": err.Error()}}
	}

	res := Result{StatusCode: resp.StatusCode}
	parsed := gjson.ParseBytes(raw)
	if !gjson.ValidBytes(raw) || !parsed.IsObject() {
		res.Detail = map[string]interface{}{"status_code": resp.StatusCode, "text": truncateText(raw, maxTextDetail)}
		return res
	}

	if m, ok := parsed.Value().(map[string]interface{}); ok {
		res.Detail = m
	}
	res.OK = resp.StatusCode >= 200 && resp.StatusCode < 300
	return res
}

// truncateText keeps at most max characters of body, never splitting a
// multi-byte character.
func truncateText(body []byte, max int) string {
	text := []rune(string(body))
	if len(text) > max {
		text = text[:max]
	}
	return string(text)
}
