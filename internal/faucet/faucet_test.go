package faucet

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/hugs-network/trivia_layer/internal/ledger"
	"github.com/hugs-network/trivia_layer/pkg/logger"
)

func TestFundSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "rDest", gjson.GetBytes(body, "destination").String())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"account":{"address":"rDest"},"amount":1000}`)
	}))
	defer srv.Close()

	res := New(Config{URL: srv.URL}, logger.Discard()).Fund(context.Background(), "rDest")
	assert.True(t, res.OK)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.EqualValues(t, 1000, res.Detail["amount"])
}

func TestFundNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "<html>down for maintenance</html>")
	}))
	defer srv.Close()

	res := New(Config{URL: srv.URL}, logger.Discard()).Fund(context.Background(), "rDest")
	assert.False(t, res.OK)
	assert.Equal(t, http.StatusServiceUnavailable, res.Detail["status_code"])
	assert.Equal(t, "<html>down for maintenance</html>", res.Detail["text"])
}

func TestFundLongBodyTruncatedOnCharacters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "x"+strings.Repeat("é", maxBodyBytes))
	}))
	defer srv.Close()

	res := New(Config{URL: srv.URL}, logger.Discard()).Fund(context.Background(), "rDest")
	assert.False(t, res.OK)
	text, ok := res.Detail["text"].(string)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, maxTextDetail, utf8.RuneCountInString(text))
	assert.True(t, strings.HasPrefix(text, "xé"))
}

func TestFundErrorStatusWithJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"slow down"}`)
	}))
	defer srv.Close()

	res := New(Config{URL: srv.URL}, logger.Discard()).Fund(context.Background(), "rDest")
	assert.False(t, res.OK)
	assert.Equal(t, "slow down", res.Detail["error"])
}

func TestFundUnreachableNeverPanics(t *testing.T) {
	res := New(Config{URL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, logger.Discard()).Fund(context.Background(), "rDest")
	assert.False(t, res.OK)
	require.NotNil(t, res.Detail)
	assert.Contains(t, res.Detail["error"], "request failed")
}

func TestFundCircuitOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, FailureThreshold: 2, Cooldown: time.Hour}, logger.Discard())
	for i := 0; i < 4; i++ {
		res := c.Fund(context.Background(), "rDest")
		assert.False(t, res.OK)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	res := c.Fund(context.Background(), "rDest")
	assert.Equal(t, "circuit breaker is open", res.Detail["error"])
}

func TestNoFaucetConfigured(t *testing.T) {
	assert.Empty(t, DefaultURL(ledger.Mainnet))
	assert.NotEmpty(t, DefaultURL(ledger.Testnet))

	res := New(Config{}, logger.Discard()).Fund(context.Background(), "rDest")
	assert.False(t, res.OK)
}
