// Package ledger talks to an XRP Ledger node over JSON-RPC and builds,
// signs and submits the transactions the reward workflows need.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Client provides ledger JSON-RPC functionality.
type Client struct {
	rpcURL     string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	RPCURL     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a new ledger RPC client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{rpcURL: cfg.RPCURL, httpClient: httpClient}, nil
}

// URL returns the node endpoint.
func (c *Client) URL() string { return c.rpcURL }

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// Call makes an RPC call and returns the "result" object. Errors the node
// reports inside the result come back as *RPCError.
func (c *Client) Call(ctx context.Context, method string, params map[string]interface{}) (gjson.Result, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	body, err := json.Marshal(rpcRequest{Method: method, Params: []interface{}{params}})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return gjson.Result{}, fmt.Errorf("%s: http status %d", method, resp.StatusCode)
	}
	if !gjson.ValidBytes(respBody) {
		return gjson.Result{}, fmt.Errorf("%s: malformed response", method)
	}

	result := gjson.GetBytes(respBody, "result")
	if !result.IsObject() {
		return gjson.Result{}, fmt.Errorf("%s: response has no result", method)
	}
	if result.Get("status").String() == "error" || result.Get("error").Exists() {
		return gjson.Result{}, &RPCError{
			Method:  method,
			Code:    result.Get("error").String(),
			Number:  result.Get("error_code").Int(),
			Message: result.Get("error_message").String(),
		}
	}
	return result, nil
}
