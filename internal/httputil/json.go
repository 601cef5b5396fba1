// Package httputil holds the JSON request and response helpers shared by
// the HTTP handlers and middleware.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// MaxBodyBytes bounds request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrEmptyBody is returned by DecodeJSON for a request without a body.
var ErrEmptyBody = errors.New("request body is empty")

// WriteJSON writes payload with status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorBody is the failure envelope every route uses.
type ErrorBody struct {
	OK     bool        `json:"ok"`
	Error  string      `json:"error"`
	Detail interface{} `json:"detail,omitempty"`
}

// WriteError writes {ok:false, error, detail?}.
func WriteError(w http.ResponseWriter, status int, code string, detail interface{}) {
	WriteJSON(w, status, ErrorBody{Error: code, Detail: detail})
}

// DecodeJSON decodes the request body into dst. Unknown fields are
// accepted; trailing data is not.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid json: trailing data")
	}
	return nil
}

// ClientIP returns the caller address without port, preferring the first
// X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
