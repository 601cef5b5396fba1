// Package middleware provides the HTTP middleware chain: request tracing
// and logging, metrics, CORS and per-client rate limiting.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/hugs-network/trivia_layer/pkg/logger"
)

// TraceHeader carries the request trace id in both directions.
const TraceHeader = "X-Trace-ID"

type traceKey struct{}

// TraceID returns the trace id stored in ctx, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// WithTraceID stores id in ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// Logging assigns a trace id to every request and logs it on completion.
func Logging(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(TraceHeader)
			if traceID == "" {
				traceID = uuid.New().String()
			}
			w.Header().Set(TraceHeader, traceID)
			r = r.WithContext(WithTraceID(r.Context(), traceID))

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			entry := log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"trace_id":    traceID,
			})
			if wrapped.statusCode >= http.StatusInternalServerError {
				entry.Error("request failed")
			} else {
				entry.Debug("request")
			}
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}
