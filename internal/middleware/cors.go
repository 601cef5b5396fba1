package middleware

import (
	"net/http"
	"strings"
)

// CORS answers preflight requests and stamps allowed origins.
type CORS struct {
	origins  []string
	allowAll bool
}

// NewCORS allows the listed origins; "*" allows any.
func NewCORS(origins []string) *CORS {
	c := &CORS{}
	for _, o := range origins {
		if o == "*" {
			c.allowAll = true
			continue
		}
		c.origins = append(c.origins, strings.TrimRight(o, "/"))
	}
	return c
}

// Handler is the middleware.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allow := c.allowed(origin); allow != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+TraceHeader)
			h.Set("Access-Control-Expose-Headers", TraceHeader)
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *CORS) allowed(origin string) string {
	if c.allowAll {
		return "*"
	}
	if origin == "" {
		return ""
	}
	for _, o := range c.origins {
		if strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
