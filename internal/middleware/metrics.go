package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hugs-network/trivia_layer/internal/metrics"
)

// Metrics records request metrics labelled by the matched route template.
func Metrics() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return metrics.InstrumentHandler(next, routeTemplate)
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
