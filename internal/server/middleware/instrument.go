package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"ai-prompt-generator/admin/internal/telemetry/metrics"
)

// Tracing wraps next with OpenTelemetry HTTP instrumentation using the global providers.
func Tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.request",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, routeTemplate(r))
		}),
		otelhttp.WithPropagators(otel.GetTextMapPropagator()),
	)
}

// Metrics counts requests by method, route template and status. Must run inside the
// router (mux.Router.Use) so the route template is known.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		route := "unmatched"
		if mux.CurrentRoute(r) != nil {
			route = routeTemplate(r)
		}
		metrics.HTTPRequestTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.Status())).Inc()
	})
}
