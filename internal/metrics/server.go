package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var scrapes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "metrics_scrapes_total",
	Help:      "The total number of metrics endpoint responses",
}, []string{"status_code"})

// responseWriterInterceptor captures the status code written by the wrapped handler.
type responseWriterInterceptor struct {
	http.ResponseWriter
	statusCode int
}

func (rwi *responseWriterInterceptor) WriteHeader(code int) {
	rwi.statusCode = code
	rwi.ResponseWriter.WriteHeader(code)
}

// Handler serves the default registry and counts its own responses.
func Handler() http.Handler {
	next := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		interceptor := &responseWriterInterceptor{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(interceptor, r)
		scrapes.WithLabelValues(strconv.Itoa(interceptor.statusCode)).Inc()
	})
}

// NewServer returns an HTTP server exposing Handler on /metrics.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
