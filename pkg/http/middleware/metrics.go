package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	applogger "StockCast/pkg/logger"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	size     *prometheus.HistogramVec
}

var (
	httpm     *httpMetrics
	httpmOnce sync.Once
)

func registerHTTPMetrics() *httpMetrics {
	httpmOnce.Do(func() {
		f := promauto.With(prometheus.DefaultRegisterer)
		labels := []string{"route", "method", "status", "class"}
		httpm = &httpMetrics{
			requests: f.NewCounterVec(prometheus.CounterOpts{
				Name: "stockcast_http_requests_total",
				Help: "HTTP requests by route template and status",
			}, labels),
			duration: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "stockcast_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			}, labels),
			inFlight: f.NewGaugeVec(prometheus.GaugeOpts{
				Name: "stockcast_http_in_flight_requests",
				Help: "HTTP requests currently being served",
			}, []string{"route", "method"}),
			size: f.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "stockcast_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			}, labels),
		}
	})
	return httpm
}

// Metrics records request metrics labelled by the echo route template, so
// /api/calibration/:symbol stays one series regardless of symbol. Paths in
// skip (the scrape endpoint) are not measured.
func Metrics(l *applogger.Logger, slowThreshold time.Duration, skip ...string) echo.MiddlewareFunc {
	m := registerHTTPMetrics()
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := routeLabel(c)
			if skipped[route] {
				return next(c)
			}
			method := c.Request().Method

			m.inFlight.WithLabelValues(route, method).Inc()
			defer m.inFlight.WithLabelValues(route, method).Dec()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			code := c.Response().Status
			status := strconv.Itoa(code)
			class := statusClass(code)
			duration := time.Since(start)
			written := c.Response().Size

			m.requests.WithLabelValues(route, method, status, class).Inc()
			m.duration.WithLabelValues(route, method, status, class).Observe(duration.Seconds())
			m.size.WithLabelValues(route, method, status, class).Observe(float64(written))

			if l == nil {
				return nil
			}
			if code >= 500 {
				l.Error("http request failed",
					applogger.String("route", route),
					applogger.String("method", method),
					applogger.String("status", status),
					applogger.Duration("duration_ms", duration),
					applogger.Int64("bytes", written),
				)
				return nil
			}
			if slowThreshold > 0 && duration >= slowThreshold {
				l.Warn("http request slow",
					applogger.String("route", route),
					applogger.String("method", method),
					applogger.String("status", status),
					applogger.Duration("duration_ms", duration),
					applogger.Int64("bytes", written),
				)
			}
			return nil
		}
	}
}

// routeLabel prefers the registered route template over the raw URL path.
func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
