// Package metrics holds the Prometheus collectors for the firm portal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Authentication metrics
var (
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cozyhome_auth_login_attempts_total",
			Help: "Firm login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	SessionsReaped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cozyhome_auth_sessions_reaped_total",
			Help: "Sessions deleted because they were no longer valid.",
		},
		[]string{"reason"},
	)

	FirmRegistrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cozyhome_firm_registrations_total",
			Help: "Firm self-registrations by outcome.",
		},
		[]string{"outcome"},
	)
)

// Login outcomes
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeFirmInactive       = "firm_inactive"
	OutcomeRejected           = "rejected"
	OutcomeError              = "error"
)

// Reap reasons
const (
	ReasonExpired      = "expired"
	ReasonUserInactive = "user_inactive"
	ReasonFirmInactive = "firm_inactive"
	ReasonSweep        = "sweep"
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		LoginAttempts, SessionsReaped, FirmRegistrations,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records count and latency per route template, so path
// parameters do not explode label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			labels := []string{c.Request().Method, route, strconv.Itoa(status)}
			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(labels...).Inc()
			return err
		}
	}
}
