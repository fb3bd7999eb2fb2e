// Package metricsvc exposes the Prometheus collectors of the API.
package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/shule/core/auth"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	authzDecisions    *prometheus.CounterVec
	constraintErrors  *prometheus.CounterVec
	credentialsIssued *prometheus.CounterVec
}

// New registers the collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)
	m.gatherer = reg
	return m
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		gatherer: prometheus.DefaultGatherer,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		authzDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authz_decisions_total",
				Help: "Authorization decisions by module, access and outcome",
			},
			[]string{"module", "access", "outcome"},
		),
		constraintErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_constraint_violations_total",
				Help: "Uniqueness violations raised by the store",
			},
			[]string{"collection"},
		),
		credentialsIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credentials_issued_total",
				Help: "Accounts issued with a one-time password",
			},
			[]string{"role"},
		),
	}
	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.authzDecisions,
		m.constraintErrors,
		m.credentialsIssued,
	)
	return m
}

// ObserveDecision is an auth.DecisionObserver.
func (m *Metrics) ObserveDecision(module auth.Module, access auth.Access, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.authzDecisions.WithLabelValues(string(module), string(access), outcome).Inc()
}

// ObserveConstraint is a gormdb.ConstraintObserver.
func (m *Metrics) ObserveConstraint(collection string) {
	m.constraintErrors.WithLabelValues(collection).Inc()
}

func (m *Metrics) CredentialsIssued(role auth.Role) {
	m.credentialsIssued.WithLabelValues(string(role)).Inc()
}

// Middleware records the count and duration of every request, labelled by route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			method := c.Request().Method
			path := c.Path()
			statusStr := strconv.Itoa(status)

			m.requests.WithLabelValues(method, path, statusStr).Inc()
			m.requestDuration.WithLabelValues(method, path, statusStr).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
