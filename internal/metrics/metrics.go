package metrics

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Anvoria/authgate/internal/domain/auth"
	"github.com/Anvoria/authgate/internal/domain/token"
)

// Metrics holds the verification and HTTP collectors. It implements auth.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	accepted     *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg uses a fresh
// registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_credentials_accepted_total",
			Help: "Credentials accepted by the verifier, by token type",
		}, []string{"token_type"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_credentials_rejected_total",
			Help: "Credentials rejected by the verifier, by reason and expected token type",
		}, []string{"reason", "expected_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_http_requests_total",
			Help: "HTTP requests served, by method, route and status",
		}, []string{"method", "route", "status"}),
	}

	for _, c := range []prometheus.Collector{m.accepted, m.rejected, m.httpRequests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	// Pre-create every series so dashboards see zeros instead of gaps.
	for _, t := range token.Types {
		m.accepted.WithLabelValues(t.String())
		for _, r := range auth.Reasons {
			m.rejected.WithLabelValues(string(r), t.String())
		}
	}

	return m, nil
}

// Accepted counts an accepted credential
func (m *Metrics) Accepted(t token.Type) {
	m.accepted.WithLabelValues(t.String()).Inc()
}

// Rejected counts a rejected credential
func (m *Metrics) Rejected(r auth.Reason, expected token.Type) {
	m.rejected.WithLabelValues(string(r), expected.String()).Inc()
}

// ObserveDropped exports dropped as the count of verification outcomes that
// never reached the rejection store or the audit log
func (m *Metrics) ObserveDropped(dropped func() uint64) error {
	return m.registry.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "authgate_outcomes_dropped_total",
		Help: "Verification outcomes dropped because the background queue was full",
	}, func() float64 { return float64(dropped()) }))
}

// Middleware counts requests once the handler chain has finished
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		route := c.Route().Path
		m.httpRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		return err
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
