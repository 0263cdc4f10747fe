package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
)

const outcomeOK = "ok"

// Registry collects bridge metrics on a private prometheus registry.
type Registry struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	calls         *prometheus.HistogramVec
	attention     *prometheus.GaugeVec
}

// NewRegistry registers all bridge collectors.
func NewRegistry() *Registry {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fastwithdraw_withdrawal_requests_total",
		Help: "Withdrawal requests by result",
	}, []string{"result"})

	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fastwithdraw_payment_confirmations_total",
		Help: "Payment confirmations by resulting state or error kind",
	}, []string{"state"})

	calls := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fastwithdraw_external_call_duration_seconds",
		Help:    "Latency of ledger and L2 calls",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
	}, []string{"target", "operation", "outcome"})

	attention := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fastwithdraw_requests_needing_attention",
		Help: "Withdrawal requests an operator has to resolve by hand, by category",
	}, []string{"category"})

	r := prometheus.NewRegistry()
	r.MustRegister(requests, confirmations, calls, attention)

	return &Registry{
		registry:      r,
		requests:      requests,
		confirmations: confirmations,
		calls:         calls,
		attention:     attention,
	}
}

// Handler exposes the registry in the prometheus text format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestOutcome counts one RequestWithdrawal call.
func (m *Registry) RequestOutcome(result string) {
	m.requests.WithLabelValues(result).Inc()
}

// ConfirmationOutcome counts one ConfirmPayment call.
func (m *Registry) ConfirmationOutcome(state string) {
	m.confirmations.WithLabelValues(state).Inc()
}

// ExternalCall observes one ledger or L2 call.
func (m *Registry) ExternalCall(target, operation string, err error, elapsed time.Duration) {
	outcome := outcomeOK
	if err != nil {
		outcome = domainErrors.KindOf(err)
	}
	m.calls.WithLabelValues(target, operation, outcome).Observe(elapsed.Seconds())
}

// RequestsNeedingAttention sets the current count for one attention category.
func (m *Registry) RequestsNeedingAttention(category string, n int) {
	m.attention.WithLabelValues(category).Set(float64(n))
}
