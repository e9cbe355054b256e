package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qai"

// Signup outcomes used as the "outcome" label.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPInFlight prometheus.Gauge
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Signups              *prometheus.CounterVec
	ReferralCodeRetries  prometheus.Counter
	Withdrawals          *prometheus.CounterVec
	StakingPurchases     *prometheus.CounterVec
	DepositAddressIssued prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		Signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signup",
			Name:      "total",
			Help:      "Signup attempts by outcome and error code.",
		}, []string{"outcome", "code"}),
		ReferralCodeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signup",
			Name:      "referral_code_retries_total",
			Help:      "Signup transactions retried after a referral code collision.",
		}),
		Withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "withdrawals_total",
			Help:      "Withdraw requests by result code.",
		}, []string{"code"}),
		StakingPurchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "purchases_total",
			Help:      "Staking package purchases by result code.",
		}, []string{"code"}),
		DepositAddressIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "deposit_addresses_issued_total",
			Help:      "Deposit addresses generated for users.",
		}),
	}

	m.Registry.MustRegister(
		m.HTTPInFlight,
		m.HTTPRequests,
		m.HTTPDuration,
		m.Signups,
		m.ReferralCodeRetries,
		m.Withdrawals,
		m.StakingPurchases,
		m.DepositAddressIssued,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveSignup records one finished signup. code is empty on success.
func (m *Metrics) ObserveSignup(outcome, code string) {
	if m == nil {
		return
	}
	m.Signups.WithLabelValues(outcome, code).Inc()
}

// ObserveReferralRetry counts one referral code collision.
func (m *Metrics) ObserveReferralRetry() {
	if m == nil {
		return
	}
	m.ReferralCodeRetries.Inc()
}

// ObserveWithdraw records a withdraw attempt; code is "OK" on success.
func (m *Metrics) ObserveWithdraw(code string) {
	if m == nil {
		return
	}
	m.Withdrawals.WithLabelValues(code).Inc()
}

// ObserveStaking records a staking purchase attempt; code is "OK" on success.
func (m *Metrics) ObserveStaking(code string) {
	if m == nil {
		return
	}
	m.StakingPurchases.WithLabelValues(code).Inc()
}

// ObserveDepositAddress counts a newly provisioned deposit address.
func (m *Metrics) ObserveDepositAddress() {
	if m == nil {
		return
	}
	m.DepositAddressIssued.Inc()
}
