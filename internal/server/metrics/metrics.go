// Package metrics exposes Prometheus counters for the access-control flows.
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophguard"

type Metrics struct {
	registry *prometheus.Registry

	loginAttempts     *prometheus.CounterVec
	lockouts          *prometheus.CounterVec
	mfaIssued         prometheus.Counter
	mfaVerifications  *prometheus.CounterVec
	sessions          *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	passwordResets    *prometheus.CounterVec
	optimisticRetries prometheus.Counter
	rpcDuration       *prometheus.HistogramVec
}

// New registers every collector on a private registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		loginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		lockouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_total",
			Help:      "Accounts entering a lockout stage.",
		}, []string{"stage"}),
		mfaIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mfa_challenges_issued_total",
			Help:      "MFA codes issued.",
		}),
		mfaVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mfa_verifications_total",
			Help:      "MFA verifications by result.",
		}, []string{"result"}),
		sessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Session acquisitions and releases.",
		}, []string{"event"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications handed to the transport by kind and result.",
		}, []string{"kind", "result"}),
		passwordResets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_resets_total",
			Help:      "Password reset requests and completions.",
		}, []string{"stage"}),
		optimisticRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimistic_retries_total",
			Help:      "Account updates retried after a version conflict.",
		}),
		rpcDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "gRPC handling time by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Lockout(stage string) {
	if m == nil {
		return
	}
	m.lockouts.WithLabelValues(stage).Inc()
}

func (m *Metrics) MFAIssued() {
	if m == nil {
		return
	}
	m.mfaIssued.Inc()
}

func (m *Metrics) MFAVerification(result string) {
	if m == nil {
		return
	}
	m.mfaVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionAcquired() {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues("acquired").Inc()
}

func (m *Metrics) SessionReleased() {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues("released").Inc()
}

func (m *Metrics) Notification(kind string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) PasswordResetRequested() {
	if m == nil {
		return
	}
	m.passwordResets.WithLabelValues("requested").Inc()
}

func (m *Metrics) PasswordResetCompleted() {
	if m == nil {
		return
	}
	m.passwordResets.WithLabelValues("completed").Inc()
}

func (m *Metrics) OptimisticRetry() {
	if m == nil {
		return
	}
	m.optimisticRetries.Inc()
}

func (m *Metrics) ObserveRPC(method, code string, seconds float64) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(method, code).Observe(seconds)
}
