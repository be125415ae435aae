package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Auth-flow Prometheus metrics. Standalone package to avoid import cycles
// between HTTP handlers and the clients they instrument.

var (
	LoginStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_login_started_total",
		Help: "Intentos de login iniciados (redirect al provider)",
	})

	LoginCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_login_completed_total",
		Help: "Logins completados con sesión establecida",
	})

	LoginFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_failed_total",
		Help: "Logins abortados, por código de error",
	}, []string{"code"})

	TokenExchangeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "auth_token_exchange_latency_ms",
		Help:    "Latencia del canje code->tokens en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	MgmtTokenRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mgmt_token_refreshes_total",
		Help: "Refreshes del token de management API",
	})

	InvitationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "org_invitations_sent_total",
		Help: "Invitaciones a organizaciones enviadas",
	})
)

// Register registers the auth metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		LoginStarted,
		LoginCompleted,
		LoginFailed,
		TokenExchangeLatency,
		MgmtTokenRefreshes,
		InvitationsSent,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
