package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth outcome counters, exposed on /metrics. Labels carry the outcome, not
// the identity: nothing user-identifying is recorded.
var (
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartshare",
		Subsystem: "auth",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	RefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cartshare",
		Subsystem: "auth",
		Name:      "refreshes_total",
		Help:      "Refresh token rotations by result.",
	}, []string{"result"})

	CSRFRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cartshare",
		Subsystem: "auth",
		Name:      "csrf_rejections_total",
		Help:      "Requests rejected by the CSRF double-submit check.",
	})
)
