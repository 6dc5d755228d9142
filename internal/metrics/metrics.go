// Package metrics is the single source of truth for the service's custom
// Prometheus metric names, labels, and help strings. Collectors register
// themselves with the default registry via promauto at package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "erpcore"

// LoginsTotal counts login attempts by result ("success" / "failure").
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// PolicyDenialsTotal counts authorization denials by actor role.
var PolicyDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_denials_total",
		Help:      "Total number of role-policy denials, labelled by actor role.",
	},
	[]string{"role"},
)

// SessionsRevokedTotal counts refresh tokens revoked via logout or
// administrative deactivation.
var SessionsRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of sessions revoked.",
	},
)
