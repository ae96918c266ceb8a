package gate

import "github.com/prometheus/client_golang/prometheus"

const outcomeRefunded = "refunded"

var gateDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chatforge_gate_decisions_total",
		Help: "Gate decisions by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(gateDecisions)
}

func recordDecision(outcome string) {
	gateDecisions.WithLabelValues(outcome).Inc()
}
