package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatforge_ws_connections",
		Help: "Current number of active usage feed connections.",
	})
	wsRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatforge_ws_rooms",
		Help: "Current number of tenant usage rooms with at least one listener.",
	})
	wsEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatforge_usage_events_total",
		Help: "Usage events by stage: published to Redis, publish_failed, received from Redis, delivered to clients.",
	}, []string{"stage"})
)

func init() {
	prometheus.MustRegister(wsConnections, wsRooms, wsEvents)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setRooms(count int) {
	wsRooms.Set(float64(count))
}

func addDelivered(count int) {
	wsEvents.WithLabelValues("delivered").Add(float64(count))
}

func countEvent(stage string) {
	wsEvents.WithLabelValues(stage).Inc()
}
