package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MessagesProcessed *prometheus.CounterVec
	MessagesDeduped   prometheus.Counter
	MessagesLimited   prometheus.Counter
	ErrorsTotal       prometheus.Counter
	TurnDuration      prometheus.Histogram
	TripsPosted       prometheus.Counter
	RidesMatched      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "routerider_messages_processed_total",
			Help: "Inbound chat messages by command.",
		}, []string{"command"}),

		MessagesDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "routerider_messages_deduped_total",
			Help: "Redelivered messages dropped by the dedup check.",
		}),

		MessagesLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "routerider_messages_rate_limited_total",
			Help: "Messages rejected by the per-contact rate limit.",
		}),

		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "routerider_engine_errors_total",
			Help: "Conversation turns that hit an internal error.",
		}),

		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "routerider_turn_duration_seconds",
			Help:    "Time spent processing one conversation turn.",
			Buckets: prometheus.DefBuckets,
		}),

		TripsPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "routerider_trips_posted_total",
			Help: "Trips posted through the chat flow.",
		}),

		RidesMatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "routerider_ride_requests_total",
			Help: "Ride requests by outcome.",
		}, []string{"outcome"}),
	}
}
