package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors groups the service metrics. A nil *Collectors records nothing.
type Collectors struct {
	ChatTurns         *prometheus.CounterVec
	ChatTurnDuration  *prometheus.HistogramVec
	Dispatches        *prometheus.CounterVec
	RestaurantReplies *prometheus.CounterVec
	ExternalFailures  *prometheus.CounterVec
	CandidatesShown   prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	return &Collectors{
		ChatTurns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivery_chat_turns_total",
				Help: "Total number of chat turns by outcome",
			},
			[]string{"outcome"},
		),
		ChatTurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "delivery_chat_turn_duration_seconds",
				Help:    "Duration of chat turn processing in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"state"},
		),
		Dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivery_dispatches_total",
				Help: "Total number of order messages sent to restaurants",
			},
			[]string{"result"},
		),
		RestaurantReplies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivery_restaurant_replies_total",
				Help: "Total number of inbound restaurant messages by class",
			},
			[]string{"class"},
		),
		ExternalFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivery_external_failures_total",
				Help: "Total number of failed calls to external services",
			},
			[]string{"dependency"},
		),
		CandidatesShown: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "delivery_candidates_shown",
				Help:    "Number of restaurant candidates returned per search",
				Buckets: []float64{0, 1, 2, 3},
			},
		),
	}
}

func (c *Collectors) TurnHandled(outcome, state string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.ChatTurns.WithLabelValues(outcome).Inc()
	c.ChatTurnDuration.WithLabelValues(state).Observe(elapsed.Seconds())
}

func (c *Collectors) Dispatched(result string) {
	if c == nil {
		return
	}
	c.Dispatches.WithLabelValues(result).Inc()
}

func (c *Collectors) RestaurantReply(class string) {
	if c == nil {
		return
	}
	c.RestaurantReplies.WithLabelValues(class).Inc()
}

func (c *Collectors) ExternalFailure(dependency string) {
	if c == nil {
		return
	}
	c.ExternalFailures.WithLabelValues(dependency).Inc()
}

func (c *Collectors) Candidates(n int) {
	if c == nil {
		return
	}
	c.CandidatesShown.Observe(float64(n))
}
