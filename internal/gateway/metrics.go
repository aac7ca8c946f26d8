package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters exposed on /metrics.
var (
	PriceTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcdesk_price_ticks_total",
		Help: "Number of price ticks processed.",
	})

	EventsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btcdesk_ema_events_total",
		Help: "Number of EMA touch/cross events detected.",
	}, []string{"ema", "kind"})

	Liquidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "btcdesk_liquidations_total",
		Help: "Number of auto-liquidated positions.",
	})

	AIDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "btcdesk_ai_decisions_total",
		Help: "Number of AI decisions by outcome.",
	}, []string{"outcome"})

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "btcdesk_ws_clients",
		Help: "Connected dashboard clients.",
	})
)
