// Package metrics exposes Prometheus instrumentation for the assistant.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AgentTurns counts agent turns by outcome ("success" or "failure").
	AgentTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finbot_agent_turns_total",
		Help: "Agent turns processed, by outcome.",
	}, []string{"outcome"})

	// AgentTurnDuration observes wall time per agent turn.
	AgentTurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "finbot_agent_turn_duration_seconds",
		Help:    "Duration of agent turns including model calls.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	// ToolCalls counts tool executions by tool and result code ("ok" on success).
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finbot_tool_calls_total",
		Help: "Tool executions, by tool name and result code.",
	}, []string{"tool", "code"})

	// Forecasts counts forecasts by status.
	Forecasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finbot_forecasts_total",
		Help: "Spending forecasts computed, by status.",
	}, []string{"status"})

	// MarketQuotes counts market quotes by symbol and data source.
	MarketQuotes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finbot_market_quotes_total",
		Help: "Market quotes served, by symbol and source.",
	}, []string{"symbol", "source"})

	// ActiveSessions tracks open chat sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "finbot_active_sessions",
		Help: "Number of open chat sessions.",
	})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
