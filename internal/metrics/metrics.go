// Package metrics provides Prometheus metrics for cohortstats queries.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the query metrics.
type Metrics struct {
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	RowsReturned  *prometheus.CounterVec
	ToolCalls     *prometheus.CounterVec
}

// New creates and registers all metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohortstats_queries_total",
				Help: "Total number of snapshot queries",
			},
			[]string{"operation", "status"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cohortstats_query_duration_seconds",
				Help:    "Duration of snapshot queries in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		RowsReturned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohortstats_rows_returned_total",
				Help: "Total number of rows returned by snapshot queries",
			},
			[]string{"operation"},
		),
		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cohortstats_mcp_tool_calls_total",
				Help: "Total number of MCP tool calls",
			},
			[]string{"tool", "status"},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveQuery records one snapshot query.
func (m *Metrics) ObserveQuery(operation string, duration time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(operation, status(err)).Inc()
	m.QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err == nil {
		m.RowsReturned.WithLabelValues(operation).Add(float64(rows))
	}
}

// ObserveTool records one MCP tool call.
func (m *Metrics) ObserveTool(tool string, err error) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, status(err)).Inc()
}

// Handler returns the HTTP handler exposing the metrics of g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
