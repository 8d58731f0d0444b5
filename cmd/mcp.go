package cmd

import (
	"errors"
	"net/http"
	"time"

	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/huangsam/cohortstats/internal/mcp"
	"github.com/huangsam/cohortstats/internal/metrics"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Cohortstats MCP server",
	Long: `Launch an MCP server on stdio that allows AI agents to count, group and drill into
cohorts via standard tools.

Tools: count_population, group_population, drill_down, average_duration

Flags given here (teams, period, population, context file) become the defaults of
every tool call; tool arguments override them.

Examples:
  # Serve tools and expose Prometheus metrics on :9090/metrics
  cohortstats mcp --context-file context.yaml --metrics-addr :9090`,
	// Logs go to stderr so that stdout stays reserved for the protocol.
	PreRunE: sharedSetupWith(nil),
	RunE: func(_ *cobra.Command, _ []string) error {
		if cfg.MetricsAddr != "" {
			go serveMetrics(cfg.MetricsAddr)
		}
		return mcp.StartMCPServer(rootCtx, cfg, store, appMetrics)
	},
}

// serveMetrics exposes the process metrics over HTTP until the process exits.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		contract.LogWarn("Metrics server stopped", err)
	}
}
