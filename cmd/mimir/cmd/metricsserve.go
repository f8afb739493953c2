package cmd

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// registry is the single Prometheus registry every subcommand's Service
// records its outcomes against, so metrics-serve can expose them all from
// one process regardless of which operation ran first.
var registry = prometheus.NewRegistry()

func prometheusRegistry() prometheus.Registerer {
	return registry
}

var metricsServeCmd = &cobra.Command{
	Use:   "metrics-serve",
	Short: "Serve Prometheus metrics for repair operations run in this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on %s/metrics\n", addr)
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	metricsServeCmd.Flags().String("listen", ":9090", "address to serve /metrics on")
	rootCmd.AddCommand(metricsServeCmd)
}
