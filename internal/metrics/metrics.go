package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScanRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fidscope_scan_runs_total",
		Help: "Total inspection scans",
	})
	ScanErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fidscope_scan_errors_total",
		Help: "Total failed inspection scans",
	})
	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fidscope_scan_duration_seconds",
		Help:    "Inspection scan duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	AccountsScored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fidscope_accounts_scored_total",
		Help: "Total accounts scored",
	})
	SpamDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fidscope_spam_detected_total",
		Help: "Total accounts scored at or above the spam threshold",
	})
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fidscope_provider_requests_total",
		Help: "Total reputation provider requests",
	}, []string{"provider"})
	ProviderFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fidscope_provider_failures_total",
		Help: "Total tolerated reputation provider failures",
	}, []string{"provider", "reason"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fidscope_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fidscope_command_runs_total",
		Help: "Total CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fidscope_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(ScanRuns, ScanErrors, ScanDuration, AccountsScored,
		SpamDetected, ProviderRequests, ProviderFailures, APIRetries,
		CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// Handler returns the prometheus scrape handler for mounting on an existing router.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveScanDuration records a scan duration.
func ObserveScanDuration(start time.Time) {
	ScanDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// IncProviderRequest counts an attempted provider call.
func IncProviderRequest(provider string) { ProviderRequests.WithLabelValues(provider).Inc() }

// IncProviderFailure counts a tolerated provider failure by reason.
func IncProviderFailure(provider, reason string) {
	ProviderFailures.WithLabelValues(provider, reason).Inc()
}

// IncCommandRun counts a CLI command invocation.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError counts a CLI command failure.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
