package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposure(t *testing.T) {
	ScanRuns.Inc()
	ScanErrors.Inc()
	IncAPIRetry("/test")
	IncProviderRequest("openrank")
	IncProviderFailure("talent", "timeout")
	ObserveScanDuration(time.Now().Add(-1500 * time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"fidscope_scan_runs_total",
		"fidscope_scan_errors_total",
		"fidscope_scan_duration_seconds",
		"fidscope_provider_requests_total",
		"fidscope_provider_failures_total",
		"fidscope_api_retries_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
