package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
					break
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordOAuthStart_IncrementsCounter はOAuth開始カウンタが増加することを検証する。
func TestRecordOAuthStart_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOAuthStart("linkedin")
	c.RecordOAuthStart("linkedin")
	c.RecordOAuthStart("instagram")

	if got := counterValue(t, reg, "inrcy_oauth_start_total", map[string]string{"provider": "linkedin"}); got != 2 {
		t.Errorf("oauth_start_total{provider=linkedin} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "inrcy_oauth_start_total", map[string]string{"provider": "instagram"}); got != 1 {
		t.Errorf("oauth_start_total{provider=instagram} = %v, want 1", got)
	}
}

// TestRecordOAuthCallback_ResultLabel はコールバック結果がラベル別に集計されることを検証する。
func TestRecordOAuthCallback_ResultLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOAuthCallback("linkedin", "success")
	c.RecordOAuthCallback("linkedin", "invalid_state")
	c.RecordOAuthCallback("linkedin", "success")

	if got := counterValue(t, reg, "inrcy_oauth_callback_total", map[string]string{"provider": "linkedin", "result": "success"}); got != 2 {
		t.Errorf("oauth_callback_total{result=success} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "inrcy_oauth_callback_total", map[string]string{"provider": "linkedin", "result": "invalid_state"}); got != 1 {
		t.Errorf("oauth_callback_total{result=invalid_state} = %v, want 1", got)
	}
}

// TestRecordDisconnect_IncrementsCounter は連携解除カウンタが増加することを検証する。
func TestRecordDisconnect_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDisconnect("google-calendar")

	if got := counterValue(t, reg, "inrcy_disconnect_total", map[string]string{"provider": "google-calendar"}); got != 1 {
		t.Errorf("disconnect_total = %v, want 1", got)
	}
}

// TestRecordEventRecorded_StreamLabel はイベント記録がストリーム別に集計されることを検証する。
func TestRecordEventRecorded_StreamLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEventRecorded("booster")
	c.RecordEventRecorded("fideliser")
	c.RecordEventRecorded("booster")

	if got := counterValue(t, reg, "inrcy_events_recorded_total", map[string]string{"stream": "booster"}); got != 2 {
		t.Errorf("events_recorded_total{stream=booster} = %v, want 2", got)
	}
}

// TestRecordHTTPStatus_StatusCodeLabel はステータスコード別の集計を検証する。
func TestRecordHTTPStatus_StatusCodeLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)

	if got := counterValue(t, reg, "inrcy_http_status_total", map[string]string{"status_code": "200"}); got != 2 {
		t.Errorf("http_status_total{status_code=200} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "inrcy_http_status_total", map[string]string{"status_code": "401"}); got != 1 {
		t.Errorf("http_status_total{status_code=401} = %v, want 1", got)
	}
}

// TestRecordRequestLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(50 * time.Millisecond)
	c.RecordRequestLatency(120 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "inrcy_request_latency_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 2 {
				t.Errorf("sample count = %d, want 2", count)
			}
		}
	}
	if !found {
		t.Error("inrcy_request_latency_seconds metric not found")
	}
}

// TestSetupMetricsRoute_ServesPrometheusFormat は/metricsがPrometheus形式で応答することを検証する。
func TestSetupMetricsRoute_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordOAuthStart("linkedin")

	handler := SetupMetricsRoute(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "inrcy_oauth_start_total") {
		t.Error("metrics output should contain inrcy_oauth_start_total")
	}
}
