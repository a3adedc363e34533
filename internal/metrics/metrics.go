// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	RecordOAuthStart(slug string)
	RecordOAuthCallback(slug string, result string)
	RecordDisconnect(slug string)
	RecordEventRecorded(stream string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	oauthStart     *prometheus.CounterVec
	oauthCallback  *prometheus.CounterVec
	disconnect     *prometheus.CounterVec
	eventsRecorded *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		oauthStart: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inrcy_oauth_start_total",
			Help: "連携先別のOAuth開始の合計数",
		}, []string{"provider"}),
		oauthCallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inrcy_oauth_callback_total",
			Help: "連携先別・結果別のOAuthコールバックの合計数",
		}, []string{"provider", "result"}),
		disconnect: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inrcy_disconnect_total",
			Help: "連携先別の連携解除の合計数",
		}, []string{"provider"}),
		eventsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inrcy_events_recorded_total",
			Help: "ストリーム別のダッシュボードイベント記録の合計数",
		}, []string{"stream"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inrcy_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inrcy_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.oauthStart,
		c.oauthCallback,
		c.disconnect,
		c.eventsRecorded,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordOAuthStart はOAuth開始を記録する。
func (c *Collector) RecordOAuthStart(slug string) {
	c.oauthStart.WithLabelValues(slug).Inc()
}

// RecordOAuthCallback はOAuthコールバックの結果を記録する。
// resultは "success" / "error" / "invalid_state"。
func (c *Collector) RecordOAuthCallback(slug string, result string) {
	c.oauthCallback.WithLabelValues(slug, result).Inc()
}

// RecordDisconnect は連携解除を記録する。
func (c *Collector) RecordDisconnect(slug string) {
	c.disconnect.WithLabelValues(slug).Inc()
}

// RecordEventRecorded はダッシュボードイベントの記録を記録する。
func (c *Collector) RecordEventRecorded(stream string) {
	c.eventsRecorded.WithLabelValues(stream).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
