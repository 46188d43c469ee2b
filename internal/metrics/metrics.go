// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン結果のラベル値
const (
	LoginSuccess          = "success"
	LoginCancelled        = "cancelled"
	LoginProviderError    = "provider_error"
	LoginExchangeFailed   = "exchange_failed"
	LoginInsufficientRole = "insufficient_role"
	LoginError            = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やワーカーから利用する。
type MetricsCollector interface {
	RecordLoginOutcome(outcome string)
	RecordPatientFetchSuccess(count int)
	RecordPatientFetchFailure(reason string)
	RecordBackendStatus(statusCode int)
	RecordPatientFetchLatency(duration time.Duration)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginOutcome    *prometheus.CounterVec
	fetchSuccess    prometheus.Counter
	fetchFail       *prometheus.CounterVec
	backendStatus   *prometheus.CounterVec
	fetchLatency    prometheus.Histogram
	patientsFetched prometheus.Counter
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patientadmin_login_total",
			Help: "結果別のログイン試行数",
		}, []string{"outcome"}),
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patientadmin_patient_fetch_success_total",
			Help: "患者一覧取得成功の合計数",
		}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patientadmin_patient_fetch_fail_total",
			Help: "患者一覧取得失敗の合計数",
		}, []string{"reason"}),
		backendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patientadmin_backend_status_total",
			Help: "バックエンドAPIのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "patientadmin_patient_fetch_latency_seconds",
			Help:    "患者一覧取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		patientsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patientadmin_patients_fetched_total",
			Help: "取得した患者レコードの合計数",
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patientadmin_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.loginOutcome,
		c.fetchSuccess,
		c.fetchFail,
		c.backendStatus,
		c.fetchLatency,
		c.patientsFetched,
		c.sessionsCleaned,
	)

	return c
}

// RecordLoginOutcome はログイン結果を記録する。
func (c *Collector) RecordLoginOutcome(outcome string) {
	c.loginOutcome.WithLabelValues(outcome).Inc()
}

// RecordPatientFetchSuccess は患者一覧取得の成功と件数を記録する。
func (c *Collector) RecordPatientFetchSuccess(count int) {
	c.fetchSuccess.Inc()
	c.patientsFetched.Add(float64(count))
}

// RecordPatientFetchFailure は患者一覧取得の失敗を記録する。
func (c *Collector) RecordPatientFetchFailure(reason string) {
	c.fetchFail.WithLabelValues(reason).Inc()
}

// RecordBackendStatus はバックエンドが返したHTTPステータスコードを記録する。
func (c *Collector) RecordBackendStatus(statusCode int) {
	c.backendStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordPatientFetchLatency は患者一覧取得のレイテンシを記録する。
func (c *Collector) RecordPatientFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordSessionsCleaned は削除されたセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
