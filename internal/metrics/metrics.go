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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordIngestSuccess()
	RecordIngestFailure(reason string)
	RecordArticlesMaterialized(count int)
	RecordFetchLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ingestSuccess        prometheus.Counter
	ingestFail           *prometheus.CounterVec
	articlesMaterialized prometheus.Counter
	fetchLatency         prometheus.Histogram
	httpStatus           *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ingestSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedic_ingest_success_total",
			Help: "取り込み成功の合計数",
		}),
		ingestFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedic_ingest_fail_total",
			Help: "取り込み失敗の合計数（段階別）",
		}, []string{"reason"}),
		articlesMaterialized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedic_articles_materialized_total",
			Help: "新規保存された記事の合計数",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedic_fetch_latency_seconds",
			Help:    "フィードフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedic_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.ingestSuccess,
		c.ingestFail,
		c.articlesMaterialized,
		c.fetchLatency,
		c.httpStatus,
	)

	return c
}

// RecordIngestSuccess は取り込み成功を記録する。
func (c *Collector) RecordIngestSuccess() {
	c.ingestSuccess.Inc()
}

// RecordIngestFailure は取り込み失敗を失敗段階とともに記録する。
func (c *Collector) RecordIngestFailure(reason string) {
	c.ingestFail.WithLabelValues(reason).Inc()
}

// RecordArticlesMaterialized は新規保存された記事数を記録する。
func (c *Collector) RecordArticlesMaterialized(count int) {
	c.articlesMaterialized.Add(float64(count))
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
