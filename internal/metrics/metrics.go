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
// ミドルウェア、ドキュメントストア、サービス層、スイープワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	ObserveStoreOperation(op string, duration time.Duration, err error)
	RecordUploads(stored, dropped int)
	RecordCollectionSizes(products, categories, users int)
	RecordOrphansRemoved(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	storeOps       *prometheus.CounterVec
	storeLatency   *prometheus.HistogramVec
	uploads        *prometheus.CounterVec
	collectionSize *prometheus.GaugeVec
	orphansRemoved prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_store_operations_total",
			Help: "ドキュメントストア操作の回数",
		}, []string{"op", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_store_operation_duration_seconds",
			Help:    "ドキュメントストア操作の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_uploads_total",
			Help: "受け付けた画像ファイル数（stored: 保存, dropped: スロット超過で破棄）",
		}, []string{"result"}),
		collectionSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalog_collection_size",
			Help: "最後に保存したドキュメントのコレクション別件数",
		}, []string{"collection"}),
		orphansRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_orphan_uploads_removed_total",
			Help: "スイープで削除された未参照アップロードの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.storeOps,
		c.storeLatency,
		c.uploads,
		c.collectionSize,
		c.orphansRemoved,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// ObserveStoreOperation はストア操作の結果と所要時間を記録する。
// repository.OperationObserver を実装する。
func (c *Collector) ObserveStoreOperation(op string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.storeOps.WithLabelValues(op, result).Inc()
	c.storeLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordUploads は保存・破棄した画像ファイル数を記録する。
func (c *Collector) RecordUploads(stored, dropped int) {
	if stored > 0 {
		c.uploads.WithLabelValues("stored").Add(float64(stored))
	}
	if dropped > 0 {
		c.uploads.WithLabelValues("dropped").Add(float64(dropped))
	}
}

// RecordCollectionSizes はコレクション別の件数を記録する。
func (c *Collector) RecordCollectionSizes(products, categories, users int) {
	c.collectionSize.WithLabelValues("products").Set(float64(products))
	c.collectionSize.WithLabelValues("categories").Set(float64(categories))
	c.collectionSize.WithLabelValues("users").Set(float64(users))
}

// RecordOrphansRemoved はスイープで削除したファイル数を記録する。
func (c *Collector) RecordOrphansRemoved(count int) {
	c.orphansRemoved.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
