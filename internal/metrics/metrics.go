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
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordRegistration()
	RecordEntityCreated(collection string)
	RecordWriteRejected(category string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess   prometheus.Counter
	loginFail      prometheus.Counter
	registrations  prometheus.Counter
	entityCreated  *prometheus.CounterVec
	writeRejected  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posty_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posty_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posty_registrations_total",
			Help: "ユーザー登録の合計数",
		}),
		entityCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posty_entity_created_total",
			Help: "コレクション別の作成エンティティ数",
		}, []string{"collection"}),
		writeRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posty_write_rejected_total",
			Help: "エラーカテゴリ別の拒否された書き込み数",
		}, []string{"category"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posty_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "posty_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.registrations,
		c.entityCreated,
		c.writeRejected,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordEntityCreated はエンティティ作成をコレクション別に記録する。
func (c *Collector) RecordEntityCreated(collection string) {
	c.entityCreated.WithLabelValues(collection).Inc()
}

// RecordWriteRejected は拒否された書き込みをエラーカテゴリ別に記録する。
func (c *Collector) RecordWriteRejected(category string) {
	c.writeRejected.WithLabelValues(category).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler は指定レジストリのメトリクスを公開するHTTPハンドラーを返す。
// GET /metrics で使用する。
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。テスト用。
type NopCollector struct{}

func (NopCollector) RecordLoginSuccess()                {}
func (NopCollector) RecordLoginFailure()                {}
func (NopCollector) RecordRegistration()                {}
func (NopCollector) RecordEntityCreated(string)         {}
func (NopCollector) RecordWriteRejected(string)         {}
func (NopCollector) RecordHTTPStatus(int)               {}
func (NopCollector) RecordRequestLatency(time.Duration) {}
