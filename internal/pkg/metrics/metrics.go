package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initOnce sync.Once

	// HTTPRequestDuration 按方法/路径/状态码统计请求耗时。
	HTTPRequestDuration *prometheus.HistogramVec

	// ScrapeTotal 按结果统计外部页面抓取次数（result: ok / failed）。
	ScrapeTotal *prometheus.CounterVec

	// ReelSavedTotal 统计成功保存的 reel 数量。
	ReelSavedTotal prometheus.Counter

	// SignupConflictTotal 统计因邮箱重复被拒绝的注册次数。
	SignupConflictTotal prometheus.Counter
)

// InitMetrics 注册 Prometheus 指标，可安全地重复调用。
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reeldump_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		ScrapeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reeldump_scrape_total",
			Help: "Outbound metadata scrapes by result.",
		}, []string{"result"})

		ReelSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "reeldump_reel_saved_total",
			Help: "Reels persisted successfully.",
		})

		SignupConflictTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "reeldump_signup_conflict_total",
			Help: "Signups rejected because the email already exists.",
		})
	})
}
