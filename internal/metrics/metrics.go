// Package metrics 定义服务暴露的Prometheus指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shock"

// 服务商尝试结果
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeTimeout     = "timeout"
	OutcomeBreakerOpen = "breaker_open"
)

var (
	// GeoProviderAttempts 地理位置服务商调用次数
	GeoProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "geo",
		Name:      "provider_attempts_total",
		Help:      "Geolocation provider attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	// GeoProviderLatency 地理位置服务商调用耗时
	GeoProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "geo",
		Name:      "provider_duration_seconds",
		Help:      "Geolocation provider call latency.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"provider"})

	// GeoResolutions 地理位置解析最终结果来源
	GeoResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "geo",
		Name:      "resolutions_total",
		Help:      "Geolocation resolutions by record source.",
	}, []string{"source"})

	// VisitsTracked 访问记录次数
	VisitsTracked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "visits_tracked_total",
		Help:      "Tracked visits by persistence result.",
	}, []string{"persisted"})

	// ReturningVisitors 通过布隆过滤器识别的回访设备
	ReturningVisitors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "returning_visitors_total",
		Help:      "Visits whose device hash was seen before.",
	})
)
