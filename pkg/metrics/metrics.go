package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		TurnTotal, TurnDuration,
		LLMDuration, SentimentTotal, ClassifierFailures,
		HistoryLength, Sessions, RetryTotal, RateLimitWaitSeconds,
	)
}

// TurnTotal 对话轮次总数（按结果）
var TurnTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "support_chat_turn_total",
		Help: "对话轮次总数（按结果）",
	},
	[]string{"status"}, // ok | invalid | backend_error
)

// TurnDuration 单轮处理耗时（秒）
var TurnDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "support_chat_turn_duration_seconds",
		Help:    "单轮处理耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
)

// LLMDuration 生成调用耗时（秒）
var LLMDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "support_chat_llm_duration_seconds",
		Help:    "LLM 生成调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

// SentimentTotal 情感标签计数
var SentimentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "support_chat_sentiment_total",
		Help: "情感标签计数",
	},
	[]string{"scope", "label"}, // scope: immediate | aggregate
)

// ClassifierFailures 分类器失败次数（已降级为 neutral）
var ClassifierFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "support_chat_classifier_failures_total",
		Help: "分类器失败并降级为 neutral 的次数",
	},
)

// HistoryLength 每次写入后的会话长度分布；不按会话打标签
var HistoryLength = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "support_chat_history_length",
		Help:    "写入后会话消息数分布",
		Buckets: prometheus.LinearBuckets(2, 4, 10),
	},
)

// Sessions 当前内存中的会话数
var Sessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "support_chat_sessions",
		Help: "当前内存中的会话数",
	},
)

// RetryTotal 后端重试次数
var RetryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "support_chat_retry_total",
		Help: "后端调用重试次数",
	},
	[]string{"target"}, // llm | classifier
)

// RateLimitWaitSeconds 限流等待耗时
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "support_chat_rate_limit_wait_seconds",
		Help:    "LLM 限流等待耗时（秒）",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5},
	},
	[]string{"provider"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
