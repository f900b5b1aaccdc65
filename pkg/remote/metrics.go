package remote

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 请求结果标签
const (
	resultOK        = "ok"
	resultNoStats   = "no_stats"
	resultTransport = "transport_error"
	resultProtocol  = "protocol_error"
)

// Metrics 客户端指标
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics 创建指标，reg 为 nil 时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "videx",
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Statistics server requests by result.",
		}, []string{"function", "result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "videx",
			Subsystem: "remote",
			Name:      "request_duration_seconds",
			Help:      "Statistics server round trip latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration)
	}
	return m
}

func (m *Metrics) observe(function, result string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(function, result).Inc()
	m.Duration.Observe(seconds)
}
