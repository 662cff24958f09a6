package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"order-lifecycle/order"
)

// Lifecycle 订单状态机指标，实现 order.Recorder。
type Lifecycle struct {
	Transitions *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	RoundTrip   *prometheus.HistogramVec
	States      *prometheus.GaugeVec
}

var _ order.Recorder = (*Lifecycle)(nil)

var allTags = []order.StateTag{
	order.TagInsertPending,
	order.TagInserted,
	order.TagCancelPending,
	order.TagFinalized,
}

// NewLifecycle 在 reg 上注册指标；reg 为 nil 时使用默认注册表。
func NewLifecycle(reg prometheus.Registerer) *Lifecycle {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Lifecycle{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Applied order state transitions.",
		}, []string{"from", "to", "event"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "order_invalid_transitions_total",
			Help: "Events rejected because no edge exists from the current state.",
		}, []string{"from", "event"}),
		RoundTrip: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "order_request_rtt_seconds",
			Help:    "Time between sending an insert/cancel request and its acknowledgement.",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
		States: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "order_states",
			Help: "Tracked orders per lifecycle state.",
		}, []string{"state"}),
	}
}

func (l *Lifecycle) ObserveTransition(from, to order.StateTag, event string) {
	l.Transitions.WithLabelValues(string(from), string(to), event).Inc()
}

func (l *Lifecycle) ObserveRejection(from order.StateTag, event string) {
	l.Rejections.WithLabelValues(string(from), event).Inc()
}

func (l *Lifecycle) ObserveRoundTrip(kind string, d time.Duration) {
	l.RoundTrip.WithLabelValues(kind).Observe(d.Seconds())
}

// SetStateCounts 未出现的状态置 0
func (l *Lifecycle) SetStateCounts(counts map[order.StateTag]int) {
	for _, tag := range allTags {
		l.States.WithLabelValues(string(tag)).Set(float64(counts[tag]))
	}
}
