package monitoring

import (
	"github.com/cubium/spacore/spa"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsHook counts messages, subscribers and publish ticks per component.
type MetricsHook struct {
	sent        *prometheus.CounterVec
	received    *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
	ticks       *prometheus.CounterVec
}

// NewMetricsHook creates the metrics and registers them with reg.
func NewMetricsHook(reg prometheus.Registerer) *MetricsHook {
	h := &MetricsHook{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacore_msgs_sent_total",
			Help: "Messages handed to the communicator.",
		}, []string{"component", "opcode"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacore_msgs_received_total",
			Help: "Messages accepted for dispatch.",
		}, []string{"component", "opcode"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacore_msgs_dropped_total",
			Help: "Messages ignored by a component.",
		}, []string{"component"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spacore_subscribers",
			Help: "Entries in the subscriber registry.",
		}, []string{"component"}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spacore_publish_ticks_total",
			Help: "Publish ticks run.",
		}, []string{"component"}),
	}

	reg.MustRegister(h.sent, h.received, h.dropped, h.subscribers, h.ticks)

	return h
}

// Func updates the metrics for one hook invocation.
func (h *MetricsHook) Func(ctx spa.HookCtx) {
	name := "unknown"
	if named, ok := ctx.Domain.(spa.Named); ok {
		name = named.Name()
	}

	switch ctx.Pos {
	case spa.HookPosMsgSend:
		h.sent.WithLabelValues(name, opcodeOf(ctx.Item)).Inc()
	case spa.HookPosMsgRecv:
		h.received.WithLabelValues(name, opcodeOf(ctx.Item)).Inc()
	case spa.HookPosMsgDropped:
		h.dropped.WithLabelValues(name).Inc()
	case spa.HookPosSubscriberAdded:
		if added, _ := ctx.Detail.(bool); added {
			h.subscribers.WithLabelValues(name).Inc()
		}
	case spa.HookPosPublishTick:
		h.ticks.WithLabelValues(name).Inc()
	}
}

func opcodeOf(item any) string {
	if msg, ok := item.(spa.Msg); ok {
		return msg.Opcode().String()
	}

	return "unknown"
}
