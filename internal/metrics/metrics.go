package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes Prometheus metrics for the node. All methods are safe on a nil receiver.
type Recorder struct {
	received       *prometheus.CounterVec
	sent           *prometheus.CounterVec
	decodeErrors   prometheus.Counter
	handleDuration *prometheus.HistogramVec
	handleErrors   *prometheus.CounterVec
	values         *prometheus.CounterVec
	seenGauge      prometheus.Gauge
	fanout         prometheus.Counter
	pendingAcks    prometheus.Gauge
	acks           *prometheus.CounterVec
	resends        prometheus.Counter
	retryTicks     prometheus.Counter
	topologyNodes  prometheus.Gauge
}

// NewRecorder registers metrics with provided registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gossip_envelopes_received_total",
			Help: "Inbound envelopes grouped by body type",
		}, []string{"type"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gossip_envelopes_sent_total",
			Help: "Outbound envelopes grouped by body type",
		}, []string{"type"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gossip_decode_errors_total",
			Help: "Input lines that could not be decoded into an envelope",
		}),
		handleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gossip_handle_duration_seconds",
			Help:    "Time spent handling one inbound envelope",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"type"}),
		handleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gossip_handle_errors_total",
			Help: "Per-message handling failures grouped by reason",
		}, []string{"reason"}),
		values: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gossip_broadcast_values_total",
			Help: "Broadcast values received grouped by novelty",
		}, []string{"result"}),
		seenGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gossip_seen_values",
			Help: "Distinct broadcast values observed by this node",
		}),
		fanout: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gossip_fanout_sent_total",
			Help: "First transmissions of fan-out broadcast messages",
		}),
		pendingAcks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gossip_pending_acks",
			Help: "Fan-out messages awaiting acknowledgment",
		}),
		acks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gossip_acks_total",
			Help: "Broadcast acknowledgments grouped by outcome",
		}, []string{"outcome"}),
		resends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gossip_resends_total",
			Help: "Fan-out messages retransmitted after the retry threshold",
		}),
		retryTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gossip_retry_ticks_total",
			Help: "Retry scheduler firings handled by the event loop",
		}),
		topologyNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gossip_topology_nodes",
			Help: "Nodes present in the current topology",
		}),
	}
	reg.MustRegister(
		r.received,
		r.sent,
		r.decodeErrors,
		r.handleDuration,
		r.handleErrors,
		r.values,
		r.seenGauge,
		r.fanout,
		r.pendingAcks,
		r.acks,
		r.resends,
		r.retryTicks,
		r.topologyNodes,
	)
	return r
}

// Handler returns HTTP handler serving /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ObserveReceived counts an inbound envelope.
func (r *Recorder) ObserveReceived(kind string) {
	if r == nil {
		return
	}
	r.received.WithLabelValues(labelOrUnknown(kind)).Inc()
}

// ObserveSent counts an outbound envelope.
func (r *Recorder) ObserveSent(kind string) {
	if r == nil {
		return
	}
	r.sent.WithLabelValues(labelOrUnknown(kind)).Inc()
}

func (r *Recorder) ObserveDecodeError() {
	if r == nil {
		return
	}
	r.decodeErrors.Inc()
}

// ObserveHandled records how long handling one envelope took.
func (r *Recorder) ObserveHandled(kind string, d time.Duration) {
	if r == nil {
		return
	}
	r.handleDuration.WithLabelValues(labelOrUnknown(kind)).Observe(d.Seconds())
}

// ObserveHandleError increments the failure counter with reason label.
func (r *Recorder) ObserveHandleError(reason string) {
	if r == nil {
		return
	}
	r.handleErrors.WithLabelValues(labelOrUnknown(reason)).Inc()
}

// ObserveValue records whether a broadcast value was new or a duplicate.
func (r *Recorder) ObserveValue(fresh bool) {
	if r == nil {
		return
	}
	if fresh {
		r.values.WithLabelValues("new").Inc()
		return
	}
	r.values.WithLabelValues("duplicate").Inc()
}

func (r *Recorder) SetSeenValues(n int) {
	if r == nil {
		return
	}
	r.seenGauge.Set(float64(n))
}

func (r *Recorder) ObserveFanout(n int) {
	if r == nil {
		return
	}
	r.fanout.Add(float64(n))
}

// ObservePendingAcks records tracker depth.
func (r *Recorder) ObservePendingAcks(n int) {
	if r == nil {
		return
	}
	r.pendingAcks.Set(float64(n))
}

// ObserveAck counts an acknowledgment by outcome.
func (r *Recorder) ObserveAck(outcome string) {
	if r == nil {
		return
	}
	r.acks.WithLabelValues(labelOrUnknown(outcome)).Inc()
}

// ObserveResends counts retransmissions produced by one sweep.
func (r *Recorder) ObserveResends(n int) {
	if r == nil {
		return
	}
	r.resends.Add(float64(n))
}

func (r *Recorder) ObserveRetryTick() {
	if r == nil {
		return
	}
	r.retryTicks.Inc()
}

func (r *Recorder) SetTopologyNodes(n int) {
	if r == nil {
		return
	}
	r.topologyNodes.Set(float64(n))
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
