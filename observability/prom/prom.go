// Package prom exports observability.Observer metrics to Prometheus.
package prom

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mivmi/snakegram/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Observer exports client metrics to Prometheus.
type Observer struct {
	handshakeTotal    *prometheus.CounterVec
	handshakeLatency  prometheus.Histogram
	messagesSent      *prometheus.CounterVec
	containerSize     prometheus.Histogram
	containerBytes    prometheus.Histogram
	saltRotations     prometheus.Counter
	rpcTotal          *prometheus.CounterVec
	rpcLatency        prometheus.Histogram
	updateGaps        *prometheus.CounterVec
	differenceLatency prometheus.Histogram
	differenceApplied prometheus.Histogram
	entityCacheSize   prometheus.Gauge
	entityEvictions   prometheus.Counter
	migrations        *prometheus.CounterVec
}

// NewObserver registers client metrics on the registry.
func NewObserver(reg *prometheus.Registry) *Observer {
	o := &Observer{
		handshakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtproto_handshake_total",
			Help: "Auth-key handshake attempts by result.",
		}, []string{"result"}),
		handshakeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mtproto_handshake_latency_seconds",
			Help:    "Auth-key handshake duration.",
			Buckets: prometheus.DefBuckets,
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtproto_messages_sent_total",
			Help: "Outbound messages by content-related flag.",
		}, []string{"content_related"}),
		containerSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mtproto_container_messages",
			Help:    "Number of messages packed per outbound container.",
			Buckets: prometheus.LinearBuckets(1, 8, 16),
		}),
		containerBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mtproto_container_bytes",
			Help:    "Serialized size of outbound containers.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}),
		saltRotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mtproto_salt_rotations_total",
			Help: "Server-salt installations (initial, bad_server_salt, future_salts).",
		}),
		rpcTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtproto_rpc_total",
			Help: "Completed RPC requests by result.",
		}, []string{"result"}),
		rpcLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mtproto_rpc_latency_seconds",
			Help:    "RPC round-trip latency.",
			Buckets: prometheus.DefBuckets,
		}),
		updateGaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtproto_update_gaps_total",
			Help: "Detected update-sequence gaps by kind.",
		}, []string{"kind"}),
		differenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mtproto_difference_fetch_latency_seconds",
			Help:    "updates.getDifference / getChannelDifference round-trip latency.",
			Buckets: prometheus.DefBuckets,
		}),
		differenceApplied: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mtproto_difference_applied_updates",
			Help:    "Updates applied per difference fetch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		entityCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtproto_entity_cache_size",
			Help: "Current entity cache occupancy.",
		}),
		entityEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mtproto_entity_cache_evictions_total",
			Help: "Entity cache evictions.",
		}),
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtproto_dc_migrations_total",
			Help: "Data-center migrations by destination DC.",
		}, []string{"to_dc"}),
	}
	reg.MustRegister(
		o.handshakeTotal,
		o.handshakeLatency,
		o.messagesSent,
		o.containerSize,
		o.containerBytes,
		o.saltRotations,
		o.rpcTotal,
		o.rpcLatency,
		o.updateGaps,
		o.differenceLatency,
		o.differenceApplied,
		o.entityCacheSize,
		o.entityEvictions,
		o.migrations,
	)
	return o
}

func (o *Observer) Handshake(result observability.HandshakeResult, d time.Duration) {
	o.handshakeTotal.WithLabelValues(string(result)).Inc()
	o.handshakeLatency.Observe(d.Seconds())
}

func (o *Observer) MessageSent(contentRelated bool) {
	label := "false"
	if contentRelated {
		label = "true"
	}
	o.messagesSent.WithLabelValues(label).Inc()
}

func (o *Observer) ContainerPacked(messageCount int, bytes int) {
	o.containerSize.Observe(float64(messageCount))
	o.containerBytes.Observe(float64(bytes))
}

func (o *Observer) SaltRotated() {
	o.saltRotations.Inc()
}

func (o *Observer) RPCCompleted(result observability.RPCResult, d time.Duration) {
	o.rpcTotal.WithLabelValues(string(result)).Inc()
	o.rpcLatency.Observe(d.Seconds())
}

func (o *Observer) UpdateGapDetected(kind observability.GapKind) {
	o.updateGaps.WithLabelValues(string(kind)).Inc()
}

func (o *Observer) DifferenceFetched(d time.Duration, applied int) {
	o.differenceLatency.Observe(d.Seconds())
	o.differenceApplied.Observe(float64(applied))
}

func (o *Observer) EntityCacheSize(n int) {
	o.entityCacheSize.Set(float64(n))
}

func (o *Observer) EntityCacheEvicted() {
	o.entityEvictions.Inc()
}

func (o *Observer) Migration(fromDC, toDC int32) {
	o.migrations.WithLabelValues(strconv.Itoa(int(toDC))).Inc()
}
