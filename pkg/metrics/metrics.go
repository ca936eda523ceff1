package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asysbus/asb-go/pkg/node"
	"github.com/asysbus/asb-go/pkg/wire"
)

const namespace = "asb"

var (
	registerOnce sync.Once

	packetsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Packets received per transport slot.",
		},
		[]string{"slot"},
	)
	packetsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Packets accepted by a transport per slot.",
		},
		[]string{"slot"},
	)
	sendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Packets a transport refused per slot.",
		},
		[]string{"slot"},
	)
	packetsRouted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_routed_total",
			Help:      "Packets re-flooded to the other transports.",
		},
	)
	hooksFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hooks_fired_total",
			Help:      "Hook callback invocations per hook index.",
		},
		[]string{"hook"},
	)
	configFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_failures_total",
			Help:      "Configuration records a module could not load.",
		},
		[]string{"module"},
	)
)

// Register adds the counters to the default registry. Safe to call
// repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packetsReceived, packetsSent, sendErrors, packetsRouted, hooksFired, configFailures)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// RegisterResyncSource exports a decoder resync count for one UART
// transport as asb_uart_resyncs_total{transport}.
func RegisterResyncSource(transport string, resyncs func() uint64) (prometheus.Collector, error) {
	c := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "uart",
			Name:        "resyncs_total",
			Help:        "Partial or malformed UART frames discarded.",
			ConstLabels: prometheus.Labels{"transport": transport},
		},
		func() float64 { return float64(resyncs()) },
	)
	if err := prometheus.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Unregister removes a collector returned by RegisterResyncSource.
func Unregister(c prometheus.Collector) bool {
	return prometheus.Unregister(c)
}

// Recorder feeds controller activity into the counters.
type Recorder struct{}

var _ node.Observer = (*Recorder)(nil)

// NewRecorder registers the counters and returns a Recorder.
func NewRecorder() *Recorder {
	Register()
	return &Recorder{}
}

func (*Recorder) PacketReceived(slot int, _ wire.Packet) {
	packetsReceived.WithLabelValues(strconv.Itoa(slot)).Inc()
}

func (*Recorder) PacketSent(slot int, _ wire.Packet, ok bool) {
	label := strconv.Itoa(slot)
	if ok {
		packetsSent.WithLabelValues(label).Inc()
		return
	}
	sendErrors.WithLabelValues(label).Inc()
}

func (*Recorder) PacketRouted(wire.Packet) {
	packetsRouted.Inc()
}

func (*Recorder) HookFired(index int) {
	hooksFired.WithLabelValues(strconv.Itoa(index)).Inc()
}

func (*Recorder) ConfigFailed(module uint8) {
	configFailures.WithLabelValues(strconv.Itoa(int(module))).Inc()
}
