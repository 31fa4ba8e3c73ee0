// Package metrics exposes Prometheus collectors for the telnet relay.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the relay's metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	SessionState    prometheus.Gauge
	Connects        *prometheus.CounterVec
	LinesRead       prometheus.Counter
	LinesForwarded  prometheus.Counter
	LinesInvalid    prometheus.Counter
	LinesSent       prometheus.Counter
	SinkDeliveries  *prometheus.CounterVec
	OutboundBacklog prometheus.GaugeFunc
}

// NewCollector registers the relay metrics against reg, defaulting to the
// global registry when nil. backlog reports the outbound queue length and
// may be nil.
func NewCollector(reg prometheus.Registerer, backlog func() float64) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		SessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dxrelay_session_state",
			Help: "Telnet session state (0 disconnected, 1 connecting, 2 authenticating, 3 active).",
		}),
		Connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dxrelay_connect_attempts_total",
			Help: "Telnet connect cycles, labeled by result.",
		}, []string{"result"}),
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxrelay_lines_read_total",
			Help: "Lines read from the cluster.",
		}),
		LinesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxrelay_lines_forwarded_total",
			Help: "Relevant lines forwarded to the sink queue.",
		}),
		LinesInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxrelay_lines_invalid_total",
			Help: "Lines dropped because they were not valid UTF-8.",
		}),
		LinesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dxrelay_lines_sent_total",
			Help: "Outbound lines written to the cluster.",
		}),
		SinkDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dxrelay_sink_deliveries_total",
			Help: "Lines handed to the sink, labeled by result.",
		}, []string{"result"}),
	}
	if backlog == nil {
		backlog = func() float64 { return 0 }
	}
	c.OutboundBacklog = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "dxrelay_outbound_backlog",
		Help: "Outbound lines waiting to be written to the cluster.",
	}, backlog)

	var err error
	if c.SessionState, err = register(reg, c.SessionState); err != nil {
		return nil, err
	}
	if c.Connects, err = register(reg, c.Connects); err != nil {
		return nil, err
	}
	if c.LinesRead, err = register(reg, c.LinesRead); err != nil {
		return nil, err
	}
	if c.LinesForwarded, err = register(reg, c.LinesForwarded); err != nil {
		return nil, err
	}
	if c.LinesInvalid, err = register(reg, c.LinesInvalid); err != nil {
		return nil, err
	}
	if c.LinesSent, err = register(reg, c.LinesSent); err != nil {
		return nil, err
	}
	if c.SinkDeliveries, err = register(reg, c.SinkDeliveries); err != nil {
		return nil, err
	}
	if c.OutboundBacklog, err = register(reg, c.OutboundBacklog); err != nil {
		return nil, err
	}

	return c, nil
}

// Handler serves the metrics gathered by the collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// SetState records the session state as its numeric value.
func (c *Collector) SetState(state int) {
	if c == nil {
		return
	}
	c.SessionState.Set(float64(state))
}

// Connect counts a connect cycle outcome ("ok", "failed", "rejected").
func (c *Collector) Connect(result string) {
	if c == nil {
		return
	}
	c.Connects.WithLabelValues(result).Inc()
}

// LineRead counts one line read from the socket.
func (c *Collector) LineRead() {
	if c == nil {
		return
	}
	c.LinesRead.Inc()
}

// LineForwarded counts one relevant line queued for the sink.
func (c *Collector) LineForwarded() {
	if c == nil {
		return
	}
	c.LinesForwarded.Inc()
}

// LineInvalid counts one undecodable line.
func (c *Collector) LineInvalid() {
	if c == nil {
		return
	}
	c.LinesInvalid.Inc()
}

// LineSent counts one outbound line written to the socket.
func (c *Collector) LineSent() {
	if c == nil {
		return
	}
	c.LinesSent.Inc()
}

// SinkDelivery counts a sink delivery outcome ("ok", "failed").
func (c *Collector) SinkDelivery(result string) {
	if c == nil {
		return
	}
	c.SinkDeliveries.WithLabelValues(result).Inc()
}

// register adds col to reg, reusing an identical collector that is already
// registered.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return col, err
	}
	return col, nil
}
