package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cloudvar"

// Register exposes c on reg as Prometheus collectors.  The values are
// read from c at scrape time, so there is no second copy to keep in sync.
func Register(reg prometheus.Registerer, c *Collector) error {
	counter := func(name, help string, fn func() int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(fn()) })
	}
	gauge := func(name, help string, fn func() int64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(fn()) })
	}

	collectors := []prometheus.Collector{
		gauge("connections_active", "Currently open cloud connections.", c.ActiveConnections),
		counter("connections_total", "Successful cloud handshakes.", c.TotalConnections),
		counter("reconnects_total", "Reconnect attempts after a lost connection.", c.Reconnects),
		counter("frames_received_total", "Parsed inbound frames.", c.FramesIn),
		counter("frames_sent_total", "Frames written to the socket.", c.FramesOut),
		counter("bytes_received_total", "Inbound frame bytes.", c.TotalBytesIn),
		counter("bytes_sent_total", "Outbound frame bytes.", c.TotalBytesOut),
		counter("malformed_frames_total", "Inbound segments dropped as invalid JSON.", c.MalformedFrames),
		gauge("pending_frames", "Frames queued while the connection is not open.", c.Pending),
		counter("errors_total", "Recorded errors.", c.ErrorCount),
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
