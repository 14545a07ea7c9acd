package cmd

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexensys/scratch3-api/internal/metrics"
	"github.com/nexensys/scratch3-api/util"
)

// metricsServer exposes a Collector over HTTP: Prometheus text on
// /metrics and the JSON snapshot on /stats.
type metricsServer struct {
	srv *http.Server
	ln  net.Listener
}

func serveMetrics(addr string, c *metrics.Collector, logger *util.Logger) (*metricsServer, error) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg, c); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, c.JSON()) //nolint:errcheck
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	ms := &metricsServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := ms.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server: %v", err)
		}
	}()
	logger.Verbose("serving metrics on http://%s/metrics", ln.Addr())
	return ms, nil
}

// Addr returns the listening address.
func (m *metricsServer) Addr() string { return m.ln.Addr().String() }

// Close stops the server, waiting briefly for in-flight scrapes.
func (m *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.srv.Shutdown(ctx)
}
