package stats

import (
	"net"
	"net/http"
	"time"

	"github.com/facebookgo/httpdown"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeMetrics serves the metrics of gatherer on /metrics of listener
// until the returned server is stopped. Stop waits for open requests
// to finish.
func ServeMetrics(listener net.Listener, gatherer prometheus.Gatherer) httpdown.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	h := httpdown.HTTP{
		StopTimeout: 10 * time.Second,
		KillTimeout: 5 * time.Second,
	}
	return h.Serve(&http.Server{Handler: mux}, listener)
}
