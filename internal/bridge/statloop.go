package bridge

import (
	"net/http"
	"time"
)

// statisticsLoop assembles a fresh StatReport every stat_interval,
// stages it for Upstream to piggyback on the next PUSH_DATA, and mirrors
// the same snapshot into the Prometheus exporter.
func (g *Gateway) statisticsLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.StatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			_, up, dw, gps := g.reporter.Assemble()
			g.exporter.Update(up, dw, gps)
		}
	}
}

// MetricsHandler exposes the bridge's Prometheus gauges on /metrics; the
// caller wires it into whatever HTTP server it runs.
func (g *Gateway) MetricsHandler() http.Handler {
	return g.exporter.Handler()
}
