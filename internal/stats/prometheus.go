package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter republishes the last snapshot of all three counter groups as
// Prometheus gauges on /metrics, alongside the Semtech JSON stat block this
// package hands to Upstream.
type Exporter struct {
	registry *prometheus.Registry

	rxReceived, rxCRCOK, rxCRCBad, rxForwarded prometheus.Gauge
	pushSent, pushAcked                        prometheus.Gauge

	txScheduled, txEmitted prometheus.Gauge
	txRejected             *prometheus.GaugeVec

	gpsSyncOK, gpsSyncRejected, gpsStale prometheus.Gauge
}

// NewExporter registers a fresh set of gauges. Construct one per process;
// the bridge's statistics loop updates it every stat_interval.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	e := &Exporter{
		registry: reg,
		rxReceived: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "upstream", Name: "rx_received", Help: "Packets fetched from the HAL since the last report.",
		}),
		rxCRCOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "upstream", Name: "rx_crc_ok", Help: "Packets with a valid CRC.",
		}),
		rxCRCBad: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "upstream", Name: "rx_crc_bad", Help: "Packets with a failed CRC.",
		}),
		rxForwarded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "upstream", Name: "rx_forwarded", Help: "Packets included in a PUSH_DATA datagram.",
		}),
		pushSent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "upstream", Name: "push_sent", Help: "PUSH_DATA datagrams sent.",
		}),
		pushAcked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "upstream", Name: "push_acked", Help: "PUSH_DATA datagrams acknowledged.",
		}),
		txScheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "downstream", Name: "tx_scheduled", Help: "Downlinks admitted to the JIT queue.",
		}),
		txEmitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "downstream", Name: "tx_emitted", Help: "Downlinks actually transmitted.",
		}),
		txRejected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "downstream", Name: "tx_rejected", Help: "Downlinks rejected, by reason.",
		}, []string{"reason"}),
		gpsSyncOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "gps", Name: "sync_ok", Help: "Accepted GPS time-reference syncs.",
		}),
		gpsSyncRejected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "gps", Name: "sync_rejected", Help: "Rejected GPS time-reference syncs (implausible XTAL error).",
		}),
		gpsStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lora_pkt_fwd", Subsystem: "gps", Name: "stale_events", Help: "Times the time reference was found stale.",
		}),
	}
	reg.MustRegister(e.rxReceived, e.rxCRCOK, e.rxCRCBad, e.rxForwarded, e.pushSent, e.pushAcked,
		e.txScheduled, e.txEmitted, e.txRejected, e.gpsSyncOK, e.gpsSyncRejected, e.gpsStale)
	return e
}

// Handler returns the /metrics HTTP handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Update pushes a fresh snapshot into the gauges.
func (e *Exporter) Update(up UpstreamSnapshot, dw DownstreamSnapshot, gps GPSSnapshot) {
	e.rxReceived.Set(float64(up.RxReceived))
	e.rxCRCOK.Set(float64(up.RxCRCOK))
	e.rxCRCBad.Set(float64(up.RxCRCBad))
	e.rxForwarded.Set(float64(up.RxForwarded))
	e.pushSent.Set(float64(up.PushSent))
	e.pushAcked.Set(float64(up.PushAcked))

	e.txScheduled.Set(float64(dw.TxScheduled))
	e.txEmitted.Set(float64(dw.TxEmitted))
	e.txRejected.WithLabelValues("too_late").Set(float64(dw.RejectedTooLate))
	e.txRejected.WithLabelValues("too_early").Set(float64(dw.RejectedTooEarly))
	e.txRejected.WithLabelValues("collision_packet").Set(float64(dw.RejectedCollisionPacket))
	e.txRejected.WithLabelValues("collision_beacon").Set(float64(dw.RejectedCollisionBeacon))
	e.txRejected.WithLabelValues("tx_freq").Set(float64(dw.RejectedTxFreq))
	e.txRejected.WithLabelValues("tx_power_warn").Set(float64(dw.RejectedTxPower))
	e.txRejected.WithLabelValues("gps_unlocked").Set(float64(dw.RejectedGPSUnlocked))
	e.txRejected.WithLabelValues("full").Set(float64(dw.RejectedFull))

	e.gpsSyncOK.Set(float64(gps.SyncOK))
	e.gpsSyncRejected.Set(float64(gps.SyncRejected))
	e.gpsStale.Set(float64(gps.StaleEvents))
}
