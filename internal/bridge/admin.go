package bridge

import (
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/adminapi"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/hal"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/jit"
)

// AdminHub exposes the Gateway's event broadcaster so cmd/lora-pkt-fwd can
// hand it to an adminapi.Server alongside the Gateway itself.
func (g *Gateway) AdminHub() *adminapi.Hub {
	return g.adminHub
}

// AdminStatus satisfies adminapi.StatusSource, reporting a live snapshot
// without disturbing the counters the statistics loop resets each
// stat_interval.
func (g *Gateway) AdminStatus() adminapi.StatusResponse {
	_, valid, age := g.timeref.Snapshot()
	xtal, xtalOK := g.timeref.XtalCorrection()

	up := g.reporter.Upstream.Peek()
	dw := g.reporter.Downstream.Peek()

	return adminapi.StatusResponse{
		GatewayID:       g.cfg.GatewayID,
		UptimeSec:       int64(g.now().Sub(g.startedAt).Seconds()),
		RxReceived:      up.RxReceived,
		RxForwarded:     up.RxForwarded,
		PushSent:        up.PushSent,
		PushAcked:       up.PushAcked,
		TxScheduled:     dw.TxScheduled,
		TxEmitted:       dw.TxEmitted,
		GPSValid:        valid,
		GPSAgeSec:       age.Seconds(),
		XtalCorrect:     xtal,
		XtalDisciplined: xtalOK,
		Chains:          g.chainStatusSnapshot(),
	}
}

// chainStatusSnapshot reports per-chain queue depth and HAL emitter status.
func (g *Gateway) chainStatusSnapshot() []adminapi.ChainStatus {
	chains := g.jitChains()
	out := make([]adminapi.ChainStatus, 0, len(chains))
	for _, chain := range chains {
		cs := adminapi.ChainStatus{RFChain: uint32(chain)}
		g.withJit(chain, func(q *jit.Queue) {
			cs.QueueLen = int32(q.Len())
			cs.QueueNumBcn = int32(q.NumBeacon())
		})

		var status hal.ChainStatus
		err := g.withConcent(func() error {
			var serr error
			status, serr = g.concent.Status(chain)
			return serr
		})
		if err != nil {
			cs.HALStatus = "ERROR"
		} else {
			cs.HALStatus = halStatusString(status)
		}
		out = append(out, cs)
	}
	return out
}

func halStatusString(s hal.ChainStatus) string {
	switch s {
	case hal.StatusOff:
		return "OFF"
	case hal.StatusScheduled:
		return "SCHEDULED"
	case hal.StatusEmitting:
		return "EMITTING"
	default:
		return "UNKNOWN"
	}
}

func (g *Gateway) publishEvent(e *adminapi.Event) {
	if g.adminHub == nil {
		return
	}
	e.Time = g.now()
	g.adminHub.Publish(e)
}
