package bridge

import (
	"log"
	"time"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/adminapi"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/hal"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/jit"
)

// jitDispatchLoop polls every RF chain's JIT queue every 10ms, dequeuing
// and transmitting whatever entry has come due.
func (g *Gateway) jitDispatchLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(jitDispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			for _, chain := range g.jitChains() {
				g.dispatchChain(chain)
			}
		}
	}
}

func (g *Gateway) dispatchChain(chain uint8) {
	var now uint32
	err := g.withConcent(func() error {
		var ierr error
		now, ierr = g.concent.InstCnt()
		return ierr
	})
	if err != nil {
		log.Printf("bridge: jit: InstCnt failed on chain %d: %v", chain, err)
		return
	}

	var entry *jit.Entry
	g.withJit(chain, func(q *jit.Queue) {
		idx := q.Peek(now, 0)
		if idx < 0 {
			return
		}
		entry, _ = q.Dequeue(idx)
	})
	if entry == nil {
		return
	}

	var status hal.ChainStatus
	err = g.withConcent(func() error {
		var serr error
		status, serr = g.concent.Status(chain)
		return serr
	})
	if err != nil {
		log.Printf("bridge: jit: status query failed on chain %d: %v", chain, err)
		return
	}

	switch status {
	case hal.StatusEmitting:
		log.Printf("bridge: jit: chain %d busy emitting, dropping due entry %s", chain, entry.ID)
		g.reporter.Downstream.RecordRejected("FULL")
		return
	case hal.StatusScheduled:
		log.Printf("bridge: jit: chain %d already has a scheduled tx, overwriting", chain)
	}

	if entry.Type == jit.Beacon {
		if correct, ok := g.timeref.XtalCorrection(); ok {
			entry.Pkt.FreqHz = uint32(float64(entry.Pkt.FreqHz) * correct)
		}
	}

	err = g.withConcent(func() error { return g.concent.Send(entry.Pkt) })
	if err != nil {
		log.Printf("bridge: jit: send failed on chain %d: %v", chain, err)
		return
	}
	g.reporter.Downstream.RecordEmitted()
	if entry.Type == jit.Beacon {
		g.publishEvent(&adminapi.Event{Kind: adminapi.EventBeaconSent, RFChain: uint32(chain)})
	}
}
