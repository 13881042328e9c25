package bridge

import (
	"time"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/adminapi"
)

// xtalValidatorLoop watches the time reference's age every second; once it
// exceeds GPSRefMaxAge the reference is no longer trustworthy and the
// XTAL correction state resets to its untrained default, per §4.5.
func (g *Gateway) xtalValidatorLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(xtalValidatorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			if _, valid, _ := g.timeref.Snapshot(); !valid {
				g.timeref.Reset()
				g.reporter.GPS.RecordStale()
				g.publishEvent(&adminapi.Event{Kind: adminapi.EventGPSStale})
			}
		}
	}
}
