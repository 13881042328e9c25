// Package hal defines the concentrator hardware-abstraction-layer facade:
// the external collaborator this bridge drives to receive and transmit
// radio frames. The interface is intentionally narrow so every caller
// funnels through the single-accessor discipline the bridge enforces with
// its own mutex.
package hal

import "github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"

// ChainStatus is the TX state of one RF chain, as reported by the HAL
// before the JIT dispatcher hands it a new packet.
type ChainStatus uint8

const (
	StatusOff ChainStatus = iota
	StatusStandby
	StatusScheduled
	StatusEmitting
)

// Concentrator is the narrow HAL contract: receive/send/status/counters and
// lifecycle. Every method may block briefly but must not hold the caller
// past one round-trip; the bridge is responsible for serializing access via
// its own named mutex, not this interface.
type Concentrator interface {
	Start() error
	Stop() error

	// Receive drains up to maxPkt newly received packets, non-blocking
	// beyond one HAL round-trip.
	Receive(maxPkt int) ([]*protocol.RXPacket, error)

	// Send schedules pkt for transmission. For TxOnGPS/TxTimestamped modes
	// the HAL is expected to fire at the given counter value; for
	// TxImmediate it fires as soon as possible.
	Send(pkt *protocol.TXPacket) error

	// Status reports the current TX state of an RF chain.
	Status(rfChain uint8) (ChainStatus, error)

	// InstCnt returns the concentrator's free-running counter value "now".
	InstCnt() (uint32, error)

	// TrigCnt returns the counter value latched at the most recent PPS
	// edge, for GPS time-reference synchronization.
	TrigCnt() (uint32, error)

	// Reset reinitializes the concentrator after a fatal HAL error.
	Reset() error
}
