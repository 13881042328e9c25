package hal

import (
	"sync"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

// Fake is an in-memory Concentrator for tests: packets are injected with
// Inject and dequeued with Receive; Send records every scheduled packet for
// later assertion instead of touching hardware.
type Fake struct {
	mu       sync.Mutex
	rx       []*protocol.RXPacket
	sent     []*protocol.TXPacket
	status   map[uint8]ChainStatus
	instCnt  uint32
	trigCnt  uint32
	started  bool
	sendErr  error
}

// NewFake builds an empty fake concentrator.
func NewFake() *Fake {
	return &Fake{status: make(map[uint8]ChainStatus)}
}

func (f *Fake) Start() error { f.mu.Lock(); f.started = true; f.mu.Unlock(); return nil }
func (f *Fake) Stop() error  { f.mu.Lock(); f.started = false; f.mu.Unlock(); return nil }

// Inject queues rx packets as if the HAL had just received them.
func (f *Fake) Inject(pkts ...*protocol.RXPacket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = append(f.rx, pkts...)
}

func (f *Fake) Receive(maxPkt int) ([]*protocol.RXPacket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := maxPkt
	if n > len(f.rx) {
		n = len(f.rx)
	}
	out := f.rx[:n]
	f.rx = f.rx[n:]
	return out, nil
}

// SetSendError makes the next Send calls fail, to exercise transient-error
// handling in callers.
func (f *Fake) SetSendError(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *Fake) Send(pkt *protocol.TXPacket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, pkt)
	return nil
}

// Sent returns every packet passed to Send so far, for test assertions.
func (f *Fake) Sent() []*protocol.TXPacket {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*protocol.TXPacket, len(f.sent))
	copy(out, f.sent)
	return out
}

// SetStatus configures what Status reports for an RF chain.
func (f *Fake) SetStatus(rfChain uint8, status ChainStatus) {
	f.mu.Lock()
	f.status[rfChain] = status
	f.mu.Unlock()
}

func (f *Fake) Status(rfChain uint8) (ChainStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[rfChain], nil
}

// SetInstCnt/SetTrigCnt let tests drive the simulated free-running counter.
func (f *Fake) SetInstCnt(v uint32) { f.mu.Lock(); f.instCnt = v; f.mu.Unlock() }
func (f *Fake) SetTrigCnt(v uint32) { f.mu.Lock(); f.trigCnt = v; f.mu.Unlock() }

func (f *Fake) InstCnt() (uint32, error) { f.mu.Lock(); defer f.mu.Unlock(); return f.instCnt, nil }
func (f *Fake) TrigCnt() (uint32, error) { f.mu.Lock(); defer f.mu.Unlock(); return f.trigCnt, nil }

func (f *Fake) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rx = nil
	f.sent = nil
	f.instCnt = 0
	f.trigCnt = 0
	return nil
}

var _ Concentrator = (*Fake)(nil)
