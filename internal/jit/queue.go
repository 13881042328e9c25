// Package jit implements the Just-In-Time downlink queue: a bounded,
// time-ordered, per-RF-chain queue that admits transmit packets by
// collision, too-late and too-early policies and dispatches them near their
// firing time.
package jit

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

// PacketType classifies a queued entry for collision and priority rules.
type PacketType uint8

const (
	Beacon PacketType = iota
	DownlinkClassA
	DownlinkClassB
	DownlinkClassC
)

// ErrorKind is the typed outcome of an Enqueue call.
type ErrorKind uint8

const (
	OK ErrorKind = iota
	Full
	CollisionPacket
	CollisionBeacon
	TooLate
	TooEarly
)

func (e ErrorKind) String() string {
	switch e {
	case OK:
		return "OK"
	case Full:
		return "FULL"
	case CollisionPacket:
		return "COLLISION_PACKET"
	case CollisionBeacon:
		return "COLLISION_BEACON"
	case TooLate:
		return "TOO_LATE"
	case TooEarly:
		return "TOO_EARLY"
	default:
		return "UNKNOWN"
	}
}

// Entry is one admitted TX packet, positioned on the counter timeline.
type Entry struct {
	ID    uuid.UUID
	Pkt   *protocol.TXPacket
	Type  PacketType
	Start uint32 // concentrator counter, microseconds
	End   uint32
}

// Default timing constants. MinTxStartDelay and CollisionMargin mirror the
// historical packet-forwarder defaults (TX_START_DELAY / TX_JIT_DELAY);
// MaxAdvance bounds how far into the future an entry may be scheduled so a
// single bad PULL_RESP can't park the queue for hours, while still leaving
// room for a beacon period (pre-enqueued a full period ahead) to clear it.
const (
	SizeMax         = 16
	MinTxStartDelay = 1500             // microseconds
	MaxAdvance      = 180 * 1_000_000 // microseconds (3min)
	CollisionMargin = 1000             // microseconds
)

// Queue is a single RF chain's JIT queue.
type Queue struct {
	entries       []*Entry
	capacity      int
	numBeacon     int
	maxBeaconsInQ int
}

// NewQueue builds an empty queue for one RF chain. maxBeaconsInQueue bounds
// how many pre-enqueued beacons Downstream may keep in flight at once; per
// the design notes it must be configurable, at least 1, and at most
// capacity/2.
func NewQueue(capacity, maxBeaconsInQueue int) (*Queue, error) {
	if capacity <= 0 {
		capacity = SizeMax
	}
	if maxBeaconsInQueue < 1 || maxBeaconsInQueue > capacity/2 {
		return nil, fmt.Errorf("jit: maxBeaconsInQueue %d out of range [1, %d]", maxBeaconsInQueue, capacity/2)
	}
	return &Queue{capacity: capacity, maxBeaconsInQ: maxBeaconsInQueue}, nil
}

// Len returns the number of entries currently queued.
func (q *Queue) Len() int { return len(q.entries) }

// NumBeacon returns the number of queued beacon entries.
func (q *Queue) NumBeacon() int { return q.numBeacon }

// MaxBeaconsInQueue returns the configured beacon pre-enqueue bound.
func (q *Queue) MaxBeaconsInQueue() int { return q.maxBeaconsInQ }

// Enqueue admits pkt at [start, start+duration) if it passes timing and
// collision checks, keeping entries ordered by Start.
func (q *Queue) Enqueue(now uint32, pkt *protocol.TXPacket, typ PacketType, start uint32, duration uint32) (*Entry, ErrorKind) {
	end := start + duration

	delay := Diff(start, now)
	if delay < MinTxStartDelay {
		return nil, TooLate
	}
	if delay > MaxAdvance {
		return nil, TooEarly
	}

	for _, e := range q.entries {
		if intervalsOverlap(start-CollisionMargin, end+CollisionMargin, e.Start, e.End) {
			if typ == Beacon || e.Type == Beacon {
				return nil, CollisionBeacon
			}
			return nil, CollisionPacket
		}
	}

	if len(q.entries) >= q.capacity {
		return nil, Full
	}

	entry := &Entry{ID: uuid.New(), Pkt: pkt, Type: typ, Start: start, End: end}
	q.insertSorted(entry)
	if typ == Beacon {
		q.numBeacon++
	}
	return entry, OK
}

func (q *Queue) insertSorted(entry *Entry) {
	idx := len(q.entries)
	for i, e := range q.entries {
		if Before(entry.Start, e.Start) {
			idx = i
			break
		}
	}
	q.entries = append(q.entries, nil)
	copy(q.entries[idx+1:], q.entries[idx:])
	q.entries[idx] = entry
}

// Peek returns the index of the earliest entry due to fire at or before
// now+peekMargin, or -1 if none is due.
func (q *Queue) Peek(now uint32, peekMargin uint32) int {
	for i, e := range q.entries {
		if AfterOrEqual(now+peekMargin, e.Start) {
			return i
		}
	}
	return -1
}

// Dequeue removes and returns the entry at idx, compacting the remainder.
func (q *Queue) Dequeue(idx int) (*Entry, error) {
	if idx < 0 || idx >= len(q.entries) {
		return nil, fmt.Errorf("jit: dequeue index %d out of range (len=%d)", idx, len(q.entries))
	}
	entry := q.entries[idx]
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	if entry.Type == Beacon {
		q.numBeacon--
	}
	return entry, nil
}

func intervalsOverlap(aStart, aEnd, bStart, bEnd uint32) bool {
	return Before(aStart, bEnd) && Before(bStart, aEnd)
}
