package jit

import (
	"testing"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

func mustQueue(t *testing.T, cap, maxBeacons int) *Queue {
	t.Helper()
	q, err := NewQueue(cap, maxBeacons)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return q
}

func TestEnqueueAcceptsExactMinStartDelay(t *testing.T) {
	q := mustQueue(t, SizeMax, 1)
	now := uint32(1_000_000)
	_, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, now+MinTxStartDelay, 10000)
	if kind != OK {
		t.Fatalf("got %v, want OK", kind)
	}
}

func TestEnqueueRejectsOneBeforeMinStartDelay(t *testing.T) {
	q := mustQueue(t, SizeMax, 1)
	now := uint32(1_000_000)
	_, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, now+MinTxStartDelay-1, 10000)
	if kind != TooLate {
		t.Fatalf("got %v, want TOO_LATE", kind)
	}
}

func TestEnqueueRejectsTooFarInFuture(t *testing.T) {
	q := mustQueue(t, SizeMax, 1)
	now := uint32(1_000_000)
	_, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, now+MaxAdvance+1, 10000)
	if kind != TooEarly {
		t.Fatalf("got %v, want TOO_EARLY", kind)
	}
}

func TestEnqueueDetectsCollision(t *testing.T) {
	q := mustQueue(t, SizeMax, 1)
	now := uint32(0)
	start := now + MinTxStartDelay + 10000
	if _, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, start, 50000); kind != OK {
		t.Fatalf("first enqueue: %v", kind)
	}
	if _, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, start+10000, 10000); kind != CollisionPacket {
		t.Fatalf("overlap enqueue: got %v, want COLLISION_PACKET", kind)
	}
}

func TestEnqueueBeaconCollisionReportsCollisionBeacon(t *testing.T) {
	q := mustQueue(t, SizeMax, 1)
	now := uint32(0)
	start := now + MinTxStartDelay + 10000
	if _, kind := q.Enqueue(now, &protocol.TXPacket{}, Beacon, start, 200000); kind != OK {
		t.Fatalf("beacon enqueue: %v", kind)
	}
	if _, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, start+50000, 10000); kind != CollisionBeacon {
		t.Fatalf("got %v, want COLLISION_BEACON", kind)
	}
}

func TestEnqueueFullQueue(t *testing.T) {
	q := mustQueue(t, 2, 1)
	now := uint32(0)
	start := now + MinTxStartDelay
	if _, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, start, 1000); kind != OK {
		t.Fatalf("first enqueue: %v", kind)
	}
	if _, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, start+500_000, 1000); kind != OK {
		t.Fatalf("second enqueue: %v", kind)
	}
	if _, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, start+1_000_000, 1000); kind != Full {
		t.Fatalf("got %v, want FULL", kind)
	}
}

func TestCounterWrapAdmitsAndPeeks(t *testing.T) {
	q := mustQueue(t, SizeMax, 1)
	now := uint32(0xFFFFFFF0)
	start := uint32(0xFFFFFFFE) // 14us after now, wraps past 0xFFFFFFFF
	_, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, start, 1000)
	// 14us < MinTxStartDelay so this is expected to be TOO_LATE for a real
	// downlink; use a start far enough out to be admitted, then peek across
	// the wrap boundary.
	if kind != TooLate {
		t.Fatalf("got %v, want TOO_LATE for a 14us-ahead start", kind)
	}

	start = now + MinTxStartDelay
	if _, kind := q.Enqueue(now, &protocol.TXPacket{}, DownlinkClassA, start, 1000); kind != OK {
		t.Fatalf("enqueue near wrap: %v", kind)
	}
	idx := q.Peek(start, 0)
	if idx != 0 {
		t.Fatalf("Peek at exact start = %d, want 0", idx)
	}
	// Advance "now" 14us past the entry's start (both are already past the
	// wrap) and confirm it's still found due.
	afterWrap := start + 14
	if idx := q.Peek(afterWrap, 0); idx != 0 {
		t.Fatalf("Peek after wrap = %d, want 0", idx)
	}
}

func TestDequeueCompactsAndTracksBeaconCount(t *testing.T) {
	q := mustQueue(t, SizeMax, 1)
	now := uint32(0)
	start := now + MinTxStartDelay
	if _, kind := q.Enqueue(now, &protocol.TXPacket{}, Beacon, start, 1000); kind != OK {
		t.Fatalf("enqueue: %v", kind)
	}
	if q.NumBeacon() != 1 {
		t.Fatalf("NumBeacon = %d, want 1", q.NumBeacon())
	}
	entry, err := q.Dequeue(0)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if entry.Type != Beacon {
		t.Errorf("dequeued wrong entry type")
	}
	if q.Len() != 0 || q.NumBeacon() != 0 {
		t.Errorf("queue not empty after dequeue: len=%d numBeacon=%d", q.Len(), q.NumBeacon())
	}
}

func TestNewQueueRejectsOutOfRangeBeaconBound(t *testing.T) {
	if _, err := NewQueue(4, 0); err == nil {
		t.Fatal("expected error for maxBeaconsInQueue=0")
	}
	if _, err := NewQueue(4, 3); err == nil {
		t.Fatal("expected error for maxBeaconsInQueue > capacity/2")
	}
}
