// Package stats implements the three mutex-guarded counter groups
// (upstream, downstream, GPS), periodic snapshot-and-reset, JSON status
// report assembly, and a Prometheus exposition of the same counters.
package stats

import "sync"

// Upstream holds counters updated by the Upstream worker, one mutex for
// the whole group per the named-mutex discipline (mx_meas_up).
type Upstream struct {
	mu sync.Mutex

	RxReceived uint32 // all packets fetched from the HAL
	RxCRCOK    uint32
	RxCRCBad   uint32
	RxNoCRC    uint32
	RxForwarded uint32 // packets actually included in a PUSH_DATA

	PushSent uint32
	PushAcked uint32
}

func (u *Upstream) RecordRX(crcOK, crcBad, noCRC bool, forwarded bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.RxReceived++
	switch {
	case crcOK:
		u.RxCRCOK++
	case crcBad:
		u.RxCRCBad++
	case noCRC:
		u.RxNoCRC++
	}
	if forwarded {
		u.RxForwarded++
	}
}

func (u *Upstream) RecordPush(acked bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.PushSent++
	if acked {
		u.PushAcked++
	}
}

// UpstreamSnapshot is an immutable copy of Upstream's fields.
type UpstreamSnapshot struct {
	RxReceived, RxCRCOK, RxCRCBad, RxNoCRC, RxForwarded, PushSent, PushAcked uint32
}

// Peek reads the counter group without resetting it, for a diagnostics
// read that must not disturb the next stat_interval's accounting.
func (u *Upstream) Peek() UpstreamSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	return UpstreamSnapshot{u.RxReceived, u.RxCRCOK, u.RxCRCBad, u.RxNoCRC, u.RxForwarded, u.PushSent, u.PushAcked}
}

// SnapshotAndReset atomically reads and zeroes the counter group.
func (u *Upstream) SnapshotAndReset() UpstreamSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := UpstreamSnapshot{u.RxReceived, u.RxCRCOK, u.RxCRCBad, u.RxNoCRC, u.RxForwarded, u.PushSent, u.PushAcked}
	u.RxReceived, u.RxCRCOK, u.RxCRCBad, u.RxNoCRC, u.RxForwarded, u.PushSent, u.PushAcked = 0, 0, 0, 0, 0, 0, 0
	return s
}

// Downstream holds counters updated by the Downstream worker and JIT
// dispatcher (mx_meas_dw).
type Downstream struct {
	mu sync.Mutex

	PullReceived uint32 // PULL_RESP datagrams parsed
	TxScheduled  uint32 // admitted to JIT
	TxEmitted    uint32 // actually sent by the JIT dispatcher

	RejectedTooLate         uint32
	RejectedTooEarly        uint32
	RejectedCollisionPacket uint32
	RejectedCollisionBeacon uint32
	RejectedTxFreq          uint32
	RejectedTxPower         uint32 // warn, not reject, but tracked distinctly
	RejectedGPSUnlocked     uint32
	RejectedFull            uint32

	BeaconQueued   uint32
	BeaconRejected uint32
}

type DownstreamSnapshot struct {
	PullReceived, TxScheduled, TxEmitted                                         uint32
	RejectedTooLate, RejectedTooEarly, RejectedCollisionPacket, RejectedCollisionBeacon uint32
	RejectedTxFreq, RejectedTxPower, RejectedGPSUnlocked, RejectedFull            uint32
	BeaconQueued, BeaconRejected                                                 uint32
}

func (d *Downstream) RecordPullResp() {
	d.mu.Lock()
	d.PullReceived++
	d.mu.Unlock()
}

func (d *Downstream) RecordScheduled() {
	d.mu.Lock()
	d.TxScheduled++
	d.mu.Unlock()
}

func (d *Downstream) RecordEmitted() {
	d.mu.Lock()
	d.TxEmitted++
	d.mu.Unlock()
}

func (d *Downstream) RecordBeacon(queued bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if queued {
		d.BeaconQueued++
	} else {
		d.BeaconRejected++
	}
}

// RecordRejected bumps the counter matching tag (one of the protocol.Tag*
// constants); unrecognized tags are ignored rather than panicking, since a
// counter-naming mismatch should never take the bridge down.
func (d *Downstream) RecordRejected(tag string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch tag {
	case "TOO_LATE":
		d.RejectedTooLate++
	case "TOO_EARLY":
		d.RejectedTooEarly++
	case "COLLISION_PACKET":
		d.RejectedCollisionPacket++
	case "COLLISION_BEACON":
		d.RejectedCollisionBeacon++
	case "TX_FREQ":
		d.RejectedTxFreq++
	case "TX_POWER":
		d.RejectedTxPower++
	case "GPS_UNLOCKED":
		d.RejectedGPSUnlocked++
	case "FULL":
		d.RejectedFull++
	}
}

// Peek reads the counter group without resetting it.
func (d *Downstream) Peek() DownstreamSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DownstreamSnapshot{
		d.PullReceived, d.TxScheduled, d.TxEmitted,
		d.RejectedTooLate, d.RejectedTooEarly, d.RejectedCollisionPacket, d.RejectedCollisionBeacon,
		d.RejectedTxFreq, d.RejectedTxPower, d.RejectedGPSUnlocked, d.RejectedFull,
		d.BeaconQueued, d.BeaconRejected,
	}
}

func (d *Downstream) SnapshotAndReset() DownstreamSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := DownstreamSnapshot{
		d.PullReceived, d.TxScheduled, d.TxEmitted,
		d.RejectedTooLate, d.RejectedTooEarly, d.RejectedCollisionPacket, d.RejectedCollisionBeacon,
		d.RejectedTxFreq, d.RejectedTxPower, d.RejectedGPSUnlocked, d.RejectedFull,
		d.BeaconQueued, d.BeaconRejected,
	}
	d.PullReceived, d.TxScheduled, d.TxEmitted = 0, 0, 0
	d.RejectedTooLate, d.RejectedTooEarly, d.RejectedCollisionPacket, d.RejectedCollisionBeacon = 0, 0, 0, 0
	d.RejectedTxFreq, d.RejectedTxPower, d.RejectedGPSUnlocked, d.RejectedFull = 0, 0, 0, 0
	d.BeaconQueued, d.BeaconRejected = 0, 0
	return s
}

// GPS holds counters updated by the GPS sync and XTAL validator workers
// (mx_meas_gps).
type GPS struct {
	mu sync.Mutex

	SyncOK       uint32
	SyncRejected uint32
	StaleEvents  uint32
}

type GPSSnapshot struct {
	SyncOK, SyncRejected, StaleEvents uint32
}

func (g *GPS) RecordSync(ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ok {
		g.SyncOK++
	} else {
		g.SyncRejected++
	}
}

func (g *GPS) RecordStale() {
	g.mu.Lock()
	g.StaleEvents++
	g.mu.Unlock()
}

func (g *GPS) SnapshotAndReset() GPSSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := GPSSnapshot{g.SyncOK, g.SyncRejected, g.StaleEvents}
	g.SyncOK, g.SyncRejected, g.StaleEvents = 0, 0, 0
	return s
}
