package stats

import (
	"sync"
	"time"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

// Location is the gateway's position, as last reported by the GPS worker
// (real fix) or configured statically in gateway_conf (fake GPS).
type Location struct {
	Valid     bool
	Latitude  float64
	Longitude float64
	AltitudeM int32
}

// Reporter assembles the periodic StatReport from the three counter
// groups plus the current location, and holds mx_stat_rep: the named
// mutex guarding the "is a report currently pending pickup by the
// Upstream worker" hand-off.
type Reporter struct {
	Upstream   Upstream
	Downstream Downstream
	GPS        GPS

	mu       sync.Mutex
	pending  *protocol.StatReport
	location Location

	now func() time.Time
}

// NewReporter builds a Reporter; nowFn defaults to time.Now when nil.
func NewReporter(nowFn func() time.Time) *Reporter {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Reporter{now: nowFn}
}

// SetLocation updates the position used for the next assembled report.
// Called by the GPS worker on a fresh RMC fix, or once at startup from
// static gateway_conf fields when fake_gps is enabled (RMC fixes are then
// ignored).
func (r *Reporter) SetLocation(loc Location) {
	r.mu.Lock()
	r.location = loc
	r.mu.Unlock()
}

// Assemble snapshots all three counter groups, builds a StatReport, and
// stages it as the pending report. Called by the statistics worker on its
// stat_interval tick; the raw snapshots are returned alongside the report
// so the caller can also feed a Prometheus Exporter without re-snapshotting
// (which would see only zeros, since SnapshotAndReset already cleared them).
func (r *Reporter) Assemble() (*protocol.StatReport, UpstreamSnapshot, DownstreamSnapshot, GPSSnapshot) {
	up := r.Upstream.SnapshotAndReset()
	dw := r.Downstream.SnapshotAndReset()
	gps := r.GPS.SnapshotAndReset()

	var ackR float32
	if up.PushSent > 0 {
		ackR = 100 * float32(up.PushAcked) / float32(up.PushSent)
	}

	r.mu.Lock()
	loc := r.location
	r.mu.Unlock()

	report := &protocol.StatReport{
		Time:        r.now(),
		HasLocation: loc.Valid,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		AltitudeM:   loc.AltitudeM,
		RxNb:        up.RxReceived,
		RxOK:        up.RxCRCOK,
		RxFwd:       up.RxForwarded,
		AckR:        ackR,
		DwNb:        dw.PullReceived,
		TxNb:        dw.TxEmitted,
	}

	r.mu.Lock()
	r.pending = report
	r.mu.Unlock()
	return report, up, dw, gps
}

// TakePending returns and clears the last assembled report, if any has
// not yet been picked up. The Upstream worker calls this right before
// building its next PUSH_DATA datagram, so the stat object rides along
// on the very next uplink rather than waiting for its own datagram.
func (r *Reporter) TakePending() *protocol.StatReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := r.pending
	r.pending = nil
	return rep
}
