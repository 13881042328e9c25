package stats

import (
	"sync"
	"testing"
	"time"
)

func TestUpstreamRecordAndSnapshot(t *testing.T) {
	var u Upstream
	u.RecordRX(true, false, false, true)
	u.RecordRX(false, true, false, false)
	u.RecordPush(true)
	u.RecordPush(false)

	s := u.SnapshotAndReset()
	if s.RxReceived != 2 || s.RxCRCOK != 1 || s.RxCRCBad != 1 || s.RxForwarded != 1 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
	if s.PushSent != 2 || s.PushAcked != 1 {
		t.Fatalf("unexpected push counts: %+v", s)
	}

	zero := u.SnapshotAndReset()
	if zero != (UpstreamSnapshot{}) {
		t.Fatalf("expected zeroed counters after reset, got %+v", zero)
	}
}

func TestDownstreamRecordRejectedByTag(t *testing.T) {
	var d Downstream
	d.RecordRejected("TOO_LATE")
	d.RecordRejected("COLLISION_BEACON")
	d.RecordRejected("bogus_tag")
	d.RecordScheduled()
	d.RecordEmitted()
	d.RecordPullResp()
	d.RecordBeacon(true)
	d.RecordBeacon(false)

	s := d.SnapshotAndReset()
	if s.RejectedTooLate != 1 || s.RejectedCollisionBeacon != 1 {
		t.Fatalf("unexpected rejection counts: %+v", s)
	}
	if s.TxScheduled != 1 || s.TxEmitted != 1 || s.PullReceived != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.BeaconQueued != 1 || s.BeaconRejected != 1 {
		t.Fatalf("unexpected beacon counts: %+v", s)
	}
}

// TestDownstreamSnapshotAndResetDoesNotPanicOnSecondUse guards against a
// whole-struct-reassignment reset that would swap out the mutex out from
// under its own deferred Unlock.
func TestDownstreamSnapshotAndResetDoesNotPanicOnSecondUse(t *testing.T) {
	var d Downstream
	d.RecordScheduled()
	_ = d.SnapshotAndReset()
	d.RecordScheduled()
	_ = d.SnapshotAndReset()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.RecordScheduled()
			d.SnapshotAndReset()
		}()
	}
	wg.Wait()
}

func TestGPSRecordSyncAndStale(t *testing.T) {
	var g GPS
	g.RecordSync(true)
	g.RecordSync(false)
	g.RecordStale()

	s := g.SnapshotAndReset()
	if s.SyncOK != 1 || s.SyncRejected != 1 || s.StaleEvents != 1 {
		t.Fatalf("unexpected GPS snapshot: %+v", s)
	}
}

func TestReporterAssembleComputesAckRatio(t *testing.T) {
	fixed := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	r := NewReporter(func() time.Time { return fixed })
	r.Upstream.RecordRX(true, false, false, true)
	r.Upstream.RecordRX(true, false, false, true)
	r.Upstream.RecordPush(true)
	r.Upstream.RecordPush(false)
	r.Downstream.RecordPullResp()
	r.Downstream.RecordEmitted()

	rep, _, _, _ := r.Assemble()
	if rep.RxNb != 2 || rep.RxOK != 2 || rep.RxFwd != 2 {
		t.Fatalf("unexpected rx fields: %+v", rep)
	}
	if rep.AckR != 50.0 {
		t.Errorf("AckR = %v, want 50.0", rep.AckR)
	}
	if rep.DwNb != 1 || rep.TxNb != 1 {
		t.Fatalf("unexpected dw fields: %+v", rep)
	}
	if rep.HasLocation {
		t.Errorf("expected no location by default")
	}
}

func TestReporterAssembleWithLocation(t *testing.T) {
	r := NewReporter(nil)
	r.SetLocation(Location{Valid: true, Latitude: 45.5, Longitude: -73.6, AltitudeM: 42})
	rep, _, _, _ := r.Assemble()
	if !rep.HasLocation || rep.Latitude != 45.5 || rep.Longitude != -73.6 || rep.AltitudeM != 42 {
		t.Fatalf("unexpected location fields: %+v", rep)
	}
}

func TestReporterAssembleZeroPushSentGivesZeroAckRatio(t *testing.T) {
	r := NewReporter(nil)
	rep, _, _, _ := r.Assemble()
	if rep.AckR != 0 {
		t.Errorf("AckR = %v, want 0 when no datagrams were sent", rep.AckR)
	}
}

func TestReporterTakePendingClearsAfterRead(t *testing.T) {
	r := NewReporter(nil)
	r.Assemble()
	if r.TakePending() == nil {
		t.Fatal("expected a pending report after Assemble")
	}
	if r.TakePending() != nil {
		t.Fatal("expected nil on second take")
	}
}
