package timeref

import (
	"testing"
	"time"
)

func TestSnapshotInvalidBeforeFirstSync(t *testing.T) {
	tr := New(nil)
	_, valid, _ := tr.Snapshot()
	if valid {
		t.Fatal("expected invalid before first sync")
	}
}

func TestSnapshotValidAfterSync(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	tr := New(func() time.Time { return clock })

	tr.Sync(base, base.Add(18*time.Second), 1_000_000)
	ref, valid, age := tr.Snapshot()
	if !valid {
		t.Fatal("expected valid immediately after sync")
	}
	if age != 0 {
		t.Errorf("age = %v, want 0", age)
	}
	if ref.CountUs != 1_000_000 {
		t.Errorf("CountUs = %d", ref.CountUs)
	}
}

func TestSnapshotGoesInvalidAfterMaxAge(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	tr := New(func() time.Time { return clock })
	tr.Sync(base, base, 0)

	clock = base.Add(31 * time.Second)
	_, valid, age := tr.Snapshot()
	if valid {
		t.Errorf("expected invalid after 31s, age=%v", age)
	}
}

func TestXtalCorrectionSeedsFromInitAverage(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	tr := New(func() time.Time { return clock })

	// Perfect samples: counter advances exactly 1e6 us per 1s of GPS time,
	// so the implied XTAL error is exactly 1.0 every time.
	for i := 0; i < XErrInitAvg+1; i++ {
		gps := base.Add(time.Duration(i) * time.Second)
		tr.Sync(gps, gps, uint32(i)*1_000_000)
	}
	correct, ok := tr.XtalCorrection()
	if !ok {
		t.Fatal("expected xtal correction to be OK after init average")
	}
	if correct < 0.999999 || correct > 1.000001 {
		t.Errorf("xtal_correct = %v, want ~1.0", correct)
	}
}

func TestResetClearsXtalState(t *testing.T) {
	tr := New(nil)
	base := time.Now()
	for i := 0; i < XErrInitAvg+1; i++ {
		gps := base.Add(time.Duration(i) * time.Second)
		tr.Sync(gps, gps, uint32(i)*1_000_000)
	}
	if _, ok := tr.XtalCorrection(); !ok {
		t.Fatal("expected xtal correction to be OK before reset")
	}
	tr.Reset()
	correct, ok := tr.XtalCorrection()
	if ok || correct != 1.0 {
		t.Errorf("after reset: correct=%v ok=%v, want 1.0/false", correct, ok)
	}
}

func TestCntConversionsRoundTrip(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := New(func() time.Time { return base })
	tr.Sync(base, base, 1_000_000)

	gps, ok := tr.Cnt2Gps(1_001_000)
	if !ok {
		t.Fatal("Cnt2Gps not ok")
	}
	cnt, ok := tr.Gps2Cnt(gps)
	if !ok {
		t.Fatal("Gps2Cnt not ok")
	}
	if cnt != 1_001_000 {
		t.Errorf("round trip cnt = %d, want 1001000", cnt)
	}
}
