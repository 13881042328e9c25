// Package timeref tracks the GPS time discipline the bridge relies on for
// beacon scheduling and Class B downlinks: the UTC/GPS/counter triple
// sampled at a PPS edge, its staleness, and the crystal drift correction
// derived from successive syncs.
package timeref

import (
	"sync"
	"time"
)

// GPSRefMaxAge is how long a TimeRef stays valid after it was populated.
const GPSRefMaxAge = 30 * time.Second

// XErrInitAvg is the number of initial XTAL error samples averaged to seed
// xtal_correct before the IIR filter takes over.
const XErrInitAvg = 16

// XErrFiltCoef is the IIR low-pass filter coefficient divisor (1/256).
const XErrFiltCoef = 256

// MaxXtalErrorPpm bounds how far a single sync's implied XTAL error may
// deviate from the running estimate before it is rejected as implausible.
const MaxXtalErrorPpm = 50

// TimeRef anchors UTC, GPS and concentrator-counter time at one PPS edge.
type TimeRef struct {
	UTC       time.Time
	GPS       time.Time
	CountUs   uint32
	XtalError float64 // concentrator-clock / ideal, ~1.0
	setAt     time.Time
}

// Tracker holds the current TimeRef plus the XTAL correction state,
// guarded by its own mutex per the named-lock discipline (mx_timeref /
// mx_xcorr kept as two logical regions of one struct for simplicity, since
// they are always read together by callers outside the validator).
type Tracker struct {
	mu       sync.RWMutex
	ref      TimeRef
	valid    bool
	now      func() time.Time

	xcorrMu      sync.Mutex
	xtalCorrect  float64
	xtalOK       bool
	sampleSum    float64
	sampleCount  int
}

// New builds an empty, invalid Tracker. nowFn is injectable for tests; pass
// nil to use time.Now.
func New(nowFn func() time.Time) *Tracker {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Tracker{now: nowFn, xtalCorrect: 1.0}
}

// Sync records a fresh PPS-edge sample as the new TimeRef. The implied XTAL
// error is fed to the correction filter only when it lies within
// MaxXtalErrorPpm of the running estimate; an implausible value is left out
// of the filter, but the TimeRef itself is still updated.
func (t *Tracker) Sync(utc, gps time.Time, countUs uint32) {
	t.mu.Lock()
	prev := t.ref
	hadPrev := t.valid
	now := t.now()
	t.ref = TimeRef{UTC: utc, GPS: gps, CountUs: countUs, setAt: now}
	t.valid = true
	t.mu.Unlock()

	if !hadPrev {
		return
	}
	elapsedWall := gps.Sub(prev.GPS).Seconds()
	if elapsedWall <= 0 {
		return
	}
	elapsedCounter := float64(int32(countUs-prev.CountUs)) / 1e6
	impliedError := elapsedCounter / elapsedWall

	t.xcorrMu.Lock()
	ppm := (impliedError - 1.0) * 1e6
	if t.sampleCount > 0 {
		currentPpm := (t.xtalCorrect - 1.0) * 1e6
		if ppm-currentPpm > MaxXtalErrorPpm || currentPpm-ppm > MaxXtalErrorPpm {
			t.xcorrMu.Unlock()
			return
		}
	}
	t.applyXtalSampleLocked(impliedError)
	t.xcorrMu.Unlock()

	t.mu.Lock()
	t.ref.XtalError = impliedError
	t.mu.Unlock()
}

func (t *Tracker) applyXtalSampleLocked(sample float64) {
	if t.sampleCount < XErrInitAvg {
		t.sampleSum += sample
		t.sampleCount++
		t.xtalCorrect = t.sampleSum / float64(t.sampleCount)
		if t.sampleCount == XErrInitAvg {
			t.xtalOK = true
		}
		return
	}
	// IIR: c <- c - c/K + sample/K
	t.xtalCorrect = t.xtalCorrect - t.xtalCorrect/XErrFiltCoef + sample/XErrFiltCoef
}

// Reset clears the XTAL correction state, used when the reference goes
// stale (age exceeds GPSRefMaxAge).
func (t *Tracker) Reset() {
	t.xcorrMu.Lock()
	t.xtalCorrect = 1.0
	t.xtalOK = false
	t.sampleSum = 0
	t.sampleCount = 0
	t.xcorrMu.Unlock()
}

// Snapshot returns the current TimeRef, whether it is valid (age within
// GPSRefMaxAge), and its age.
func (t *Tracker) Snapshot() (ref TimeRef, valid bool, age time.Duration) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.valid {
		return TimeRef{}, false, 0
	}
	age = t.now().Sub(t.ref.setAt)
	return t.ref, age <= GPSRefMaxAge, age
}

// XtalCorrection returns the current correction factor and whether it is
// considered trustworthy (past the initial averaging window).
func (t *Tracker) XtalCorrection() (correct float64, ok bool) {
	t.xcorrMu.Lock()
	defer t.xcorrMu.Unlock()
	return t.xtalCorrect, t.xtalOK
}

// Cnt2Utc converts a concentrator counter value to UTC using the current
// reference, extrapolating linearly. Returns false if no valid reference.
func (t *Tracker) Cnt2Utc(cnt uint32) (time.Time, bool) {
	ref, valid, _ := t.Snapshot()
	if !valid {
		return time.Time{}, false
	}
	deltaUs := int64(int32(cnt - ref.CountUs))
	return ref.UTC.Add(time.Duration(deltaUs) * time.Microsecond), true
}

// Cnt2Gps converts a concentrator counter value to GPS time.
func (t *Tracker) Cnt2Gps(cnt uint32) (time.Time, bool) {
	ref, valid, _ := t.Snapshot()
	if !valid {
		return time.Time{}, false
	}
	deltaUs := int64(int32(cnt - ref.CountUs))
	return ref.GPS.Add(time.Duration(deltaUs) * time.Microsecond), true
}

// Gps2Cnt converts a GPS time back to a concentrator counter value.
func (t *Tracker) Gps2Cnt(gps time.Time) (uint32, bool) {
	ref, valid, _ := t.Snapshot()
	if !valid {
		return 0, false
	}
	deltaUs := gps.Sub(ref.GPS).Microseconds()
	return ref.CountUs + uint32(int32(deltaUs)), true
}
