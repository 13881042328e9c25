package jit

import "testing"

func TestLoRaAirtimeIncreasesWithSpreadingFactor(t *testing.T) {
	a7 := LoRaAirtimeUs(7, 125000, 5, 12, 8, false, true)
	a12 := LoRaAirtimeUs(12, 125000, 5, 12, 8, false, true)
	if a12 <= a7 {
		t.Errorf("expected SF12 airtime > SF7 airtime, got %d <= %d", a12, a7)
	}
}

func TestLoRaAirtimeIncreasesWithPayload(t *testing.T) {
	small := LoRaAirtimeUs(7, 125000, 5, 1, 8, false, true)
	large := LoRaAirtimeUs(7, 125000, 5, 200, 8, false, true)
	if large <= small {
		t.Errorf("expected larger payload to take longer, got %d <= %d", large, small)
	}
}

func TestFSKAirtimeScalesWithBitrate(t *testing.T) {
	slow := FSKAirtimeUs(10000, 20, 5)
	fast := FSKAirtimeUs(100000, 20, 5)
	if fast >= slow {
		t.Errorf("expected higher bitrate to be faster, got %d >= %d", fast, slow)
	}
}

func TestFSKAirtimeZeroBitrate(t *testing.T) {
	if got := FSKAirtimeUs(0, 20, 5); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}
