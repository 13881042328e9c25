package jit

import "math"

// LoRaAirtimeUs returns the on-air duration, in microseconds, of a LoRa
// packet with the given spreading factor, bandwidth, coding-rate
// denominator (5..8), payload length, preamble length, and header/CRC
// flags. This is the standard closed-form LoRa airtime formula (Semtech
// AN1200.13), not something this codebase's examples implement, so it is
// derived directly from the well-known public formula rather than any
// example file.
func LoRaAirtimeUs(sf int, bwHz uint32, coderateDenom int, payloadLen int, preambleLen uint16, implicitHeader, crcEnabled bool) uint32 {
	bw := float64(bwHz)
	tSym := math.Pow(2, float64(sf)) / bw * 1e6 // microseconds

	de := 0.0
	if sf >= 11 {
		de = 1.0
	}
	ih := 0.0
	if implicitHeader {
		ih = 1.0
	}
	crc := 0.0
	if crcEnabled {
		crc = 1.0
	}
	cr := float64(coderateDenom - 4)

	numerator := 8*float64(payloadLen) - 4*float64(sf) + 28 + 16*crc - 20*ih
	nPayload := math.Max(math.Ceil(numerator/(4*(float64(sf)-2*de)))*(cr+4), 0) + 8

	tPreamble := (float64(preambleLen) + 4.25) * tSym
	tPayload := nPayload * tSym
	return uint32(math.Ceil(tPreamble + tPayload))
}

// FSKAirtimeUs returns the on-air duration, in microseconds, of an FSK
// packet: preamble + 2-byte sync word + 1-byte length prefix + payload, all
// at the given bitrate.
func FSKAirtimeUs(bitrate uint32, payloadLen int, preambleLen uint16) uint32 {
	if bitrate == 0 {
		return 0
	}
	totalBytes := float64(preambleLen) + 2 + 1 + float64(payloadLen)
	return uint32(math.Ceil(totalBytes * 8 * 1e6 / float64(bitrate)))
}
