// Package gpsdevice defines the external GPS collaborator contract: a raw
// byte source (the serial GPS receiver) and a line parser (NMEA/UBX). Both
// are out of scope for this bridge's implementation per the system
// specification; only the narrow interfaces are defined here; production
// wiring supplies concrete implementations from outside this module.
package gpsdevice

import "time"

// FixKind distinguishes the two frame types the GPS sync worker cares
// about: a UBX NAV-TIMEGPS frame (carries the UTC/GPS time pair used to
// discipline TimeRef) and an NMEA RMC sentence (carries the fixed
// coordinates used for stationary-gateway location reporting).
type FixKind uint8

const (
	FixTimeGPS FixKind = iota
	FixRMC
)

// Fix is a decoded GPS frame.
type Fix struct {
	Kind FixKind

	UTC time.Time // FixTimeGPS only
	GPS time.Time // FixTimeGPS only

	Latitude  float64 // FixRMC only
	Longitude float64 // FixRMC only
	Valid     bool    // FixRMC only: whether the receiver reports a valid fix
}

// ParseStatus is the outcome of feeding bytes to Parser.ParseLine.
type ParseStatus uint8

const (
	// Complete means a frame was fully parsed; Consumed bytes may be
	// dropped from the scan buffer.
	Complete ParseStatus = iota
	// Incomplete means more bytes are needed; nothing should be consumed.
	Incomplete
	// Invalid means the buffer's leading bytes are not a valid frame
	// start; the caller should advance past the header and rescan.
	Invalid
)

// Parser decodes one frame, if any, from the front of buf.
type Parser interface {
	// ParseLine attempts to parse a frame starting at buf[0]. consumed is
	// only meaningful when status == Complete or status == Invalid.
	ParseLine(buf []byte) (fix *Fix, consumed int, status ParseStatus, err error)
}

// Device is the external serial GPS receiver.
type Device interface {
	// ReadByte blocks until the next byte is available.
	ReadByte() (byte, error)
	Close() error
}
