package gpsdevice

import (
	"bytes"
	"errors"
	"io"
)

// FakeDevice replays a fixed byte stream, for tests.
type FakeDevice struct {
	r *bytes.Reader
}

// NewFakeDevice builds a device that yields exactly data, then io.EOF.
func NewFakeDevice(data []byte) *FakeDevice {
	return &FakeDevice{r: bytes.NewReader(data)}
}

func (d *FakeDevice) ReadByte() (byte, error) {
	b, err := d.r.ReadByte()
	if errors.Is(err, io.EOF) {
		return 0, io.EOF
	}
	return b, err
}

func (d *FakeDevice) Close() error { return nil }

// LineParser is a minimal parser for tests and for simple deployments: it
// recognizes complete lines terminated by '\n', decoding them via an
// injected decode function, and reports INVALID for anything not starting
// with '$' (NMEA). UBX binary frames are not recognized.
type LineParser struct {
	Decode func(line []byte) (*Fix, error)
}

func (p *LineParser) ParseLine(buf []byte) (*Fix, int, ParseStatus, error) {
	if len(buf) == 0 {
		return nil, 0, Incomplete, nil
	}
	if buf[0] != '$' {
		return nil, 1, Invalid, nil
	}
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		return nil, 0, Incomplete, nil
	}
	line := buf[:idx+1]
	fix, err := p.Decode(line)
	if err != nil {
		return nil, idx + 1, Invalid, err
	}
	return fix, idx + 1, Complete, nil
}
