package gpsdevice

import (
	"fmt"
	"io"
	"testing"
)

func TestFakeDeviceYieldsBytesThenEOF(t *testing.T) {
	d := NewFakeDevice([]byte("ab"))
	for _, want := range []byte{'a', 'b'} {
		got, err := d.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte: %v", err)
		}
		if got != want {
			t.Errorf("got %c, want %c", got, want)
		}
	}
	if _, err := d.ReadByte(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestLineParserIncompleteUntilNewline(t *testing.T) {
	p := &LineParser{Decode: func(line []byte) (*Fix, error) { return &Fix{Kind: FixRMC}, nil }}
	_, _, status, err := p.ParseLine([]byte("$GPRMC,no newline yet"))
	if err != nil || status != Incomplete {
		t.Fatalf("status=%v err=%v, want Incomplete", status, err)
	}
}

func TestLineParserInvalidWithoutDollarSign(t *testing.T) {
	p := &LineParser{Decode: func(line []byte) (*Fix, error) { return nil, nil }}
	_, consumed, status, _ := p.ParseLine([]byte("garbage"))
	if status != Invalid || consumed != 1 {
		t.Fatalf("status=%v consumed=%d, want Invalid/1", status, consumed)
	}
}

func TestLineParserCompleteConsumesWholeLine(t *testing.T) {
	p := &LineParser{Decode: func(line []byte) (*Fix, error) { return &Fix{Kind: FixRMC}, nil }}
	line := []byte("$GPRMC,...\n")
	fix, consumed, status, err := p.ParseLine(append(line, []byte("$next")...))
	if err != nil || status != Complete {
		t.Fatalf("status=%v err=%v", status, err)
	}
	if consumed != len(line) {
		t.Errorf("consumed=%d, want %d", consumed, len(line))
	}
	if fix.Kind != FixRMC {
		t.Errorf("fix.Kind = %v", fix.Kind)
	}
}

func TestLineParserDecodeErrorIsInvalid(t *testing.T) {
	p := &LineParser{Decode: func(line []byte) (*Fix, error) { return nil, fmt.Errorf("bad checksum") }}
	_, _, status, err := p.ParseLine([]byte("$GPRMC,bad\n"))
	if status != Invalid || err == nil {
		t.Fatalf("status=%v err=%v, want Invalid/err", status, err)
	}
}
