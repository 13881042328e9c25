package hal

import (
	"errors"
	"testing"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

func TestFakeReceiveRespectsMaxPkt(t *testing.T) {
	f := NewFake()
	for i := 0; i < 5; i++ {
		f.Inject(&protocol.RXPacket{CountUs: uint32(i)})
	}
	batch, err := f.Receive(3)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("len(batch) = %d, want 3", len(batch))
	}
	rest, _ := f.Receive(10)
	if len(rest) != 2 {
		t.Fatalf("len(rest) = %d, want 2", len(rest))
	}
}

func TestFakeSendRecordsPackets(t *testing.T) {
	f := NewFake()
	pkt := &protocol.TXPacket{FreqHz: 868100000}
	if err := f.Send(pkt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := f.Sent()
	if len(sent) != 1 || sent[0].FreqHz != 868100000 {
		t.Fatalf("Sent() = %+v", sent)
	}
}

func TestFakeSendError(t *testing.T) {
	f := NewFake()
	wantErr := errors.New("boom")
	f.SetSendError(wantErr)
	if err := f.Send(&protocol.TXPacket{}); err != wantErr {
		t.Fatalf("Send error = %v, want %v", err, wantErr)
	}
}

func TestFakeStatusDefaultsToOff(t *testing.T) {
	f := NewFake()
	status, err := f.Status(0)
	if err != nil || status != StatusOff {
		t.Fatalf("Status = %v/%v, want StatusOff/nil", status, err)
	}
	f.SetStatus(0, StatusEmitting)
	status, _ = f.Status(0)
	if status != StatusEmitting {
		t.Fatalf("Status = %v, want StatusEmitting", status)
	}
}

func TestFakeResetClearsState(t *testing.T) {
	f := NewFake()
	f.Inject(&protocol.RXPacket{})
	f.Send(&protocol.TXPacket{})
	f.SetInstCnt(42)
	if err := f.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := f.InstCnt(); n != 0 {
		t.Errorf("InstCnt after reset = %d, want 0", n)
	}
	batch, _ := f.Receive(10)
	if len(batch) != 0 {
		t.Errorf("expected empty rx buffer after reset")
	}
}
