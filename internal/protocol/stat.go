package protocol

import (
	"bytes"
	"fmt"
	"time"
)

// StatReport is the periodic status snapshot piggybacked on the next
// PUSH_DATA datagram as the "stat" object.
type StatReport struct {
	Time time.Time

	HasLocation bool
	Latitude    float64
	Longitude   float64
	AltitudeM   int32

	RxNb  uint32 // packets received
	RxOK  uint32 // packets received with valid CRC
	RxFwd uint32 // packets forwarded
	AckR  float32 // upstream datagrams acked, percent

	DwNb uint32 // downlinks received from server
	TxNb uint32 // downlinks actually transmitted
}

// MarshalJSON renders {"stat": {...}}, omitting lati/long/alti when no
// location is available.
func (s *StatReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\"stat\":{")
	fmt.Fprintf(&buf, "\"time\":%q", s.Time.UTC().Format("2006-01-02 15:04:05 GMT"))
	if s.HasLocation {
		fmt.Fprintf(&buf, ",\"lati\":%.5f,\"long\":%.5f,\"alti\":%d", s.Latitude, s.Longitude, s.AltitudeM)
	}
	fmt.Fprintf(&buf, ",\"rxnb\":%d,\"rxok\":%d,\"rxfw\":%d,\"ackr\":%.1f,\"dwnb\":%d,\"txnb\":%d}}",
		s.RxNb, s.RxOK, s.RxFwd, s.AckR, s.DwNb, s.TxNb)
	return buf.Bytes(), nil
}
