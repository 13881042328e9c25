// Package adminapi exposes a local diagnostics surface over gRPC: a
// GetStatus unary call and a StreamEvents server-stream, so an operator
// (or a sibling process) can watch queue depth, XTAL lock state and
// admission counters without scraping Prometheus or tailing logs.
//
// The request/response types below are hand-written rather than protoc
// generated — there is no .proto file in this tree to compile — and are
// carried over the wire with a small JSON codec (codec.go) instead of the
// protobuf wire format, the same "skip codegen, keep the framework"
// choice the manually-defined Concentratord structs made.
package adminapi

import "time"

// StatusRequest carries no fields; GetStatus always reports the whole
// gateway.
type StatusRequest struct{}

// StatusResponse is one GetStatus snapshot.
type StatusResponse struct {
	GatewayID string `json:"gateway_id"`
	UptimeSec int64  `json:"uptime_sec"`

	RxReceived  uint32 `json:"rx_received"`
	RxForwarded uint32 `json:"rx_forwarded"`
	PushSent    uint32 `json:"push_sent"`
	PushAcked   uint32 `json:"push_acked"`

	TxScheduled uint32 `json:"tx_scheduled"`
	TxEmitted   uint32 `json:"tx_emitted"`

	GPSValid        bool    `json:"gps_valid"`
	GPSAgeSec       float64 `json:"gps_age_sec"`
	XtalCorrect     float64 `json:"xtal_correct"`
	XtalDisciplined bool    `json:"xtal_disciplined"`

	Chains []ChainStatus `json:"chains"`
}

// ChainStatus is one RF chain's JIT queue occupancy.
type ChainStatus struct {
	RFChain      uint32 `json:"rf_chain"`
	QueueLen     int32  `json:"queue_len"`
	QueueNumBcn  int32  `json:"queue_num_beacon"`
	HALStatus    string `json:"hal_status"`
}

// EventKind discriminates the Event union.
type EventKind string

const (
	EventTxRejected EventKind = "TX_REJECTED"
	EventGPSSync    EventKind = "GPS_SYNC"
	EventGPSStale   EventKind = "GPS_STALE"
	EventBeaconSent EventKind = "BEACON_SENT"
)

// Event is one diagnostic event pushed to StreamEvents subscribers.
type Event struct {
	Time time.Time `json:"time"`
	Kind EventKind `json:"kind"`

	RFChain uint32 `json:"rf_chain,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// StreamEventsRequest carries no filter fields; every event is delivered
// to every subscriber.
type StreamEventsRequest struct{}
