package adminapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is registered as a gRPC content-subtype so client and server
// can exchange these hand-written structs without a .proto/protoc step.
// Callers opt in with grpc.CallContentSubtype(codecName) /
// grpc.ForceServerCodec, the same way a generated client would pin
// "proto" — here it's just JSON underneath.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }
