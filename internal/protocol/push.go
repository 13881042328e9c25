package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BuildPushData assembles a complete PUSH_DATA datagram: 12-byte header
// followed by {"rxpk":[...]} and, if stat is non-nil, a trailing
// ,"stat":{...} merged into the same JSON object.
func BuildPushData(gw GatewayID, token Token, pkts []*RXPacket, stat *StatReport) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString("{\"rxpk\":[")
	for i, p := range pkts {
		if i > 0 {
			body.WriteByte(',')
		}
		b, err := p.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("rxpk[%d]: %w", i, err)
		}
		body.Write(b)
	}
	body.WriteByte(']')
	if stat != nil {
		statJSON, err := stat.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("stat: %w", err)
		}
		// statJSON is {"stat":{...}}; splice its inner object onto ours.
		inner := bytes.TrimSuffix(bytes.TrimPrefix(statJSON, []byte("{")), []byte("}"))
		body.WriteByte(',')
		body.Write(inner)
	}
	body.WriteByte('}')

	if !json.Valid(body.Bytes()) {
		return nil, fmt.Errorf("assembled push_data body is not valid JSON")
	}

	buf := EncodeDataHeader(PushData, token, gw)
	return append(buf, body.Bytes()...), nil
}

// BuildPullData assembles the 12-byte PULL_DATA keepalive datagram.
func BuildPullData(gw GatewayID, token Token) []byte {
	return EncodeDataHeader(PullData, token, gw)
}
