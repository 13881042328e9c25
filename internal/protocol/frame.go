// Package protocol implements the Semtech UDP gateway-to-network-server
// protocol, version 2: frame headers, token matching, and the RXPK/TXPK/Stat
// JSON payloads carried inside PUSH_DATA and PULL_RESP datagrams.
package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Protocol constants
const (
	Version = 2

	PushData uint8 = 0
	PushAck  uint8 = 1
	PullData uint8 = 2
	PullResp uint8 = 3
	PullAck  uint8 = 4
	TxAck    uint8 = 5
)

// UnixGPSEpochOffset converts a GPS-epoch timestamp (seconds since
// 1980-01-06T00:00:00 UTC) to a Unix timestamp.
const UnixGPSEpochOffset = 315964800

// HeaderSize is the size of the fixed-format frame header, MAC included,
// for every frame type except PUSH_ACK/PULL_ACK (4 bytes, no MAC) and
// PULL_RESP (4 bytes, random token, no MAC).
const HeaderSize = 12

// GatewayID is the 64-bit gateway MAC, split into two network-order halves
// and used as the 8-byte identity prefix of PUSH_DATA/PULL_DATA/TX_ACK.
type GatewayID [8]byte

// ParseGatewayID parses a 16-hex-digit gateway id string.
func ParseGatewayID(s string) (GatewayID, error) {
	var id GatewayID
	if len(s) != 16 {
		return id, fmt.Errorf("gateway id must be 16 hex digits, got %d", len(s))
	}
	for i := 0; i < 8; i++ {
		var b byte
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &b); err != nil {
			return id, fmt.Errorf("gateway id %q: %w", s, err)
		}
		id[i] = b
	}
	return id, nil
}

func (g GatewayID) String() string {
	return fmt.Sprintf("%02x%02x%02x%02x%02x%02x%02x%02x",
		g[0], g[1], g[2], g[3], g[4], g[5], g[6], g[7])
}

// Token is the 16-bit random value used to pair a request with its ack.
type Token uint16

// NewToken draws a random token from a CSPRNG, matching the reference
// forwarder's use of a non-predictable value per datagram.
func NewToken() (Token, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate token: %w", err)
	}
	return Token(binary.LittleEndian.Uint16(b[:])), nil
}

// EncodeDataHeader builds the 12-byte header shared by PUSH_DATA, PULL_DATA
// and TX_ACK: version, token, packet type, gateway MAC.
func EncodeDataHeader(pktType uint8, token Token, gw GatewayID) []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = Version
	binary.LittleEndian.PutUint16(buf[1:3], uint16(token))
	buf[3] = pktType
	copy(buf[4:12], gw[:])
	return buf
}

// EncodeAck builds the 4-byte PUSH_ACK/PULL_ACK datagram.
func EncodeAck(pktType uint8, token Token) []byte {
	buf := make([]byte, 4)
	buf[0] = Version
	binary.LittleEndian.PutUint16(buf[1:3], uint16(token))
	buf[3] = pktType
	return buf
}

// DecodedAck is a parsed PUSH_ACK/PULL_ACK/TX_ACK-shaped acknowledgment
// header (version, token, type); any trailing bytes are the caller's
// concern (TX_ACK may carry a JSON body).
type DecodedAck struct {
	Version uint8
	Token   Token
	Type    uint8
}

// DecodeAck parses the leading 4 bytes common to every ack-shaped frame.
func DecodeAck(data []byte) (DecodedAck, error) {
	if len(data) < 4 {
		return DecodedAck{}, fmt.Errorf("ack frame too short: %d bytes", len(data))
	}
	return DecodedAck{
		Version: data[0],
		Token:   Token(binary.LittleEndian.Uint16(data[1:3])),
		Type:    data[3],
	}, nil
}

// DecodePullResp parses the 4-byte header of a PULL_RESP frame (version,
// random token, PKT_PULL_RESP) and returns the JSON body that follows.
func DecodePullResp(data []byte) (Token, []byte, error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("pull_resp frame too short: %d bytes", len(data))
	}
	if data[3] != PullResp {
		return 0, nil, fmt.Errorf("not a PULL_RESP frame: type=%d", data[3])
	}
	tok := Token(binary.LittleEndian.Uint16(data[1:3]))
	return tok, data[4:], nil
}

// DecodeDataHeader parses the 12-byte header shared by PUSH_DATA/PULL_DATA/
// TX_ACK and returns the trailing bytes (JSON body, possibly empty).
func DecodeDataHeader(data []byte) (pktType uint8, token Token, gw GatewayID, body []byte, err error) {
	if len(data) < HeaderSize {
		err = fmt.Errorf("data frame too short: %d bytes", len(data))
		return
	}
	if data[0] != Version {
		err = fmt.Errorf("unexpected protocol version: %d", data[0])
		return
	}
	token = Token(binary.LittleEndian.Uint16(data[1:3]))
	pktType = data[3]
	copy(gw[:], data[4:12])
	body = data[12:]
	return
}
