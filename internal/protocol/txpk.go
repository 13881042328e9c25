package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// TxMode selects how the HAL schedules a TX packet.
type TxMode uint8

const (
	TxImmediate   TxMode = iota // "imme": true
	TxTimestamped               // "tmst": <uint32>
	TxOnGPS                     // "tmms": <uint64>
)

// DownlinkClass mirrors the LoRaWAN class implied by the timing selector
// the server used; informational only, the forwarder is protocol-transparent.
type DownlinkClass uint8

const (
	ClassC DownlinkClass = iota // imme
	ClassA                     // tmst
	ClassB                     // tmms
)

// TXPacket is a downlink as requested by the network server in a PULL_RESP
// txpk object, ready for frequency/power/JIT admission.
type TXPacket struct {
	Mode  TxMode
	Class DownlinkClass

	CountUs   uint32 // valid when Mode == TxTimestamped
	GPSTimeMs uint64 // valid when Mode == TxOnGPS

	FreqHz  uint32
	RFChain uint8
	PowerDbm uint8
	HasPower bool

	Modulation  string // "LORA" | "FSK"
	BandwidthHz uint32
	DataRate    uint32
	CodeRate    string // LoRa only, normalized

	InvertPolarity bool
	PreambleLen    uint16
	NoCRC          bool
	NoHeader       bool
	FreqDevKHz     uint8 // FSK only

	Data []byte
}

type txpkWire struct {
	Immediate   bool    `json:"imme"`
	CountUs     *uint32 `json:"tmst"`
	GPSTimeMs   *uint64 `json:"tmms"`
	NoCRC       bool    `json:"ncrc"`
	NoHeader    bool    `json:"nhdr"`
	FreqMHz     float64 `json:"freq"`
	RFChain     *uint8  `json:"rfch"`
	Power       *uint8  `json:"powe"`
	Modulation  string  `json:"modu"`
	DataRate    json.RawMessage `json:"datr"`
	CodeRate    string  `json:"codr"`
	InvertPol   bool    `json:"ipol"`
	PreambleLen *uint16 `json:"prea"`
	FreqDevHz   float64 `json:"fdev"`
	Size        *int    `json:"size"`
	Data        string  `json:"data"`
}

// pullRespWire is the top-level {"txpk": {...}} envelope of a PULL_RESP body.
type pullRespWire struct {
	TXPK txpkWire `json:"txpk"`
}

var codeRateAliases = map[string]string{
	"4/5": "4/5",
	"4/6": "4/6", "2/3": "4/6",
	"4/7": "4/7",
	"4/8": "4/8", "2/4": "4/8", "1/2": "4/8",
}

// ParseTXPacket decodes a PULL_RESP JSON body's txpk object per the mandatory
// and optional field rules; the returned error names the missing or
// malformed field so the caller can decide whether a TX_ACK is possible.
func ParseTXPacket(body []byte) (*TXPacket, error) {
	var env pullRespWire
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed PULL_RESP body: %w", err)
	}
	w := env.TXPK

	tx := &TXPacket{}
	switch {
	case w.Immediate:
		tx.Mode, tx.Class = TxImmediate, ClassC
	case w.CountUs != nil:
		tx.Mode, tx.Class = TxTimestamped, ClassA
		tx.CountUs = *w.CountUs
	case w.GPSTimeMs != nil:
		tx.Mode, tx.Class = TxOnGPS, ClassB
		tx.GPSTimeMs = *w.GPSTimeMs
	default:
		return nil, fmt.Errorf("txpk: no timing selector (imme/tmst/tmms)")
	}

	if w.FreqMHz == 0 {
		return nil, fmt.Errorf("txpk: missing mandatory field freq")
	}
	tx.FreqHz = uint32(w.FreqMHz * 1.0e6)

	if w.RFChain == nil {
		return nil, fmt.Errorf("txpk: missing mandatory field rfch")
	}
	tx.RFChain = *w.RFChain

	if w.Power != nil {
		tx.HasPower = true
		tx.PowerDbm = *w.Power
	}

	tx.NoCRC = w.NoCRC
	tx.NoHeader = w.NoHeader
	tx.InvertPolarity = w.InvertPol

	switch w.Modulation {
	case "LORA":
		tx.Modulation = "LORA"
		var datr string
		if err := json.Unmarshal(w.DataRate, &datr); err != nil {
			return nil, fmt.Errorf("txpk: datr must be a string for LoRa modulation")
		}
		var sf, bw int
		if _, err := fmt.Sscanf(datr, "SF%dBW%d", &sf, &bw); err != nil {
			return nil, fmt.Errorf("txpk: cannot parse lora datr %q: %w", datr, err)
		}
		if sf < 5 || sf > 12 {
			return nil, fmt.Errorf("txpk: spreading factor out of range: SF%d", sf)
		}
		tx.DataRate = uint32(sf)
		switch bw {
		case 125, 250, 500:
			tx.BandwidthHz = uint32(bw) * 1000
		default:
			return nil, fmt.Errorf("txpk: unsupported lora bandwidth: %d", bw)
		}
		cr, ok := codeRateAliases[w.CodeRate]
		if !ok {
			return nil, fmt.Errorf("txpk: unsupported coderate: %q", w.CodeRate)
		}
		tx.CodeRate = cr
		tx.PreambleLen = 8
		if w.PreambleLen != nil {
			tx.PreambleLen = *w.PreambleLen
			if tx.PreambleLen < 6 {
				tx.PreambleLen = 6
			}
		}
	case "FSK":
		tx.Modulation = "FSK"
		var bps float64
		if err := json.Unmarshal(w.DataRate, &bps); err != nil {
			return nil, fmt.Errorf("txpk: datr must be numeric for FSK modulation")
		}
		tx.DataRate = uint32(bps)
		tx.FreqDevKHz = uint8(w.FreqDevHz / 1000.0)
		tx.PreambleLen = 5
		if w.PreambleLen != nil {
			tx.PreambleLen = *w.PreambleLen
			if tx.PreambleLen < 3 {
				tx.PreambleLen = 3
			}
		}
	default:
		return nil, fmt.Errorf("txpk: unknown modulation: %q", w.Modulation)
	}

	if w.Size == nil {
		return nil, fmt.Errorf("txpk: missing mandatory field size")
	}
	data, err := base64.StdEncoding.DecodeString(w.Data)
	if err != nil {
		return nil, fmt.Errorf("txpk: cannot decode data: %w", err)
	}
	if len(data) != *w.Size {
		return nil, fmt.Errorf("txpk: size %d does not match decoded length %d", *w.Size, len(data))
	}
	tx.Data = data

	return tx, nil
}
