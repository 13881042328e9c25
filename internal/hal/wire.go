package hal

import (
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

// rxWire is the concentratord-facing uplink-event representation: a plain
// struct with explicit JSON tags, decoupled from protocol.RXPacket's own
// MarshalJSON (which renders the Semtech rxpk wire shape, not this internal
// HAL<->concentratord contract).
type rxWire struct {
	CountUs       uint32  `json:"count_us"`
	IFChain       uint8   `json:"if_chain"`
	RFChain       uint8   `json:"rf_chain"`
	FreqHz        uint32  `json:"freq_hz"`
	ModemID       uint8   `json:"modem_id"`
	Modulation    string  `json:"modulation"`
	BandwidthHz   uint32  `json:"bandwidth_hz"`
	DataRate      uint32  `json:"data_rate"`
	CodeRate      string  `json:"code_rate"`
	Status        int8    `json:"crc_status"`
	RSSIChan      float32 `json:"rssi_chan"`
	RSSISig       float32 `json:"rssi_sig"`
	SNR           float32 `json:"snr"`
	FreqOffset    float32 `json:"freq_offset"`
	Data          []byte  `json:"data"`
	FineTimestamp *uint64 `json:"fine_timestamp,omitempty"`
}

func (w *rxWire) toRXPacket() *protocol.RXPacket {
	return &protocol.RXPacket{
		CountUs:       w.CountUs,
		IFChain:       w.IFChain,
		RFChain:       w.RFChain,
		FreqHz:        w.FreqHz,
		ModemID:       w.ModemID,
		Modulation:    w.Modulation,
		BandwidthHz:   w.BandwidthHz,
		DataRate:      w.DataRate,
		CodeRate:      w.CodeRate,
		Status:        protocol.CRCStatus(w.Status),
		RSSIChan:      w.RSSIChan,
		RSSISig:       w.RSSISig,
		SNR:           w.SNR,
		FreqOffset:    w.FreqOffset,
		Data:          w.Data,
		FineTimestamp: w.FineTimestamp,
	}
}

func rxWireFrom(p *protocol.RXPacket) *rxWire {
	return &rxWire{
		CountUs: p.CountUs, IFChain: p.IFChain, RFChain: p.RFChain, FreqHz: p.FreqHz,
		ModemID: p.ModemID, Modulation: p.Modulation, BandwidthHz: p.BandwidthHz,
		DataRate: p.DataRate, CodeRate: p.CodeRate, Status: int8(p.Status),
		RSSIChan: p.RSSIChan, RSSISig: p.RSSISig, SNR: p.SNR, FreqOffset: p.FreqOffset,
		Data: p.Data, FineTimestamp: p.FineTimestamp,
	}
}

// txWire is the concentratord-facing send-command representation.
type txWire struct {
	Mode           uint8  `json:"mode"`
	CountUs        uint32 `json:"count_us,omitempty"`
	FreqHz         uint32 `json:"freq_hz"`
	RFChain        uint8  `json:"rf_chain"`
	PowerDbm       uint8  `json:"power_dbm"`
	Modulation     string `json:"modulation"`
	BandwidthHz    uint32 `json:"bandwidth_hz,omitempty"`
	DataRate       uint32 `json:"data_rate"`
	CodeRate       string `json:"code_rate,omitempty"`
	InvertPolarity bool   `json:"invert_polarity"`
	PreambleLen    uint16 `json:"preamble_len"`
	NoCRC          bool   `json:"no_crc"`
	NoHeader       bool   `json:"no_header"`
	Data           []byte `json:"data"`
}

func txWireFrom(p *protocol.TXPacket) *txWire {
	return &txWire{
		Mode: uint8(p.Mode), CountUs: p.CountUs, FreqHz: p.FreqHz, RFChain: p.RFChain,
		PowerDbm: p.PowerDbm, Modulation: p.Modulation, BandwidthHz: p.BandwidthHz,
		DataRate: p.DataRate, CodeRate: p.CodeRate, InvertPolarity: p.InvertPolarity,
		PreambleLen: p.PreambleLen, NoCRC: p.NoCRC, NoHeader: p.NoHeader, Data: p.Data,
	}
}
