package protocol

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"
)

// CRCStatus is the CRC outcome Marshaled as the rxpk "stat" field.
type CRCStatus int8

const (
	CRCOK   CRCStatus = 1
	CRCBad  CRCStatus = -1
	CRCNone CRCStatus = 0
)

// RXPacket is one received radio frame, as delivered by the HAL facade and
// forwarded upstream inside a PUSH_DATA rxpk array element.
type RXPacket struct {
	CountUs     uint32 // concentrator free-running microsecond counter
	IFChain     uint8
	RFChain     uint8
	FreqHz      uint32
	ModemID     uint8
	Modulation  string // "LORA" | "FSK"
	BandwidthHz uint32 // LoRa only
	DataRate    uint32 // LoRa: spreading factor; FSK: bits/sec
	CodeRate    string // LoRa only, "4/5".."4/8" | "OFF"
	Status      CRCStatus
	RSSIChan    float32
	RSSISig     float32
	SNR         float32
	FreqOffset  float32
	Data        []byte

	FineTimestamp *uint64 // nanoseconds, nil if not present
	UTCTime       *time.Time
	GPSTimeMs     *int64 // ms since GPS epoch, nil unless gps_ref_valid
}

func bandwidthLabel(hz uint32) string {
	switch hz {
	case 125000:
		return "125"
	case 250000:
		return "250"
	case 500000:
		return "500"
	default:
		return fmt.Sprintf("%d", hz/1000)
	}
}

// MarshalJSON renders the rxpk object in the field order the reference
// forwarder emits: jver, tmst, time, tmms, ftime, chan, rfch, freq, mid,
// stat, modu, datr, codr, rssis, lsnr, foff, rssi, size, data.
func (p *RXPacket) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	fmt.Fprintf(&buf, "\"jver\":1,\"tmst\":%d", p.CountUs)
	if p.UTCTime != nil {
		fmt.Fprintf(&buf, ",\"time\":%q", p.UTCTime.UTC().Format("2006-01-02T15:04:05.000000Z"))
	}
	if p.GPSTimeMs != nil {
		fmt.Fprintf(&buf, ",\"tmms\":%d", *p.GPSTimeMs)
	}
	if p.FineTimestamp != nil {
		fmt.Fprintf(&buf, ",\"ftime\":%d", *p.FineTimestamp)
	}
	fmt.Fprintf(&buf, ",\"chan\":%d,\"rfch\":%d,\"freq\":%.6f,\"mid\":%d",
		p.IFChain, p.RFChain, float64(p.FreqHz)/1e6, p.ModemID)
	fmt.Fprintf(&buf, ",\"stat\":%d", p.Status)
	switch p.Modulation {
	case "LORA":
		fmt.Fprintf(&buf, ",\"modu\":\"LORA\",\"datr\":\"SF%dBW%s\",\"codr\":%q",
			p.DataRate, bandwidthLabel(p.BandwidthHz), p.CodeRate)
	case "FSK":
		fmt.Fprintf(&buf, ",\"modu\":\"FSK\",\"datr\":%d", p.DataRate)
	default:
		return nil, fmt.Errorf("unknown modulation: %q", p.Modulation)
	}
	fmt.Fprintf(&buf, ",\"rssis\":%.0f,\"lsnr\":%.1f,\"foff\":%.0f,\"rssi\":%.0f",
		p.RSSISig, p.SNR, p.FreqOffset, p.RSSIChan)
	fmt.Fprintf(&buf, ",\"size\":%d,\"data\":%q}", len(p.Data), base64.StdEncoding.EncodeToString(p.Data))
	return buf.Bytes(), nil
}
