package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDataHeaderRoundTrip(t *testing.T) {
	gw := GatewayID{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x01, 0x02}
	tok := Token(0x1234)

	buf := EncodeDataHeader(PushData, tok, gw)
	pktType, decodedTok, decodedGw, body, err := DecodeDataHeader(append(buf, []byte("{}")...))
	if err != nil {
		t.Fatalf("DecodeDataHeader: %v", err)
	}
	if pktType != PushData {
		t.Errorf("pktType = %d, want %d", pktType, PushData)
	}
	if decodedTok != tok {
		t.Errorf("token = %x, want %x", decodedTok, tok)
	}
	if decodedGw != gw {
		t.Errorf("gw = %x, want %x", decodedGw, gw)
	}
	if string(body) != "{}" {
		t.Errorf("body = %q, want {}", body)
	}
}

func TestDecodeDataHeaderTooShort(t *testing.T) {
	if _, _, _, _, err := DecodeDataHeader([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestAckRoundTrip(t *testing.T) {
	tok := Token(0xbeef)
	buf := EncodeAck(PushAck, tok)
	ack, err := DecodeAck(buf)
	if err != nil {
		t.Fatalf("DecodeAck: %v", err)
	}
	if ack.Type != PushAck || ack.Token != tok || ack.Version != Version {
		t.Errorf("got %+v", ack)
	}
}

// TestUplinkRoundTrip matches the end-to-end uplink scenario from the
// testable-properties scenarios: a single LoRa RX packet serialized into a
// PUSH_DATA body with the exact field values expected downstream.
func TestUplinkRoundTrip(t *testing.T) {
	pkt := &RXPacket{
		CountUs:     1_000_000,
		IFChain:     0,
		RFChain:     0,
		FreqHz:      868_100_000,
		Modulation:  "LORA",
		BandwidthHz: 125_000,
		DataRate:    7,
		CodeRate:    "4/5",
		Status:      CRCOK,
		RSSIChan:    -95,
		RSSISig:     -97,
		SNR:         8.5,
		Data:        []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	}

	raw, err := pkt.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("re-parse: %v", err)
	}

	want := map[string]interface{}{
		"jver": float64(1),
		"tmst": float64(1000000),
		"chan": float64(0),
		"rfch": float64(0),
		"freq": 868.100000,
		"stat": float64(1),
		"modu": "LORA",
		"datr": "SF7BW125",
		"codr": "4/5",
		"rssi": float64(-95),
		"rssis": float64(-97),
		"lsnr": 8.5,
		"size": float64(12),
		"data": "AAECAwQFBgcICQoL",
	}
	for k, v := range want {
		if decoded[k] != v {
			t.Errorf("field %s = %v, want %v", k, decoded[k], v)
		}
	}
}

func TestBuildPushDataAssemblesValidJSON(t *testing.T) {
	gw := GatewayID{1, 2, 3, 4, 5, 6, 7, 8}
	pkt := &RXPacket{Modulation: "LORA", BandwidthHz: 125000, DataRate: 7, CodeRate: "4/5", Status: CRCOK}
	datagram, err := BuildPushData(gw, Token(1), []*RXPacket{pkt}, nil)
	if err != nil {
		t.Fatalf("BuildPushData: %v", err)
	}
	if datagram[0] != Version || datagram[3] != PushData {
		t.Fatalf("bad header: %x", datagram[:4])
	}
	if !strings.Contains(string(datagram[12:]), "\"rxpk\":[") {
		t.Errorf("body missing rxpk array: %s", datagram[12:])
	}
}

func TestParseTXPacketImmediate(t *testing.T) {
	body := []byte(`{"txpk":{"imme":true,"freq":869.525,"rfch":0,"powe":14,"modu":"LORA","datr":"SF9BW125","codr":"4/5","size":1,"data":"AA=="}}`)
	tx, err := ParseTXPacket(body)
	if err != nil {
		t.Fatalf("ParseTXPacket: %v", err)
	}
	if tx.Mode != TxImmediate || tx.Class != ClassC {
		t.Errorf("mode/class = %v/%v, want immediate/classC", tx.Mode, tx.Class)
	}
	if tx.FreqHz != 869_525_000 {
		t.Errorf("freq = %d", tx.FreqHz)
	}
	if !tx.HasPower || tx.PowerDbm != 14 {
		t.Errorf("power = %v/%d", tx.HasPower, tx.PowerDbm)
	}
	if tx.DataRate != 9 || tx.BandwidthHz != 125000 {
		t.Errorf("datr parse wrong: sf=%d bw=%d", tx.DataRate, tx.BandwidthHz)
	}
	if tx.CodeRate != "4/5" {
		t.Errorf("codr = %s", tx.CodeRate)
	}
	if len(tx.Data) != 1 {
		t.Errorf("data length = %d", len(tx.Data))
	}
}

func TestParseTXPacketCoderateAliases(t *testing.T) {
	cases := map[string]string{"4/6": "4/6", "2/3": "4/6", "4/8": "4/8", "2/4": "4/8", "1/2": "4/8"}
	for in, want := range cases {
		body := []byte(`{"txpk":{"tmst":1000,"freq":868.1,"rfch":0,"modu":"LORA","datr":"SF7BW125","codr":"` + in + `","size":1,"data":"AA=="}}`)
		tx, err := ParseTXPacket(body)
		if err != nil {
			t.Fatalf("ParseTXPacket(%s): %v", in, err)
		}
		if tx.CodeRate != want {
			t.Errorf("codr %s => %s, want %s", in, tx.CodeRate, want)
		}
	}
}

func TestParseTXPacketFSKFreqDevTruncation(t *testing.T) {
	body := []byte(`{"txpk":{"tmst":1000,"freq":868.1,"rfch":0,"modu":"FSK","datr":50000,"fdev":25000,"size":1,"data":"AA=="}}`)
	tx, err := ParseTXPacket(body)
	if err != nil {
		t.Fatalf("ParseTXPacket: %v", err)
	}
	if tx.FreqDevKHz != 25 {
		t.Errorf("FreqDevKHz = %d, want 25", tx.FreqDevKHz)
	}
}

func TestParseTXPacketMissingMandatoryField(t *testing.T) {
	body := []byte(`{"txpk":{"tmst":1000,"rfch":0,"modu":"LORA","datr":"SF7BW125","codr":"4/5","size":1,"data":"AA=="}}`)
	if _, err := ParseTXPacket(body); err == nil {
		t.Fatal("expected error for missing freq")
	}
}

func TestParseTXPacketSizeMismatch(t *testing.T) {
	body := []byte(`{"txpk":{"tmst":1000,"freq":868.1,"rfch":0,"modu":"LORA","datr":"SF7BW125","codr":"4/5","size":4,"data":"AA=="}}`)
	if _, err := ParseTXPacket(body); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestBuildTxAckEmptyOnOK(t *testing.T) {
	gw := GatewayID{1, 2, 3, 4, 5, 6, 7, 8}
	buf := BuildTxAck(gw, Token(5), nil)
	if len(buf) != HeaderSize {
		t.Errorf("expected bare 12-byte header, got %d bytes: %s", len(buf), buf)
	}
}

func TestBuildTxAckTooLate(t *testing.T) {
	gw := GatewayID{1, 2, 3, 4, 5, 6, 7, 8}
	buf := BuildTxAck(gw, Token(5), &TxAckResult{Tag: TagTooLate})
	if !strings.Contains(string(buf[HeaderSize:]), `"error":"TOO_LATE"`) {
		t.Errorf("body = %s", buf[HeaderSize:])
	}
}

func TestBuildTxAckPowerWarning(t *testing.T) {
	gw := GatewayID{1, 2, 3, 4, 5, 6, 7, 8}
	v := 20
	buf := BuildTxAck(gw, Token(5), &TxAckResult{Tag: TagTxPower, Warn: true, Value: &v})
	body := string(buf[HeaderSize:])
	if !strings.Contains(body, `"warn":"TX_POWER"`) || !strings.Contains(body, `"value":20`) {
		t.Errorf("body = %s", body)
	}
}

func TestGatewayIDRoundTrip(t *testing.T) {
	id, err := ParseGatewayID("aabbccddeeff0011")
	if err != nil {
		t.Fatalf("ParseGatewayID: %v", err)
	}
	if id.String() != "aabbccddeeff0011" {
		t.Errorf("String() = %s", id.String())
	}
}
