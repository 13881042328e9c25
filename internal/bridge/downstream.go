package bridge

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/adminapi"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/jit"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

// downstreamLoop keeps the NAT pinhole open with periodic PULL_DATA,
// processes PULL_RESP datagrams that arrive while waiting for the
// matching PULL_ACK, and runs the beacon pre-enqueue pass every cycle.
func (g *Gateway) downstreamLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.KeepaliveInterval)
	defer ticker.Stop()

	g.sendPullData()
	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.sendPullData()
			g.preEnqueueBeacons()
		}
	}
}

func (g *Gateway) sendPullData() {
	token, err := protocol.NewToken()
	if err != nil {
		log.Printf("bridge: downstream: token generation failed: %v", err)
		return
	}
	datagram := protocol.BuildPullData(g.cfg.GatewayID, token)
	if _, err := g.downConn.Write(datagram); err != nil {
		log.Printf("bridge: downstream: pull_data send failed: %v", err)
		return
	}

	acked := g.awaitPullAckOrProcess(token)
	g.recordAutoquit(acked)
}

// awaitPullAckOrProcess blocks for up to PullTimeout, processing any
// PKT_PULL_RESP datagrams that arrive and returning true once the matching
// PKT_PULL_ACK is seen (or false on timeout).
func (g *Gateway) awaitPullAckOrProcess(token protocol.Token) bool {
	buf := make([]byte, 2048)
	deadline := time.Now().Add(g.cfg.PullTimeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		g.downConn.SetReadDeadline(deadline)
		n, err := g.downConn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return false
			}
			log.Printf("bridge: downstream: read error: %v", err)
			return false
		}
		data := buf[:n]
		if len(data) < 4 {
			continue
		}
		switch data[3] {
		case protocol.PullAck:
			ack, err := protocol.DecodeAck(data)
			if err == nil && ack.Token == token {
				return true
			}
		case protocol.PullResp:
			g.processPullResp(data)
		}
	}
}

func (g *Gateway) recordAutoquit(acked bool) {
	if g.cfg.AutoquitThreshold <= 0 {
		return
	}
	g.autoquitMu.Lock()
	defer g.autoquitMu.Unlock()
	if acked {
		g.autoquitCount = 0
		return
	}
	g.autoquitCount++
	if g.autoquitCount >= g.cfg.AutoquitThreshold {
		log.Printf("bridge: downstream: %d consecutive PULL_DATA unacknowledged, requesting shutdown", g.autoquitCount)
		g.stopOnce.Do(func() { close(g.stopChan) })
	}
}

// processPullResp parses one PULL_RESP body, runs the TX admission
// pipeline, and sends exactly one TX_ACK datagram in response.
func (g *Gateway) processPullResp(data []byte) {
	g.reporter.Downstream.RecordPullResp()

	token, body, err := protocol.DecodePullResp(data)
	if err != nil {
		log.Printf("bridge: downstream: malformed pull_resp header: %v", err)
		return
	}

	tx, err := protocol.ParseTXPacket(body)
	if err != nil {
		log.Printf("bridge: downstream: cannot parse txpk: %v", err)
		// No token could be trusted to belong to this malformed body per
		// the spec; the header parsed, so still echo a TX_ACK using it.
		g.sendTxAck(token, &protocol.TxAckResult{Tag: "BAD_TXPK"})
		return
	}

	result := g.admitDownlink(tx)
	g.sendTxAck(token, result)
}

func (g *Gateway) sendTxAck(token protocol.Token, result *protocol.TxAckResult) {
	datagram := protocol.BuildTxAck(g.cfg.GatewayID, token, result)
	if _, err := g.downConn.Write(datagram); err != nil {
		log.Printf("bridge: downstream: tx_ack send failed: %v", err)
	}
}

// admitDownlink runs the ordered TX admission pipeline: frequency bounds,
// power LUT substitution, then JIT enqueue. Returns nil on unconditional
// success (empty TX_ACK body).
func (g *Gateway) admitDownlink(tx *protocol.TXPacket) *protocol.TxAckResult {
	chain, ok := g.cfg.Chains[tx.RFChain]
	if !ok || !chain.TxEnable {
		g.reporter.Downstream.RecordRejected(protocol.TagTxFreq)
		return &protocol.TxAckResult{Tag: protocol.TagTxFreq}
	}
	if tx.FreqHz < chain.TxFreqMinHz || tx.FreqHz > chain.TxFreqMaxHz {
		g.reporter.Downstream.RecordRejected(protocol.TagTxFreq)
		return &protocol.TxAckResult{Tag: protocol.TagTxFreq}
	}

	var warnPower *protocol.TxAckResult
	if tx.HasPower {
		chosen, forced, _ := chain.lookupPower(int8(tx.PowerDbm))
		tx.PowerDbm = uint8(chosen)
		if forced {
			v := int(chosen)
			warnPower = &protocol.TxAckResult{Tag: protocol.TagTxPower, Warn: true, Value: &v}
			g.reporter.Downstream.RecordRejected(protocol.TagTxPower)
		}
	}

	if tx.Mode == protocol.TxOnGPS {
		if _, valid, _ := g.timeref.Snapshot(); !valid {
			g.reporter.Downstream.RecordRejected(protocol.TagGPSUnlocked)
			return &protocol.TxAckResult{Tag: protocol.TagGPSUnlocked}
		}
	}

	start, err := g.resolveStartCounter(tx)
	if err != nil {
		log.Printf("bridge: downstream: cannot resolve start counter: %v", err)
		g.reporter.Downstream.RecordRejected(protocol.TagTooLate)
		return &protocol.TxAckResult{Tag: protocol.TagTooLate}
	}

	duration := g.airtime(tx)
	packetType := packetTypeFor(tx.Class)

	var now uint32
	err = g.withConcent(func() error {
		var ierr error
		now, ierr = g.concent.InstCnt()
		return ierr
	})
	if err != nil {
		log.Printf("bridge: downstream: InstCnt failed: %v", err)
		g.reporter.Downstream.RecordRejected(protocol.TagTooLate)
		return &protocol.TxAckResult{Tag: protocol.TagTooLate}
	}

	var kind jit.ErrorKind
	g.withJit(tx.RFChain, func(q *jit.Queue) {
		_, kind = q.Enqueue(now, tx, packetType, start, duration)
	})
	if kind != jit.OK {
		tag := protocolTagFor(kind)
		g.reporter.Downstream.RecordRejected(tag)
		g.publishEvent(&adminapi.Event{Kind: adminapi.EventTxRejected, RFChain: uint32(tx.RFChain), Tag: tag})
		return &protocol.TxAckResult{Tag: tag}
	}

	g.reporter.Downstream.RecordScheduled()
	return warnPower
}

func packetTypeFor(class protocol.DownlinkClass) jit.PacketType {
	switch class {
	case protocol.ClassA:
		return jit.DownlinkClassA
	case protocol.ClassB:
		return jit.DownlinkClassB
	default:
		return jit.DownlinkClassC
	}
}

func (g *Gateway) resolveStartCounter(tx *protocol.TXPacket) (uint32, error) {
	switch tx.Mode {
	case protocol.TxTimestamped:
		return tx.CountUs, nil
	case protocol.TxOnGPS:
		gpsTime := gpsEpochToTime(tx.GPSTimeMs)
		cnt, ok := g.timeref.Gps2Cnt(gpsTime)
		if !ok {
			return 0, fmt.Errorf("no valid time reference")
		}
		return cnt, nil
	default: // TxImmediate
		var now uint32
		err := g.withConcent(func() error {
			var ierr error
			now, ierr = g.concent.InstCnt()
			return ierr
		})
		if err != nil {
			return 0, err
		}
		return now + jit.MinTxStartDelay, nil
	}
}

func gpsEpochToTime(gpsMs uint64) time.Time {
	seconds := int64(gpsMs/1000) + protocol.UnixGPSEpochOffset
	nanos := int64(gpsMs%1000) * int64(time.Millisecond)
	return time.Unix(seconds, nanos).UTC()
}

func (g *Gateway) airtime(tx *protocol.TXPacket) uint32 {
	if tx.Modulation == "FSK" {
		return jit.FSKAirtimeUs(tx.DataRate, len(tx.Data), tx.PreambleLen)
	}
	denom := coderateDenom(tx.CodeRate)
	return jit.LoRaAirtimeUs(int(tx.DataRate), tx.BandwidthHz, denom, len(tx.Data), tx.PreambleLen, tx.NoHeader, !tx.NoCRC)
}

func coderateDenom(cr string) int {
	parts := strings.SplitN(cr, "/", 2)
	if len(parts) != 2 {
		return 5
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil {
		return 5
	}
	return d
}
