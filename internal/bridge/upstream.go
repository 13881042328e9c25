package bridge

import (
	"errors"
	"log"
	"net"
	"time"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

const nbPktMax = 24

// upstreamLoop drains newly received packets from the HAL, filters them by
// CRC status, assembles a PUSH_DATA datagram (piggybacking the pending
// statistics report, if any), sends it, and waits briefly for the PUSH_ACK.
func (g *Gateway) upstreamLoop() {
	defer g.wg.Done()

	for {
		if g.exitRequested() {
			return
		}

		var pkts []*protocol.RXPacket
		err := g.withConcent(func() error {
			var rerr error
			pkts, rerr = g.concent.Receive(nbPktMax)
			return rerr
		})
		if err != nil {
			// HAL receive failure is fatal per the upstream worker's contract.
			log.Fatalf("bridge: upstream: HAL receive failed: %v", err)
		}

		forwarded := g.filterAndAnnotate(pkts)
		if len(forwarded) == 0 {
			select {
			case <-g.stopChan:
				return
			case <-time.After(fetchSleepInterval):
			}
			continue
		}

		g.sendUplink(forwarded)
	}
}

// filterAndAnnotate applies fwd_valid_pkt/fwd_error_pkt/fwd_nocrc_pkt,
// stamps each forwarded packet with GPS/UTC time when available, and
// records every packet (forwarded or not) in the upstream counters.
func (g *Gateway) filterAndAnnotate(pkts []*protocol.RXPacket) []*protocol.RXPacket {
	forwarded := make([]*protocol.RXPacket, 0, len(pkts))
	for _, p := range pkts {
		crcOK := p.Status == protocol.CRCOK
		crcBad := p.Status == protocol.CRCBad
		noCRC := p.Status == protocol.CRCNone

		keep := (crcOK && g.cfg.ForwardCRCValid) ||
			(crcBad && g.cfg.ForwardCRCError) ||
			(noCRC && g.cfg.ForwardCRCDisabled)

		g.reporter.Upstream.RecordRX(crcOK, crcBad, noCRC, keep)
		if !keep {
			continue
		}

		if _, valid, _ := g.timeref.Snapshot(); valid {
			utc, ok := g.timeref.Cnt2Utc(p.CountUs)
			if ok {
				p.UTCTime = &utc
			}
			gps, ok := g.timeref.Cnt2Gps(p.CountUs)
			if ok {
				ms := (gps.Unix()-protocol.UnixGPSEpochOffset)*1000 + int64(gps.Nanosecond()/1e6)
				p.GPSTimeMs = &ms
			}
		}
		forwarded = append(forwarded, p)
	}
	return forwarded
}

// sendUplink builds and sends one PUSH_DATA datagram, then waits for its
// PUSH_ACK per the two-successive-receive discipline that tolerates a
// duplicate or out-of-order ACK arriving first.
func (g *Gateway) sendUplink(pkts []*protocol.RXPacket) {
	token, err := protocol.NewToken()
	if err != nil {
		log.Printf("bridge: upstream: token generation failed: %v", err)
		return
	}

	report := g.reporter.TakePending()
	datagram, err := protocol.BuildPushData(g.cfg.GatewayID, token, pkts, report)
	if err != nil {
		log.Printf("bridge: upstream: failed to assemble PUSH_DATA: %v", err)
		return
	}

	if _, err := g.upConn.Write(datagram); err != nil {
		log.Printf("bridge: upstream: send failed: %v", err)
		return
	}

	acked := g.awaitPushAck(token)
	g.reporter.Upstream.RecordPush(acked)
}

func (g *Gateway) awaitPushAck(token protocol.Token) bool {
	buf := make([]byte, 4)
	timeout := g.cfg.PushTimeout / 2
	for i := 0; i < 2; i++ {
		g.upConn.SetReadDeadline(time.Now().Add(timeout))
		n, err := g.upConn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return false
			}
			log.Printf("bridge: upstream: ack read error: %v", err)
			return false
		}
		ack, err := protocol.DecodeAck(buf[:n])
		if err != nil {
			continue
		}
		if ack.Version == protocol.Version && ack.Type == protocol.PushAck && ack.Token == token {
			return true
		}
		// Mismatched token or type: logged and ignored, try once more.
		log.Printf("bridge: upstream: ignoring unmatched ack type=%d token=%d", ack.Type, ack.Token)
	}
	return false
}
