package bridge

import (
	"log"
	"time"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/beacon"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/jit"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

// maxBeaconRetriesPerCycle bounds how many one-period advances
// preEnqueueBeacons tries before giving up for this downstream cycle,
// so a persistently colliding beacon slot cannot spin the worker forever.
const maxBeaconRetriesPerCycle = 8

// preEnqueueBeacons keeps the beacon queue topped up to
// JITMaxBeaconsInQueue, per §4.6: active only while beacon_period > 0 and
// the time reference is both valid and XTAL-disciplined.
func (g *Gateway) preEnqueueBeacons() {
	if g.cfg.BeaconPeriod <= 0 {
		return
	}
	ref, valid, _ := g.timeref.Snapshot()
	if !valid {
		return
	}
	if _, xtalOK := g.timeref.XtalCorrection(); !xtalOK {
		return
	}

	currentGpsSec := ref.GPS.Unix() - protocol.UnixGPSEpochOffset

	for {
		var numBeacon, maxBeacon int
		g.withJit(g.cfg.BeaconRFChain, func(q *jit.Queue) { numBeacon, maxBeacon = q.NumBeacon(), q.MaxBeaconsInQueue() })
		if numBeacon >= maxBeacon {
			return
		}
		if !g.enqueueOneBeacon(currentGpsSec) {
			return
		}
	}
}

// enqueueOneBeacon computes the next due beacon slot and attempts to
// admit it, retrying one period later on any admission failure.
func (g *Gateway) enqueueOneBeacon(currentGpsSec int64) bool {
	slot := beacon.NextSlot(currentGpsSec, g.cfg.BeaconPeriod, g.lastBeaconGPS, g.hasLastBeaconGPS)

	for attempt := 0; attempt < maxBeaconRetriesPerCycle; attempt++ {
		ok := g.tryEnqueueBeaconAt(slot)
		g.reporter.Downstream.RecordBeacon(ok)
		if ok {
			g.lastBeaconGPS = slot
			g.hasLastBeaconGPS = true
			return true
		}
		slot += g.cfg.BeaconPeriod
	}
	log.Printf("bridge: beacon: giving up after %d consecutive admission failures", maxBeaconRetriesPerCycle)
	return false
}

func (g *Gateway) tryEnqueueBeaconAt(gpsSlot int64) bool {
	payload, err := beacon.Build(g.cfg.BeaconDataRate, uint32(gpsSlot), g.cfg.BeaconInfoDesc, g.cfg.RefLatitude, g.cfg.RefLongitude)
	if err != nil {
		log.Printf("bridge: beacon: build failed: %v", err)
		return false
	}

	channel := beacon.Channel(gpsSlot, g.cfg.BeaconPeriod, g.cfg.BeaconFreqNb)
	freq := beacon.FrequencyHz(g.cfg.BeaconFreqHz, channel, g.cfg.BeaconFreqStepHz)

	slotTime := time.Unix(gpsSlot+protocol.UnixGPSEpochOffset, 0).UTC()
	start, ok := g.timeref.Gps2Cnt(slotTime)
	if !ok {
		return false
	}

	tx := &protocol.TXPacket{
		Mode:           protocol.TxOnGPS,
		FreqHz:         freq,
		RFChain:        g.cfg.BeaconRFChain,
		PowerDbm:       uint8(g.cfg.BeaconPowerDbm),
		HasPower:       true,
		Modulation:     "LORA",
		BandwidthHz:    g.cfg.BeaconBandwidthHz,
		DataRate:       uint32(g.cfg.BeaconDataRate),
		CodeRate:       "4/5",
		PreambleLen:    10,
		NoCRC:          true,
		NoHeader:       true,
		InvertPolarity: false,
		Data:           payload,
	}
	duration := jit.LoRaAirtimeUs(g.cfg.BeaconDataRate, g.cfg.BeaconBandwidthHz, 5, len(payload), 10, true, false)

	var now uint32
	err = g.withConcent(func() error {
		var ierr error
		now, ierr = g.concent.InstCnt()
		return ierr
	})
	if err != nil {
		log.Printf("bridge: beacon: InstCnt failed: %v", err)
		return false
	}

	var kind jit.ErrorKind
	g.withJit(g.cfg.BeaconRFChain, func(q *jit.Queue) {
		_, kind = q.Enqueue(now, tx, jit.Beacon, start, duration)
	})
	return kind == jit.OK
}
