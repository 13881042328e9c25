package bridge

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/adminapi"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/gpsdevice"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/stats"
)

// gpsRingBufferSize matches the 128-byte scan window the GPS sync worker
// keeps around while hunting for a frame header.
const gpsRingBufferSize = 128

// gpsSyncLoop streams bytes from the GPS device, feeding the external
// parser a sliding buffer: INCOMPLETE leaves bytes for the next read,
// INVALID advances past the unrecognized header, and a complete frame is
// consumed exactly frame_size bytes and dispatched by kind. ReadByte
// blocks on the underlying device, so this worker only observes stopChan
// between reads, not mid-read.
func (g *Gateway) gpsSyncLoop() {
	defer g.wg.Done()

	buf := make([]byte, 0, gpsRingBufferSize)
	for {
		if g.exitRequested() {
			return
		}

		b, err := g.gpsDevice.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			log.Printf("bridge: gps: read error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		buf = append(buf, b)
		if len(buf) > gpsRingBufferSize {
			buf = buf[len(buf)-gpsRingBufferSize:]
		}

		for {
			fix, consumed, status, perr := g.gpsParser.ParseLine(buf)
			switch status {
			case gpsdevice.Incomplete:
				goto nextByte
			case gpsdevice.Invalid:
				if perr != nil {
					log.Printf("bridge: gps: invalid frame: %v", perr)
				}
				if consumed <= 0 {
					consumed = 1
				}
				buf = buf[consumed:]
			case gpsdevice.Complete:
				buf = buf[consumed:]
				g.handleGPSFix(fix)
			}
		}
	nextByte:
	}
}

func (g *Gateway) handleGPSFix(fix *gpsdevice.Fix) {
	switch fix.Kind {
	case gpsdevice.FixTimeGPS:
		var trig uint32
		err := g.withConcent(func() error {
			var terr error
			trig, terr = g.concent.TrigCnt()
			return terr
		})
		if err != nil {
			log.Printf("bridge: gps: trigcnt failed: %v", err)
			return
		}
		g.timeref.Sync(fix.UTC, fix.GPS, trig)
		g.reporter.GPS.RecordSync(true)
		g.publishEvent(&adminapi.Event{Kind: adminapi.EventGPSSync})

	case gpsdevice.FixRMC:
		if !fix.Valid || g.cfg.FakeGPS {
			return
		}
		g.reporter.SetLocation(locationFromFix(fix, g.cfg.RefAltitudeM))
	}
}

func locationFromFix(fix *gpsdevice.Fix, altitudeM int32) stats.Location {
	return stats.Location{Valid: true, Latitude: fix.Latitude, Longitude: fix.Longitude, AltitudeM: altitudeM}
}
