// Package bridge wires the protocol, jit, beacon, timeref, hal, gpsdevice
// and stats packages into the cooperating worker set described by the
// system design: Upstream, Downstream, JIT dispatcher, GPS sync, XTAL
// validator and the statistics loop, all sharing state behind the named
// mutexes each worker's design calls for.
package bridge

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/adminapi"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/gpsdevice"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/hal"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/jit"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/stats"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/timeref"
)

// FETCH_SLEEP_MS: how long Upstream idles between empty HAL fetches.
const fetchSleepInterval = 10 * time.Millisecond

// jitDispatchInterval is the JIT dispatcher's poll period.
const jitDispatchInterval = 10 * time.Millisecond

// xtalValidatorInterval is the XTAL validator's poll period.
const xtalValidatorInterval = 1 * time.Second

// Gateway is the shared agent value every worker operates on: the
// module-level globals of the reference design collapsed into fields,
// each guarded by the mutex named in the design.
type Gateway struct {
	cfg GatewayConfig

	concent   hal.Concentrator
	concentMu sync.Mutex // mx_concent: serializes every HAL call

	timeref *timeref.Tracker // mx_timeref + mx_xcorr

	reporter *stats.Reporter
	exporter *stats.Exporter

	jitMu     sync.Mutex // guards the jit queue map and every queue in it
	jitQueues map[uint8]*jit.Queue

	lastBeaconGPS    int64
	hasLastBeaconGPS bool

	gpsDevice gpsdevice.Device
	gpsParser gpsdevice.Parser

	upConn   *net.UDPConn
	downConn *net.UDPConn

	autoquitMu    sync.Mutex
	autoquitCount int

	adminHub  *adminapi.Hub
	startedAt time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	now func() time.Time
}

// New builds a Gateway around a concrete Concentrator. gpsDev/gpsParser may
// be nil when fake_gps is enabled and no physical receiver is attached.
func New(cfg GatewayConfig, concent hal.Concentrator, gpsDev gpsdevice.Device, gpsParser gpsdevice.Parser) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:       cfg,
		concent:   concent,
		timeref:   timeref.New(nil),
		reporter:  stats.NewReporter(nil),
		exporter:  stats.NewExporter(),
		jitQueues: make(map[uint8]*jit.Queue),
		gpsDevice: gpsDev,
		gpsParser: gpsParser,
		adminHub:  adminapi.NewHub(),
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}

	for chain := range cfg.Chains {
		q, err := jit.NewQueue(cfg.JITQueueCapacity, cfg.JITMaxBeaconsInQueue)
		if err != nil {
			return nil, fmt.Errorf("jit queue for chain %d: %w", chain, err)
		}
		g.jitQueues[chain] = q
	}

	if cfg.FakeGPS {
		g.reporter.SetLocation(stats.Location{
			Valid: true, Latitude: cfg.RefLatitude, Longitude: cfg.RefLongitude, AltitudeM: cfg.RefAltitudeM,
		})
	}

	return g, nil
}

// Start dials the upstream/downstream UDP sockets, starts the
// concentrator, and launches every worker goroutine.
func (g *Gateway) Start() error {
	g.startedAt = g.now()

	if err := g.withConcent(func() error { return g.concent.Start() }); err != nil {
		return fmt.Errorf("start concentrator: %w", err)
	}

	upAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", g.cfg.ServerAddress, g.cfg.ServerPortUp))
	if err != nil {
		return fmt.Errorf("resolve upstream address: %w", err)
	}
	g.upConn, err = net.DialUDP("udp", nil, upAddr)
	if err != nil {
		return fmt.Errorf("dial upstream socket: %w", err)
	}

	downAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", g.cfg.ServerAddress, g.cfg.ServerPortDown))
	if err != nil {
		return fmt.Errorf("resolve downstream address: %w", err)
	}
	g.downConn, err = net.DialUDP("udp", nil, downAddr)
	if err != nil {
		return fmt.Errorf("dial downstream socket: %w", err)
	}

	g.wg.Add(1)
	go g.upstreamLoop()

	g.wg.Add(1)
	go g.downstreamLoop()

	g.wg.Add(1)
	go g.jitDispatchLoop()

	g.wg.Add(1)
	go g.xtalValidatorLoop()

	if g.gpsDevice != nil && g.gpsParser != nil {
		g.wg.Add(1)
		go g.gpsSyncLoop()
	}

	g.wg.Add(1)
	go g.statisticsLoop()

	log.Println("bridge: gateway started")
	return nil
}

// Stop signals every worker to exit and waits for them to drain.
func (g *Gateway) Stop() error {
	g.stopOnce.Do(func() { close(g.stopChan) })
	g.wg.Wait()

	if g.upConn != nil {
		g.upConn.Close()
	}
	if g.downConn != nil {
		g.downConn.Close()
	}

	if err := g.withConcent(func() error { return g.concent.Stop() }); err != nil {
		log.Printf("bridge: error stopping concentrator: %v", err)
	}

	log.Println("bridge: gateway stopped")
	return nil
}

// withConcent serializes one HAL round-trip under mx_concent. Per the
// lock-ordering rule, no other named mutex may be acquired from within fn.
func (g *Gateway) withConcent(fn func() error) error {
	g.concentMu.Lock()
	defer g.concentMu.Unlock()
	return fn()
}

// withJit serializes one operation against an RF chain's JIT queue,
// creating the queue lazily if the chain wasn't present in the
// SX130x_conf map (e.g. a test that skips full chain configuration).
// jit.Queue keeps no internal lock of its own, so every call site that
// touches a queue must go through this helper.
func (g *Gateway) withJit(chain uint8, fn func(q *jit.Queue)) {
	g.jitMu.Lock()
	defer g.jitMu.Unlock()
	q, ok := g.jitQueues[chain]
	if !ok {
		q, _ = jit.NewQueue(g.cfg.JITQueueCapacity, g.cfg.JITMaxBeaconsInQueue)
		g.jitQueues[chain] = q
	}
	fn(q)
}

// jitChains returns a snapshot of configured RF chain indices, for the
// dispatcher to iterate without holding jitMu across HAL calls.
func (g *Gateway) jitChains() []uint8 {
	g.jitMu.Lock()
	defer g.jitMu.Unlock()
	chains := make([]uint8, 0, len(g.jitQueues))
	for chain := range g.jitQueues {
		chains = append(chains, chain)
	}
	return chains
}

// exitRequested reports, without blocking, whether stopChan has been closed
// (by Stop or by the autoquit threshold).
func (g *Gateway) exitRequested() bool {
	select {
	case <-g.stopChan:
		return true
	default:
		return false
	}
}

// protocolTagFor maps a jit.ErrorKind to its TX_ACK wire tag.
func protocolTagFor(kind jit.ErrorKind) string {
	switch kind {
	case jit.Full:
		return "FULL"
	case jit.CollisionPacket:
		return protocol.TagCollisionPacket
	case jit.CollisionBeacon:
		return protocol.TagCollisionBeacon
	case jit.TooLate:
		return protocol.TagTooLate
	case jit.TooEarly:
		return protocol.TagTooEarly
	default:
		return "UNKNOWN"
	}
}
