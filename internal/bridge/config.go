package bridge

import (
	"fmt"
	"time"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/jit"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

// ChainConfig mirrors one radio_N block's TX-relevant fields from
// SX130x_conf: the frequency bounds and power look-up table used during TX
// admission.
type ChainConfig struct {
	TxEnable    bool
	TxFreqMinHz uint32
	TxFreqMaxHz uint32

	// PowerLUT is the tx_gain_lut's usable RF power steps, ascending. TX
	// admission picks the largest entry not exceeding the requested power.
	PowerLUT []int8
}

// lookupPower returns the largest PowerLUT entry not exceeding requested,
// and whether a forcing substitution occurred (false when the PowerLUT is
// empty, in which case the request passes through unmodified). A request
// below every LUT entry clamps to the lowest available power rather than
// failing, matching the original forwarder's behavior.
func (c ChainConfig) lookupPower(requested int8) (chosen int8, forced bool, ok bool) {
	if len(c.PowerLUT) == 0 {
		return requested, false, true
	}
	best := c.PowerLUT[0]
	lowest := c.PowerLUT[0]
	found := false
	for _, p := range c.PowerLUT {
		if p < lowest {
			lowest = p
		}
		if p <= requested && (!found || p > best) {
			best = p
			found = true
		}
	}
	if !found {
		return lowest, true, true
	}
	return best, best != requested, true
}

// GatewayConfig is the runtime configuration assembled from the
// gateway_conf and SX130x_conf sections of the configuration file.
type GatewayConfig struct {
	GatewayID protocol.GatewayID

	ServerAddress   string
	ServerPortUp    int
	ServerPortDown  int

	KeepaliveInterval time.Duration
	StatInterval      time.Duration
	PushTimeout       time.Duration
	PullTimeout       time.Duration

	ForwardCRCValid    bool
	ForwardCRCError    bool
	ForwardCRCDisabled bool

	AntennaGainDbi float64

	FakeGPS       bool
	RefLatitude   float64
	RefLongitude  float64
	RefAltitudeM  int32

	BeaconPeriod      int64 // seconds; 0 disables beaconing
	BeaconRFChain     uint8 // which configured RF chain transmits beacons
	BeaconFreqHz      uint32
	BeaconFreqNb      int
	BeaconFreqStepHz  uint32
	BeaconDataRate    int // spreading factor
	BeaconBandwidthHz uint32
	BeaconPowerDbm    int8
	BeaconInfoDesc    uint8

	AutoquitThreshold int

	Chains map[uint8]ChainConfig

	JITQueueCapacity     int
	JITMaxBeaconsInQueue int
}

// DefaultGatewayConfig returns the §6 defaults not overridden by a
// configuration file.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		ServerPortUp:         1780,
		ServerPortDown:       1782,
		KeepaliveInterval:    5 * time.Second,
		StatInterval:         30 * time.Second,
		PushTimeout:          100 * time.Millisecond,
		PullTimeout:          200 * time.Millisecond,
		ForwardCRCValid:      true,
		JITQueueCapacity:     jit.SizeMax,
		JITMaxBeaconsInQueue: 2,
		Chains:               map[uint8]ChainConfig{},
	}
}

// Validate checks the mandatory fields a bridge cannot start without.
func (c GatewayConfig) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("gateway_conf: server_address is required")
	}
	if c.JITMaxBeaconsInQueue < 1 || c.JITMaxBeaconsInQueue > c.JITQueueCapacity/2 {
		return fmt.Errorf("gateway_conf: jit max beacons in queue %d out of range [1, %d]",
			c.JITMaxBeaconsInQueue, c.JITQueueCapacity/2)
	}
	if c.BeaconPeriod != 0 && c.BeaconPeriod < 6 {
		return fmt.Errorf("gateway_conf: beacon_period must be 0 (disabled) or >= 6 seconds")
	}
	return nil
}
