// Command lora-pkt-fwd runs the LoRa packet forwarder bridge: it loads a
// SX130x_conf/gateway_conf/debug_conf configuration file, brings up a
// concentrator facade and the four cooperating workers described by the
// bridge design, and serves a local gRPC diagnostics surface.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/adminapi"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/bridge"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/hal"
	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

// fileConfig mirrors the §6 configuration file layout: SX130x_conf,
// gateway_conf, debug_conf, plus a bridge-local admin block the source
// material leaves to the HTTP configuration UI (out of scope here; this
// bridge exposes the equivalent surface over gRPC instead).
type fileConfig struct {
	SX130xConf struct {
		Board struct {
			ComType       string `yaml:"com_type"`
			ComPath       string `yaml:"com_path"`
			LorawanPublic bool   `yaml:"lorawan_public"`
			AntennaGain   int8   `yaml:"antenna_gain"`
		} `yaml:"board"`

		Radios map[string]struct {
			Enable      bool    `yaml:"enable"`
			FreqHz      uint32  `yaml:"freq"`
			TxEnable    bool    `yaml:"tx_enable"`
			TxFreqMinHz uint32  `yaml:"tx_freq_min"`
			TxFreqMaxHz uint32  `yaml:"tx_freq_max"`
			TxGainLUT   []int8  `yaml:"tx_gain_lut"`
		} `yaml:",inline"`
	} `yaml:"SX130x_conf"`

	GatewayConf struct {
		GatewayID         string  `yaml:"gateway_ID"`
		ServerAddress     string  `yaml:"server_address"`
		ServPortUp        int     `yaml:"serv_port_up"`
		ServPortDown      int     `yaml:"serv_port_down"`
		KeepaliveInterval int     `yaml:"keepalive_interval"`
		StatInterval      int     `yaml:"stat_interval"`
		PushTimeoutMs     int     `yaml:"push_timeout_ms"`
		ForwardCRCValid   bool    `yaml:"forward_crc_valid"`
		ForwardCRCError   bool    `yaml:"forward_crc_error"`
		ForwardCRCDisable bool    `yaml:"forward_crc_disabled"`
		GPSTTYPath        string  `yaml:"gps_tty_path"`
		RefLatitude       float64 `yaml:"ref_latitude"`
		RefLongitude      float64 `yaml:"ref_longitude"`
		RefAltitude       int32   `yaml:"ref_altitude"`
		FakeGPS           bool    `yaml:"fake_gps"`
		BeaconPeriod      int64   `yaml:"beacon_period"`
		BeaconFreqHz      uint32  `yaml:"beacon_freq_hz"`
		BeaconFreqNb      int     `yaml:"beacon_freq_nb"`
		BeaconFreqStepHz  uint32  `yaml:"beacon_freq_step"`
		BeaconDataRate    int     `yaml:"beacon_datarate"`
		BeaconBandwidthHz uint32  `yaml:"beacon_bw_hz"`
		BeaconPower       int8    `yaml:"beacon_power"`
		BeaconInfoDesc    uint8   `yaml:"beacon_infodesc"`
		BeaconRFChain     uint8   `yaml:"beacon_rf_chain"`
		AutoquitThreshold int     `yaml:"autoquit_threshold"`
	} `yaml:"gateway_conf"`

	DebugConf struct {
		LogFile string `yaml:"log_file"`
	} `yaml:"debug_conf"`

	Admin struct {
		GRPCAddr    string `yaml:"grpc_addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"admin"`

	Concentratord struct {
		EventURL   string `yaml:"event_url"`
		CommandURL string `yaml:"command_url"`
	} `yaml:"concentratord"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &fc, nil
}

// toGatewayConfig translates the on-disk schema into bridge.GatewayConfig,
// layering onto the §6 defaults.
func toGatewayConfig(fc *fileConfig) (bridge.GatewayConfig, error) {
	cfg := bridge.DefaultGatewayConfig()

	if fc.GatewayConf.GatewayID == "" {
		return cfg, fmt.Errorf("gateway_conf.gateway_ID is required")
	}
	gwid, err := protocol.ParseGatewayID(fc.GatewayConf.GatewayID)
	if err != nil {
		return cfg, fmt.Errorf("gateway_conf.gateway_ID: %w", err)
	}
	cfg.GatewayID = gwid

	cfg.ServerAddress = fc.GatewayConf.ServerAddress
	if fc.GatewayConf.ServPortUp != 0 {
		cfg.ServerPortUp = fc.GatewayConf.ServPortUp
	}
	if fc.GatewayConf.ServPortDown != 0 {
		cfg.ServerPortDown = fc.GatewayConf.ServPortDown
	}
	if fc.GatewayConf.KeepaliveInterval > 0 {
		cfg.KeepaliveInterval = time.Duration(fc.GatewayConf.KeepaliveInterval) * time.Second
	}
	if fc.GatewayConf.StatInterval > 0 {
		cfg.StatInterval = time.Duration(fc.GatewayConf.StatInterval) * time.Second
	}
	if fc.GatewayConf.PushTimeoutMs > 0 {
		cfg.PushTimeout = time.Duration(fc.GatewayConf.PushTimeoutMs) * time.Millisecond
	}
	cfg.ForwardCRCValid = fc.GatewayConf.ForwardCRCValid
	cfg.ForwardCRCError = fc.GatewayConf.ForwardCRCError
	cfg.ForwardCRCDisabled = fc.GatewayConf.ForwardCRCDisable

	cfg.AntennaGainDbi = float64(fc.SX130xConf.Board.AntennaGain)

	cfg.FakeGPS = fc.GatewayConf.FakeGPS
	cfg.RefLatitude = fc.GatewayConf.RefLatitude
	cfg.RefLongitude = fc.GatewayConf.RefLongitude
	cfg.RefAltitudeM = fc.GatewayConf.RefAltitude

	cfg.BeaconPeriod = fc.GatewayConf.BeaconPeriod
	cfg.BeaconRFChain = fc.GatewayConf.BeaconRFChain
	cfg.BeaconFreqHz = fc.GatewayConf.BeaconFreqHz
	cfg.BeaconFreqNb = fc.GatewayConf.BeaconFreqNb
	cfg.BeaconFreqStepHz = fc.GatewayConf.BeaconFreqStepHz
	cfg.BeaconDataRate = fc.GatewayConf.BeaconDataRate
	cfg.BeaconBandwidthHz = fc.GatewayConf.BeaconBandwidthHz
	cfg.BeaconPowerDbm = fc.GatewayConf.BeaconPower
	cfg.BeaconInfoDesc = fc.GatewayConf.BeaconInfoDesc

	cfg.AutoquitThreshold = fc.GatewayConf.AutoquitThreshold

	cfg.Chains = map[uint8]bridge.ChainConfig{}
	for name, radio := range fc.SX130xConf.Radios {
		if !radio.Enable {
			continue
		}
		idx, err := radioIndex(name)
		if err != nil {
			continue
		}
		cfg.Chains[idx] = bridge.ChainConfig{
			TxEnable:    radio.TxEnable,
			TxFreqMinHz: radio.TxFreqMinHz,
			TxFreqMaxHz: radio.TxFreqMaxHz,
			PowerLUT:    radio.TxGainLUT,
		}
	}

	return cfg, nil
}

func radioIndex(name string) (uint8, error) {
	switch name {
	case "radio_0":
		return 0, nil
	case "radio_1":
		return 1, nil
	default:
		return 0, fmt.Errorf("unknown radio block %q", name)
	}
}

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "lora-pkt-fwd",
		Short: "LoRa packet forwarder bridge",
		Long:  "Bridges a LoRa concentrator to a Semtech UDP protocol network server: uplink forwarding, downlink scheduling, Class B beaconing and GPS time discipline.",
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the packet forwarder",
		RunE:  runForwarder,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("lora-pkt-fwd v0.1.0")
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/lora-pkt-fwd/global_conf.yaml", "Configuration file path")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runForwarder(cmd *cobra.Command, args []string) error {
	fc, err := loadFileConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	gwCfg, err := toGatewayConfig(fc)
	if err != nil {
		return fmt.Errorf("failed to build gateway config: %w", err)
	}

	hcfg := hal.DefaultConfig()
	if fc.Concentratord.EventURL != "" {
		hcfg.EventURL = fc.Concentratord.EventURL
	}
	if fc.Concentratord.CommandURL != "" {
		hcfg.CommandURL = fc.Concentratord.CommandURL
	}
	concent := hal.New(hcfg)

	// The physical GPS device and its NMEA/UBX line parser are external
	// collaborators per §1; this bridge runs without a live receiver
	// (fake_gps reporting, if enabled, is handled entirely inside
	// bridge.New) until a concrete Device/Parser pair is wired in from
	// outside this module.
	gw, err := bridge.New(gwCfg, concent, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to build gateway: %w", err)
	}

	if err := gw.Start(); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	grpcAddr := fc.Admin.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = "127.0.0.1:9091"
	}
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Printf("lora-pkt-fwd: admin gRPC listen failed on %s: %v", grpcAddr, err)
	} else {
		grpcSrv := grpc.NewServer()
		adminapi.RegisterDiagnosticsServer(grpcSrv, adminapi.NewServer(gw, gw.AdminHub()))
		go func() {
			log.Printf("lora-pkt-fwd: admin gRPC listening on %s", grpcAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Printf("lora-pkt-fwd: admin gRPC server stopped: %v", err)
			}
		}()
		defer grpcSrv.GracefulStop()
	}

	metricsAddr := fc.Admin.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = "127.0.0.1:9092"
	}
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: gw.MetricsHandler()}
	go func() {
		log.Printf("lora-pkt-fwd: metrics listening on %s", metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("lora-pkt-fwd: metrics server stopped: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("lora-pkt-fwd: started for gateway %s", gwCfg.GatewayID)

	sig := <-sigChan
	log.Printf("lora-pkt-fwd: received signal %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	if err := gw.Stop(); err != nil {
		log.Printf("lora-pkt-fwd: error during shutdown: %v", err)
	}

	log.Println("lora-pkt-fwd: shutdown complete")
	return nil
}
