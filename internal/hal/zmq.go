package hal

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"

	"github.com/chirpstack-bridge/lora-pkt-fwd/internal/protocol"
)

// Config configures the ZMQ-backed concentrator facade, dialing an external
// concentratord-style process the same way the property-controller's
// ConcentratordDriver does: a SUB socket for events, a REQ socket for
// commands.
type Config struct {
	EventURL   string
	CommandURL string
}

// DefaultConfig matches ChirpStack Concentratord's default local sockets.
func DefaultConfig() Config {
	return Config{
		EventURL:   "ipc:///tmp/concentratord_event",
		CommandURL: "ipc:///tmp/concentratord_command",
	}
}

// ZMQConcentrator drives an external concentratord process over ZeroMQ.
// Uplink/stat events arrive on the SUB socket and Receive drains the uplinks
// buffered from it; send/status/counter/reset calls are request/reply
// round-trips on the REQ socket. Because zmq4 REQ
// sockets are strict request-reply (one Send must be followed by exactly
// one Recv before the next Send), all command traffic is serialized behind
// cmdMu.
type ZMQConcentrator struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	eventSock zmq4.Socket
	cmdSock   zmq4.Socket
	cmdMu     sync.Mutex

	rxMu  sync.Mutex
	rxBuf []*protocol.RXPacket

	sessionID uuid.UUID
}

// New builds a ZMQConcentrator. Call Start to dial.
func New(cfg Config) *ZMQConcentrator {
	return &ZMQConcentrator{cfg: cfg, sessionID: uuid.New()}
}

func (c *ZMQConcentrator) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.eventSock = zmq4.NewSub(c.ctx)
	if err := c.eventSock.Dial(c.cfg.EventURL); err != nil {
		return fmt.Errorf("hal: dial event socket: %w", err)
	}
	if err := c.eventSock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		return fmt.Errorf("hal: subscribe event socket: %w", err)
	}

	c.cmdSock = zmq4.NewReq(c.ctx)
	if err := c.cmdSock.Dial(c.cfg.CommandURL); err != nil {
		c.eventSock.Close()
		return fmt.Errorf("hal: dial command socket: %w", err)
	}

	c.wg.Add(1)
	go c.eventLoop()

	log.Printf("hal: connected to concentratord event=%s cmd=%s session=%s",
		c.cfg.EventURL, c.cfg.CommandURL, c.sessionID)
	return nil
}

func (c *ZMQConcentrator) Stop() error {
	c.cancel()
	c.wg.Wait()
	if c.eventSock != nil {
		c.eventSock.Close()
	}
	if c.cmdSock != nil {
		c.cmdSock.Close()
	}
	return nil
}

// eventLoop drains uplink/stat events pushed by concentratord and buffers
// uplinks for the next Receive call.
func (c *ZMQConcentrator) eventLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		msg, err := c.eventSock.Recv()
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			continue
		}
		if len(msg.Frames) < 2 {
			continue
		}
		switch string(msg.Frames[0]) {
		case "uplink":
			var w rxWire
			if err := json.Unmarshal(msg.Frames[1], &w); err != nil {
				log.Printf("hal: malformed uplink event: %v", err)
				continue
			}
			c.rxMu.Lock()
			c.rxBuf = append(c.rxBuf, w.toRXPacket())
			c.rxMu.Unlock()
		case "stats":
			// Gateway-level hardware stats (temperature, etc.) are logged
			// only; the bridge's own stats loop owns the reported counters.
			log.Printf("hal: concentratord stats event received (%d bytes)", len(msg.Frames[1]))
		}
	}
}

func (c *ZMQConcentrator) Receive(maxPkt int) ([]*protocol.RXPacket, error) {
	c.rxMu.Lock()
	defer c.rxMu.Unlock()
	if len(c.rxBuf) == 0 {
		return nil, nil
	}
	n := maxPkt
	if n > len(c.rxBuf) {
		n = len(c.rxBuf)
	}
	out := c.rxBuf[:n]
	c.rxBuf = c.rxBuf[n:]
	return out, nil
}

func (c *ZMQConcentrator) command(name string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("hal: encode %s command: %w", name, err)
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if err := c.cmdSock.Send(zmq4.NewMsgFrom([]byte(name), body)); err != nil {
		return nil, fmt.Errorf("hal: send %s command: %w", name, err)
	}
	resp, err := c.cmdSock.Recv()
	if err != nil {
		return nil, fmt.Errorf("hal: recv %s reply: %w", name, err)
	}
	if len(resp.Frames) == 0 {
		return nil, fmt.Errorf("hal: empty reply to %s", name)
	}
	return resp.Frames[0], nil
}

func (c *ZMQConcentrator) Send(pkt *protocol.TXPacket) error {
	_, err := c.command("send", txWireFrom(pkt))
	return err
}

func (c *ZMQConcentrator) Status(rfChain uint8) (ChainStatus, error) {
	reply, err := c.command("status", struct {
		RFChain uint8 `json:"rf_chain"`
	}{rfChain})
	if err != nil {
		return StatusOff, err
	}
	var resp struct {
		Status uint8 `json:"status"`
	}
	if err := json.Unmarshal(reply, &resp); err != nil {
		return StatusOff, fmt.Errorf("hal: decode status reply: %w", err)
	}
	return ChainStatus(resp.Status), nil
}

func (c *ZMQConcentrator) counterCommand(name string) (uint32, error) {
	reply, err := c.command(name, struct{}{})
	if err != nil {
		return 0, err
	}
	var resp struct {
		Value uint32 `json:"value"`
	}
	if err := json.Unmarshal(reply, &resp); err != nil {
		return 0, fmt.Errorf("hal: decode %s reply: %w", name, err)
	}
	return resp.Value, nil
}

func (c *ZMQConcentrator) InstCnt() (uint32, error) { return c.counterCommand("instcnt") }
func (c *ZMQConcentrator) TrigCnt() (uint32, error) { return c.counterCommand("trigcnt") }

func (c *ZMQConcentrator) Reset() error {
	_, err := c.command("reset", struct{}{})
	return err
}
