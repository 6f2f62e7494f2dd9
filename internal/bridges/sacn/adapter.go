package sacn

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
	"github.com/nerrad567/gray-logic-dmx/internal/dmx"
	"github.com/nerrad567/gray-logic-dmx/internal/eventloop"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/mqtt"
)

// Adapter defaults.
const (
	// DefaultReconnectInterval is the fixed delay between connection attempts.
	DefaultReconnectInterval = time.Second

	// DefaultPingInterval is how often relay latency is probed.
	DefaultPingInterval = 5 * time.Second

	// DefaultHealthInterval is how often health is published.
	DefaultHealthInterval = 30 * time.Second

	// DefaultBridgeID identifies this adapter in health messages.
	DefaultBridgeID = "sacn"

	// qosData is used for per-packet traffic. Slot data is superseded
	// within one frame, so delivery guarantees buy nothing.
	qosData byte = 0

	// qosControl is used for joins and config pushes.
	qosControl byte = 1
)

// Transport is the relay link. *mqtt.Client satisfies it.
//
// Connect must not block: outcomes arrive through the handlers registered
// with SetConnectionHandlers.
type Transport interface {
	Connect()
	Disconnect()
	IsConnected() bool
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	SetConnectionHandlers(onConnect func(), onFailure func(err error))
}

// Store receives inbound slot data. *dmx.Store satisfies it.
type Store interface {
	SetBulk(universe, start int, values []int)
}

// Diagnostics receives link health. *diagnostics.Aggregator satisfies it.
type Diagnostics interface {
	RecordPacket(universe int)
	RecordError(e diagnostics.NetworkError)
	SetConnected(connected bool)
	SetLatency(ms float64)
	Stats() diagnostics.NetworkStats
}

// Logger defines the logging interface used by the adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds configuration for creating an adapter.
type Options struct {
	Transport   Transport
	Store       Store
	Diagnostics Diagnostics
	Clock       eventloop.Clock

	// Dispatch moves transport callbacks onto the goroutine that owns the
	// adapter. The engine passes its event loop's Post. Nil runs callbacks
	// inline, which is what tests want.
	Dispatch func(func())

	// Background runs relay I/O that waits on broker acknowledgements
	// (subscribes and the join fan-out). Its results come back through
	// Dispatch. Nil starts a goroutine.
	Background func(func())

	// Logger is optional.
	Logger Logger

	// BridgeID and Version appear in health messages.
	BridgeID string
	Version  string

	// Priority is carried on outbound data. Default: 100
	Priority int

	// ReconnectInterval is the fixed retry delay. Default: 1s
	ReconnectInterval time.Duration

	// PingInterval is the latency probe period. Negative disables. Default: 5s
	PingInterval time.Duration

	// HealthInterval is the health publish period. Default: 30s
	HealthInterval time.Duration

	// Multicast is the initial relay socket configuration.
	// The zero value means DefaultMulticastConfig.
	Multicast MulticastConfig
}

// Status is the link summary returned by NetworkStatus.
type Status struct {
	Connected        bool    `json:"connected"`
	Latency          float64 `json:"latency"`
	PacketsPerSecond float64 `json:"packetsPerSecond"`
}

// Adapter keeps the channel store in sync with the sACN relay and reports
// link health to diagnostics.
//
// It handles:
//   - Joining all 64 universes whenever the link comes up
//   - Decoding inbound slot data into the store
//   - Publishing local slot data on request
//   - Retrying the link at a fixed interval, forever
//   - Latency probing and health reporting
//
// Thread Safety: Adapter is NOT safe for concurrent use. Every method and
// every transport callback (through Dispatch) runs on the engine's event
// loop. The connect-time subscribe and join pass runs through Background
// and touches only the transport.
type Adapter struct {
	transport Transport
	store     Store
	diag      Diagnostics
	clock     eventloop.Clock
	dispatch  func(func())
	bg        func(func())
	logger    Logger
	health    *HealthReporter
	topics    mqtt.Topics

	priority          int
	reconnectInterval time.Duration
	pingInterval      time.Duration
	multicast         MulticastConfig

	started        bool
	stopped        bool
	connected      bool
	connectedSince time.Time
	joined         int

	// link counts connect and failure events so results from a
	// background join on an earlier link are discarded.
	link uint64

	retryTimer eventloop.Timer
	pingTimer  eventloop.Timer
	pingID     string
	pingSent   time.Time

	packetsReceived uint64
	packetsSent     uint64
	errorCount      uint64
}

// NewAdapter creates an adapter. Call Start to connect.
func NewAdapter(opts Options) (*Adapter, error) {
	switch {
	case opts.Transport == nil:
		return nil, ErrTransportRequired
	case opts.Store == nil:
		return nil, ErrStoreRequired
	case opts.Diagnostics == nil:
		return nil, ErrDiagnosticsRequired
	case opts.Clock == nil:
		return nil, ErrClockRequired
	}

	if opts.Dispatch == nil {
		opts.Dispatch = func(f func()) { f() }
	}
	if opts.Background == nil {
		opts.Background = func(f func()) { go f() }
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.BridgeID == "" {
		opts.BridgeID = DefaultBridgeID
	}
	if opts.Priority == 0 {
		opts.Priority = dmx.DefaultPriority
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if opts.PingInterval == 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.Multicast == (MulticastConfig{}) {
		opts.Multicast = DefaultMulticastConfig()
	}

	a := &Adapter{
		transport:         opts.Transport,
		store:             opts.Store,
		diag:              opts.Diagnostics,
		clock:             opts.Clock,
		dispatch:          opts.Dispatch,
		bg:                opts.Background,
		logger:            opts.Logger,
		priority:          opts.Priority,
		reconnectInterval: opts.ReconnectInterval,
		pingInterval:      opts.PingInterval,
		multicast:         opts.Multicast,
	}
	a.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.BridgeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.Transport,
		Clock:     opts.Clock,
		Snapshot:  a.healthSnapshot,
	})
	a.health.SetLogger(opts.Logger)
	return a, nil
}

// Start registers transport handlers, begins health reporting, and makes
// the first connection attempt. Calling Start twice has no effect.
func (a *Adapter) Start() {
	if a.started {
		return
	}
	a.started = true

	a.transport.SetConnectionHandlers(
		func() { a.dispatch(a.handleConnect) },
		func(err error) { a.dispatch(func() { a.handleFailure(err) }) },
	)
	a.health.Start()
	a.logger.Info("sacn adapter starting", "reconnect_interval", a.reconnectInterval)
	a.transport.Connect()
}

// Stop cancels timers, publishes a final health message, and closes the
// transport. The adapter cannot be restarted.
func (a *Adapter) Stop() {
	if a.stopped {
		return
	}
	a.stopped = true

	stopTimer(&a.retryTimer)
	stopTimer(&a.pingTimer)
	a.health.Stop()

	a.transport.Disconnect()
	a.connected = false
	a.diag.SetConnected(false)
	a.logger.Info("sacn adapter stopped")
}

func stopTimer(t *eventloop.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// handleConnect runs on the loop after every successful connection. The
// subscribes and joins run in the background; finishConnect picks up
// their outcome on the loop.
func (a *Adapter) handleConnect() {
	if a.stopped {
		return
	}
	stopTimer(&a.retryTimer)

	a.link++
	link := a.link
	a.connected = true
	a.connectedSince = a.clock.Now()
	a.joined = 0
	a.diag.SetConnected(true)

	withPong := a.pingInterval > 0
	a.bg(func() {
		res := a.subscribeAndJoin(withPong)
		a.dispatch(func() { a.finishConnect(link, res) })
	})
}

// joinResult is the outcome of one background subscribe and join pass.
type joinResult struct {
	joined   int
	failures []joinFailure
}

type joinFailure struct {
	message  string
	universe *int
}

// subscribeAndJoin talks only to the transport. It must not touch adapter
// state: it runs off the loop.
func (a *Adapter) subscribeAndJoin(withPong bool) joinResult {
	var res joinResult

	if err := a.transport.Subscribe(a.topics.AllData(), qosData, a.onData); err != nil {
		res.failures = append(res.failures, joinFailure{message: fmt.Sprintf("subscribe to relay data: %v", err)})
	}
	if withPong {
		if err := a.transport.Subscribe(a.topics.Pong(), qosData, a.onPong); err != nil {
			res.failures = append(res.failures, joinFailure{message: fmt.Sprintf("subscribe to relay pong: %v", err)})
		}
	}

	// A failed join is recorded against that universe and the rest continue.
	for u := 1; u <= dmx.UniverseCount; u++ {
		payload, err := json.Marshal(JoinMessage{Universe: u, Address: UniverseAddress(u)})
		if err == nil {
			err = a.transport.Publish(a.topics.Join(u), payload, qosControl, false)
		}
		if err != nil {
			res.failures = append(res.failures, joinFailure{
				message:  fmt.Sprintf("join universe %d: %v", u, err),
				universe: diagnostics.UniverseRef(u),
			})
			continue
		}
		res.joined++
	}
	return res
}

// finishConnect applies a background join on the loop. Results for a link
// that has since dropped are discarded.
func (a *Adapter) finishConnect(link uint64, res joinResult) {
	if a.stopped || !a.connected || link != a.link {
		return
	}

	a.joined = res.joined
	for _, f := range res.failures {
		a.recordError(diagnostics.ErrorConnection, f.message, f.universe)
	}
	a.pushConfig()
	a.schedulePing()

	a.logger.Info("sacn relay connected", "universes_joined", a.joined)
	if err := a.health.PublishNow(); err != nil {
		a.logger.Warn("publishing health", "error", err)
	}
}

// handleFailure runs on the loop for failed attempts and lost links.
func (a *Adapter) handleFailure(err error) {
	if a.stopped {
		return
	}
	wasConnected := a.connected
	a.link++
	a.connected = false
	a.joined = 0
	a.pingID = ""
	stopTimer(&a.pingTimer)
	a.diag.SetConnected(false)

	msg := fmt.Sprintf("relay connection failed: %v", err)
	if wasConnected {
		msg = fmt.Sprintf("relay connection lost: %v", err)
		a.logger.Warn("sacn relay disconnected", "error", err)
	} else {
		a.logger.Debug("sacn relay connect attempt failed", "error", err)
	}
	a.recordError(diagnostics.ErrorConnection, msg, nil)
	a.scheduleReconnect()
}

func (a *Adapter) scheduleReconnect() {
	if a.retryTimer != nil {
		return
	}
	a.retryTimer = a.clock.AfterFunc(a.reconnectInterval, func() {
		a.retryTimer = nil
		if a.stopped || a.connected {
			return
		}
		a.transport.Connect()
	})
}

// onData is the transport handler for inbound slots.
func (a *Adapter) onData(topic string, payload []byte) error {
	p := append([]byte(nil), payload...)
	a.dispatch(func() { a.handleData(topic, p) })
	return nil
}

// handleData decodes one inbound message. Malformed messages, unknown
// universes and payloads that disagree with their topic become diagnostics
// errors and are dropped.
func (a *Adapter) handleData(topic string, payload []byte) {
	var msg DataMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		a.recordError(diagnostics.ErrorPacket, fmt.Sprintf("malformed data on %s: %v", topic, err), nil)
		return
	}
	if !dmx.ValidUniverse(msg.Universe) {
		a.recordError(diagnostics.ErrorUniverse,
			fmt.Sprintf("data for unknown universe %d", msg.Universe), diagnostics.UniverseRef(msg.Universe))
		return
	}
	if u, ok := mqtt.UniverseFromTopic(topic); !ok || u != msg.Universe {
		a.recordError(diagnostics.ErrorPacket,
			fmt.Sprintf("data for universe %d arrived on %s", msg.Universe, topic), diagnostics.UniverseRef(msg.Universe))
		return
	}

	a.packetsReceived++
	a.diag.RecordPacket(msg.Universe)
	a.store.SetBulk(msg.Universe, 0, msg.Slots)
}

// SendDMXData publishes slots for universe. It reports whether the data
// was handed to the relay; nothing is queued while disconnected.
func (a *Adapter) SendDMXData(universe int, slots []int) bool {
	if !a.connected || !dmx.ValidUniverse(universe) {
		return false
	}

	n := min(len(slots), dmx.SlotCount)
	out := make([]int, n)
	for i := range n {
		out[i] = dmx.Clamp(slots[i])
	}

	payload, err := json.Marshal(SendMessage{Universe: universe, Slots: out, Priority: a.priority})
	if err == nil {
		err = a.transport.Publish(a.topics.Send(universe), payload, qosData, false)
	}
	if err != nil {
		a.recordError(diagnostics.ErrorConnection,
			fmt.Sprintf("send universe %d: %v", universe, err), diagnostics.UniverseRef(universe))
		return false
	}
	a.packetsSent++
	return true
}

// SetMulticastConfig merges patch into the current configuration and, when
// connected, pushes the result to the relay. It returns the merged config.
func (a *Adapter) SetMulticastConfig(patch MulticastPatch) MulticastConfig {
	a.multicast = patch.Apply(a.multicast)
	if a.connected {
		a.pushConfig()
	}
	return a.multicast
}

// MulticastConfig returns the current relay socket configuration.
func (a *Adapter) MulticastConfig() MulticastConfig {
	return a.multicast
}

func (a *Adapter) pushConfig() {
	payload, err := json.Marshal(a.multicast)
	if err == nil {
		err = a.transport.Publish(a.topics.Config(), payload, qosControl, true)
	}
	if err != nil {
		a.recordError(diagnostics.ErrorConnection, fmt.Sprintf("push multicast config: %v", err), nil)
	}
}

// NetworkStatus summarises the link.
func (a *Adapter) NetworkStatus() Status {
	stats := a.diag.Stats()
	return Status{
		Connected:        a.connected,
		Latency:          stats.Latency,
		PacketsPerSecond: stats.PacketsPerSecond,
	}
}

// Connected reports whether the relay link is up.
func (a *Adapter) Connected() bool {
	return a.connected
}

// JoinedUniverses returns how many join requests succeeded on the current link.
func (a *Adapter) JoinedUniverses() int {
	return a.joined
}

func (a *Adapter) schedulePing() {
	if a.pingInterval <= 0 || a.pingTimer != nil {
		return
	}
	a.pingTimer = a.clock.AfterFunc(a.pingInterval, func() {
		a.pingTimer = nil
		if a.stopped || !a.connected {
			return
		}
		a.sendPing()
		a.schedulePing()
	})
}

func (a *Adapter) sendPing() {
	now := a.clock.Now()
	msg := PingMessage{ID: uuid.NewString(), Sent: now.UnixMilli()}
	payload, err := json.Marshal(msg)
	if err == nil {
		err = a.transport.Publish(a.topics.Ping(), payload, qosData, false)
	}
	if err != nil {
		a.logger.Debug("latency probe not sent", "error", err)
		return
	}
	a.pingID = msg.ID
	a.pingSent = now
}

func (a *Adapter) onPong(_ string, payload []byte) error {
	p := append([]byte(nil), payload...)
	a.dispatch(func() { a.handlePong(p) })
	return nil
}

// handlePong matches a reply against the outstanding probe. Stale and
// unknown replies are ignored.
func (a *Adapter) handlePong(payload []byte) {
	var msg PingMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.ID == "" || msg.ID != a.pingID {
		return
	}
	a.pingID = ""
	rtt := a.clock.Now().Sub(a.pingSent)
	a.diag.SetLatency(float64(rtt) / float64(time.Millisecond))
}

func (a *Adapter) recordError(t diagnostics.ErrorType, msg string, universe *int) {
	a.errorCount++
	a.diag.RecordError(diagnostics.NetworkError{Type: t, Message: msg, Universe: universe})
}

func (a *Adapter) healthSnapshot() HealthSnapshot {
	return HealthSnapshot{
		Connected:       a.connected,
		ConnectedSince:  a.connectedSince,
		LatencyMs:       a.diag.Stats().Latency,
		UniversesJoined: a.joined,
		PacketsReceived: a.packetsReceived,
		PacketsSent:     a.packetsSent,
		Errors:          a.errorCount,
	}
}
