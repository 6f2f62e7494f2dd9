package diagnostics

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-dmx/internal/dmx"
	"github.com/nerrad567/gray-logic-dmx/internal/event"
	"github.com/nerrad567/gray-logic-dmx/internal/eventloop"
)

// Aggregator defaults.
const (
	// DefaultTickInterval is the stats roll-up period.
	DefaultTickInterval = time.Second

	// DefaultHistoryLimit caps the retained error history.
	DefaultHistoryLimit = 100

	// idleTicksBeforeInactive is how many consecutive silent ticks a
	// universe needs before it is reported inactive. The first silent tick
	// keeps the previous rate.
	idleTicksBeforeInactive = 2
)

// Publisher receives diagnostics events. *event.Bus satisfies it.
type Publisher interface {
	Publish(e event.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(event.Event) {}

// StatsSink receives the rolled-up stats after every tick. Sinks run on
// the event loop and must not block.
type StatsSink interface {
	WriteStats(stats NetworkStats, at time.Time)
}

// ErrorSink receives every recorded error. Sinks run on the event loop and
// must not block.
type ErrorSink interface {
	WriteError(e NetworkError)
}

// Options configures an Aggregator.
type Options struct {
	// TickInterval is the roll-up period. Default: 1s
	TickInterval time.Duration

	// HistoryLimit caps the error history. Default: 100
	HistoryLimit int
}

// Aggregator derives link-health statistics from packet arrivals and
// recorded errors.
//
// Thread Safety: Aggregator is NOT safe for concurrent use. It lives on the
// engine's event loop alongside the store and scheduler.
type Aggregator struct {
	publisher Publisher
	clock     eventloop.Clock
	interval  time.Duration
	limit     int

	stats     NetworkStats
	counters  map[int]int
	idleTicks map[int]int
	history   []NetworkError

	lastTick   time.Time
	timer      eventloop.Timer
	running    bool
	generation uint64

	statsSinks []StatsSink
	errorSinks []ErrorSink
}

// NewAggregator creates an aggregator. Call Start to begin ticking.
func NewAggregator(pub Publisher, clock eventloop.Clock, opts Options) *Aggregator {
	if pub == nil {
		pub = noopPublisher{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.HistoryLimit < ExposedErrors {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &Aggregator{
		publisher: pub,
		clock:     clock,
		interval:  opts.TickInterval,
		limit:     opts.HistoryLimit,
		stats: NetworkStats{
			Errors:        []string{},
			UniverseStats: make(map[int]UniverseStats),
		},
		counters:  make(map[int]int),
		idleTicks: make(map[int]int),
		lastTick:  clock.Now(),
	}
}

// AddStatsSink registers a sink for per-tick stats.
func (a *Aggregator) AddStatsSink(s StatsSink) {
	a.statsSinks = append(a.statsSinks, s)
}

// AddErrorSink registers a sink for recorded errors.
func (a *Aggregator) AddErrorSink(s ErrorSink) {
	a.errorSinks = append(a.errorSinks, s)
}

// Start begins the periodic tick. Calling Start twice has no effect.
func (a *Aggregator) Start() {
	if a.running {
		return
	}
	a.running = true
	a.generation++
	a.lastTick = a.clock.Now()
	a.schedule(a.generation)
}

// Stop cancels the periodic tick. A callback already queued on the loop
// belongs to an old generation and does nothing when it runs.
func (a *Aggregator) Stop() {
	a.running = false
	a.generation++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Aggregator) schedule(gen uint64) {
	a.timer = a.clock.AfterFunc(a.interval, func() {
		if !a.running || gen != a.generation {
			return
		}
		a.Tick()
		a.schedule(gen)
	})
}

// RecordPacket counts one inbound packet for universe.
func (a *Aggregator) RecordPacket(universe int) {
	if !dmx.ValidUniverse(universe) {
		return
	}
	a.counters[universe]++

	us, ok := a.stats.UniverseStats[universe]
	if !ok {
		us.Active = true
	}
	us.LastPacketTime = a.clock.Now()
	a.stats.UniverseStats[universe] = us
}

// Tick rolls the packet counters into rates. The periodic timer calls it;
// tests may call it directly.
//
// A universe that received packets gets rate = count / elapsed. A universe
// that went silent keeps its previous rate for one tick and is reported
// inactive on the second silent tick.
func (a *Aggregator) Tick() {
	now := a.clock.Now()
	elapsed := now.Sub(a.lastTick).Seconds()
	a.lastTick = now
	if elapsed <= 0 {
		elapsed = a.interval.Seconds()
	}

	for universe, us := range a.stats.UniverseStats {
		count := a.counters[universe]
		if count > 0 {
			us.PacketsPerSecond = float64(count) / elapsed
			us.Active = us.PacketsPerSecond > 0
			a.idleTicks[universe] = 0
		} else {
			a.idleTicks[universe]++
			if a.idleTicks[universe] >= idleTicksBeforeInactive {
				us.Active = false
				us.PacketsPerSecond = 0
			}
		}
		a.stats.UniverseStats[universe] = us
	}
	clear(a.counters)

	total := 0.0
	for _, us := range a.stats.UniverseStats {
		total += us.PacketsPerSecond
	}
	a.stats.PacketsPerSecond = total

	snapshot := a.stats.clone()
	for _, sink := range a.statsSinks {
		sink.WriteStats(snapshot, now)
	}
	a.publisher.Publish(StatsUpdated{NetworkStats: snapshot})
}

// RecordError appends e to the history. ID and Timestamp are filled in when
// empty. A universe that already has stats gets its error count bumped.
func (a *Aggregator) RecordError(e NetworkError) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = a.clock.Now()
	}

	a.history = append(a.history, e)
	if over := len(a.history) - a.limit; over > 0 {
		a.history = append([]NetworkError(nil), a.history[over:]...)
	}
	a.stats.Errors = a.recentMessages()

	if e.Universe != nil {
		if us, ok := a.stats.UniverseStats[*e.Universe]; ok {
			us.Errors++
			a.stats.UniverseStats[*e.Universe] = us
		}
	}

	for _, sink := range a.errorSinks {
		sink.WriteError(e)
	}
	a.publisher.Publish(ErrorRecorded{NetworkError: e})
}

func (a *Aggregator) recentMessages() []string {
	start := max(len(a.history)-ExposedErrors, 0)
	msgs := make([]string, 0, len(a.history)-start)
	for _, e := range a.history[start:] {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

// Stats returns a deep copy of the current stats.
func (a *Aggregator) Stats() NetworkStats {
	return a.stats.clone()
}

// ErrorHistory returns a copy of the retained error history, oldest first.
func (a *Aggregator) ErrorHistory() []NetworkError {
	return append([]NetworkError{}, a.history...)
}

// ClearErrorHistory drops every recorded error.
func (a *Aggregator) ClearErrorHistory() {
	a.history = nil
	a.stats.Errors = []string{}
	a.publisher.Publish(ErrorsCleared{})
}

// SetConnected records the relay link state.
func (a *Aggregator) SetConnected(connected bool) {
	a.stats.Connected = connected
}

// SetLatency records the relay round-trip time in milliseconds.
func (a *Aggregator) SetLatency(ms float64) {
	a.stats.Latency = ms
}
