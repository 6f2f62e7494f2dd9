package show

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-dmx/internal/event"
	"github.com/nerrad567/gray-logic-dmx/internal/eventloop"
)

// Writer is the part of the channel table the scheduler writes to.
// *dmx.Store satisfies it.
type Writer interface {
	SetBulk(universe, start int, values []int)
}

// Publisher receives playback events. *event.Bus satisfies it.
type Publisher interface {
	Publish(e event.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(event.Event) {}

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

// Scheduler turns a loaded Sequence into time-ordered writes into the
// channel table.
//
// Playback position is derived from the clock, not from tick count:
// every tick computes cursor = floor((now - referenceStart) * 30) and
// applies only the frame at that cursor. Frames skipped by a late tick are
// never replayed.
//
// Thread Safety: Scheduler is NOT safe for concurrent use. It must be
// driven from the goroutine that runs its clock's callbacks (the event
// loop in production, the test goroutine with a ManualClock).
type Scheduler struct {
	store     Writer
	publisher Publisher
	clock     eventloop.Clock
	logger    Logger

	seq    *Sequence
	state  State
	cursor int
	loop   bool

	referenceStart time.Time
	timer          eventloop.Timer

	// generation invalidates ticks scheduled before the last
	// Pause/Stop/Load/restart.
	generation uint64
}

// NewScheduler creates an idle scheduler.
func NewScheduler(store Writer, pub Publisher, clock eventloop.Clock) *Scheduler {
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Scheduler{
		store:     store,
		publisher: pub,
		clock:     clock,
		logger:    noopLogger{},
		state:     StateIdle,
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Load replaces the current sequence, resets the cursor to frame 0, and
// moves to StateLoaded. Any pending tick of the previous sequence is
// cancelled. A sequence without an ID is assigned one.
func (s *Scheduler) Load(seq Sequence) {
	s.cancelTick()

	if seq.ID == "" {
		seq.ID = uuid.NewString()
	}
	s.seq = &seq
	s.cursor = 0
	s.state = StateLoaded

	s.logger.Info("show loaded", "id", seq.ID, "name", seq.Name, "frames", len(seq.Frames))
	s.publisher.Publish(ShowLoaded{
		SequenceID:  seq.ID,
		Name:        seq.Name,
		Duration:    seq.Duration,
		TotalFrames: len(seq.Frames),
	})
}

// Play starts or resumes playback from the current cursor. It is a no-op
// when already playing or when nothing is loaded. A sequence that finished
// (StateIdle with a sequence still loaded) plays again from frame 0.
func (s *Scheduler) Play() {
	if s.seq == nil || s.state == StatePlaying {
		return
	}

	s.state = StatePlaying
	s.referenceStart = s.clock.Now().Add(-cursorOffset(s.cursor))
	s.publisher.Publish(PlaybackStarted{Time: s.CurrentTime()})

	s.generation++
	s.tick(s.generation)
}

// Pause stops playback and keeps the cursor. Only valid while playing.
func (s *Scheduler) Pause() {
	if s.state != StatePlaying {
		return
	}
	s.cancelTick()
	s.state = StatePaused
	s.publisher.Publish(PlaybackPaused{Time: s.CurrentTime()})
}

// Stop pauses, resets the cursor to frame 0, and goes idle. With loop
// enabled playback restarts from frame 0 instead.
func (s *Scheduler) Stop() {
	if s.seq == nil {
		return
	}
	s.Pause()
	s.cursor = 0

	if s.loop {
		s.Play()
		return
	}

	s.state = StateIdle
	s.publisher.Publish(PlaybackStopped{})
}

// SeekToTime moves the cursor to t seconds, clamped to [0, Duration]. The
// frame at the new cursor, if any, is applied immediately in every state.
// While playing, playback continues from the new position.
func (s *Scheduler) SeekToTime(t float64) {
	if s.seq == nil {
		return
	}
	if t < 0 {
		t = 0
	}
	if t > s.seq.Duration {
		t = s.seq.Duration
	}

	s.cursor = timeToCursor(t)
	if s.cursor < len(s.seq.Frames) {
		s.apply(s.cursor)
	}
	s.publisher.Publish(PlaybackSeeked{Time: t, Frame: s.cursor})

	if s.state == StatePlaying {
		s.referenceStart = s.clock.Now().Add(-cursorOffset(s.cursor))
	}
}

// SetLoop sets the loop flag. It takes effect at the next end of sequence.
func (s *Scheduler) SetLoop(loop bool) {
	s.loop = loop
	s.publisher.Publish(LoopChanged{Loop: loop})
}

// Loop reports the loop flag.
func (s *Scheduler) Loop() bool {
	return s.loop
}

// CurrentTime returns the cursor position in seconds.
func (s *Scheduler) CurrentTime() float64 {
	return float64(s.cursor) / FrameRate
}

// Duration returns the loaded sequence's duration in seconds, or 0.
func (s *Scheduler) Duration() float64 {
	if s.seq == nil {
		return 0
	}
	return s.seq.Duration
}

// State returns the playback state.
func (s *Scheduler) State() State {
	return s.state
}

// Status returns a snapshot of the scheduler.
func (s *Scheduler) Status() Status {
	st := Status{
		State:       s.state,
		Frame:       s.cursor,
		CurrentTime: s.CurrentTime(),
		Duration:    s.Duration(),
		Loop:        s.loop,
	}
	if s.seq != nil {
		st.SequenceID = s.seq.ID
		st.Name = s.seq.Name
		st.TotalFrames = len(s.seq.Frames)
	}
	return st
}

// tick recomputes the cursor from the clock and applies the matching frame.
func (s *Scheduler) tick(gen uint64) {
	if gen != s.generation || s.state != StatePlaying {
		return
	}

	elapsed := s.clock.Now().Sub(s.referenceStart)
	if elapsed < 0 {
		elapsed = 0
	}
	s.cursor = int(elapsed * FrameRate / time.Second)

	if s.cursor >= len(s.seq.Frames) {
		s.endOfSequence()
		return
	}

	s.apply(s.cursor)
	s.publisher.Publish(FrameUpdate{
		Frame:       s.cursor,
		Time:        elapsed.Seconds(),
		TotalFrames: len(s.seq.Frames),
	})
	s.schedule(gen)
}

// endOfSequence handles the cursor running past the last frame.
func (s *Scheduler) endOfSequence() {
	s.cursor = 0

	if s.loop {
		s.logger.Debug("show looped", "id", s.seq.ID)
		s.referenceStart = s.clock.Now()
		s.publisher.Publish(PlaybackStarted{Time: 0})
		s.generation++
		gen := s.generation
		if len(s.seq.Frames) > 0 {
			s.apply(0)
			s.publisher.Publish(FrameUpdate{Frame: 0, Time: 0, TotalFrames: len(s.seq.Frames)})
		}
		s.schedule(gen)
		return
	}

	s.timer = nil
	s.generation++
	s.state = StateIdle
	s.logger.Info("show finished", "id", s.seq.ID)
	s.publisher.Publish(PlaybackStopped{})
}

// schedule arms the next tick for the start of the frame after the cursor.
func (s *Scheduler) schedule(gen uint64) {
	next := s.referenceStart.Add(cursorOffset(s.cursor + 1))
	delay := next.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	s.timer = s.clock.AfterFunc(delay, func() { s.tick(gen) })
}

func (s *Scheduler) cancelTick() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

// apply writes frame i into the store, universe by universe in ascending
// order.
func (s *Scheduler) apply(i int) {
	frame := s.seq.Frames[i]
	for _, universe := range frame.universes() {
		s.store.SetBulk(universe, 0, frame.UniverseValues[universe])
	}
	s.publisher.Publish(FrameApplied{Index: i, Frame: frame})
}

// timeToCursor converts seconds to a frame index. The epsilon absorbs
// float error so 0.3s maps to frame 9, not 8.
func timeToCursor(t float64) int {
	return int(math.Floor(t*FrameRate + 1e-9))
}

// cursorOffset is the time from reference start at which cursor begins.
// It rounds up so that floor(cursorOffset(c) * 30) == c.
func cursorOffset(cursor int) time.Duration {
	return (time.Duration(cursor)*time.Second + FrameRate - 1) / FrameRate
}
