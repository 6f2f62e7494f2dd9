package dmx

import (
	"sync"

	"github.com/nerrad567/gray-logic-dmx/internal/event"
)

// Publisher receives store events. *event.Bus satisfies it.
type Publisher interface {
	Publish(e event.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(event.Event) {}

// SlotsFunc receives a copy of a universe's slots after a change.
type SlotsFunc func(slots []int)

type universeSubscriber struct {
	id uint64
	fn SlotsFunc
}

// Store is the authoritative channel table: 64 universes of 512 slots.
//
// Writes to a universe or channel that does not exist are ignored. Values
// are clamped to [0, 255] on write. Every successful write publishes an
// event and then notifies that universe's subscribers, synchronously, on
// the caller's goroutine.
//
// Thread Safety: Store is NOT safe for concurrent use. It is owned by the
// engine's event loop; other goroutines go through engine.Engine.
type Store struct {
	universes [UniverseCount + 1]*universe // index 0 unused
	publisher Publisher

	nextSubID   uint64
	subscribers map[int][]universeSubscriber
}

// NewStore creates a store with every universe zeroed, priority 100, start
// code 0. Events are published to pub; nil disables publishing.
func NewStore(pub Publisher) *Store {
	if pub == nil {
		pub = noopPublisher{}
	}
	s := &Store{
		publisher:   pub,
		subscribers: make(map[int][]universeSubscriber),
	}
	for id := 1; id <= UniverseCount; id++ {
		s.universes[id] = &universe{
			priority:  DefaultPriority,
			startCode: DefaultStartCode,
		}
	}
	return s
}

// Channel returns the value of one channel, or 0 if the address does not
// exist.
func (s *Store) Channel(universeID, channel int) int {
	if !ValidUniverse(universeID) || !ValidChannel(channel) {
		return 0
	}
	return int(s.universes[universeID].slots[channel])
}

// SetChannel writes one channel. Out-of-range addresses are a silent no-op.
func (s *Store) SetChannel(universeID, channel, value int) {
	if !ValidUniverse(universeID) || !ValidChannel(channel) {
		return
	}
	value = Clamp(value)
	u := s.universes[universeID]
	u.slots[channel] = uint8(value)

	s.publisher.Publish(ChannelUpdate{Universe: universeID, Channel: channel, Value: value})
	s.notify(universeID, u)
}

// SetBulk writes values into consecutive channels starting at start.
// Entries that would land outside 0..511 are dropped; the rest are still
// written. One BulkUpdate is published per call.
func (s *Store) SetBulk(universeID, start int, values []int) {
	if !ValidUniverse(universeID) {
		return
	}
	u := s.universes[universeID]

	clamped := make([]int, len(values))
	for i, v := range values {
		clamped[i] = Clamp(v)
		if ch := start + i; ValidChannel(ch) {
			u.slots[ch] = uint8(clamped[i])
		}
	}

	s.publisher.Publish(BulkUpdate{Universe: universeID, StartChannel: start, Values: clamped})
	s.notify(universeID, u)
}

// Clear zeroes every slot of one universe.
func (s *Store) Clear(universeID int) {
	if !ValidUniverse(universeID) {
		return
	}
	u := s.universes[universeID]
	u.slots = [SlotCount]uint8{}

	s.publisher.Publish(UniverseCleared{Universe: universeID})
	s.notify(universeID, u)
}

// ClearAll zeroes every universe.
func (s *Store) ClearAll() {
	for id := 1; id <= UniverseCount; id++ {
		s.universes[id].slots = [SlotCount]uint8{}
	}

	s.publisher.Publish(AllUniversesCleared{})
	for id := 1; id <= UniverseCount; id++ {
		if len(s.subscribers[id]) > 0 {
			s.notify(id, s.universes[id])
		}
	}
}

// Universe returns a snapshot of one universe.
func (s *Store) Universe(universeID int) (Universe, bool) {
	if !ValidUniverse(universeID) {
		return Universe{}, false
	}
	u := s.universes[universeID]
	return Universe{
		ID:        universeID,
		Priority:  int(u.priority),
		StartCode: int(u.startCode),
		Slots:     u.ints(),
	}, true
}

// Slots returns a copy of one universe's slots, or nil if it does not exist.
func (s *Store) Slots(universeID int) []int {
	if !ValidUniverse(universeID) {
		return nil
	}
	return s.universes[universeID].ints()
}

// Snapshot copies the whole table. Index 0 is unused.
func (s *Store) Snapshot() [UniverseCount + 1][SlotCount]uint8 {
	var out [UniverseCount + 1][SlotCount]uint8
	for id := 1; id <= UniverseCount; id++ {
		out[id] = s.universes[id].slots
	}
	return out
}

// Subscribe registers fn to receive the universe's slots after every change
// to that universe. The returned function removes the registration; only
// its first call has an effect. Subscribing to a universe that does not
// exist returns a no-op function.
func (s *Store) Subscribe(universeID int, fn SlotsFunc) func() {
	if !ValidUniverse(universeID) || fn == nil {
		return func() {}
	}
	s.nextSubID++
	id := s.nextSubID
	s.subscribers[universeID] = append(s.subscribers[universeID], universeSubscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(universeID, id) })
	}
}

func (s *Store) unsubscribe(universeID int, id uint64) {
	subs := s.subscribers[universeID]
	for i, sub := range subs {
		if sub.id == id {
			s.subscribers[universeID] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(s.subscribers[universeID]) == 0 {
		delete(s.subscribers, universeID)
	}
}

func (s *Store) notify(universeID int, u *universe) {
	subs := s.subscribers[universeID]
	if len(subs) == 0 {
		return
	}
	// Copy so a subscriber that unsubscribes during delivery does not
	// disturb the iteration.
	targets := append([]universeSubscriber(nil), subs...)
	for _, sub := range targets {
		sub.fn(u.ints())
	}
}
