package dmx

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-dmx/internal/event"
)

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	events []event.Event
}

func (p *recordingPublisher) Publish(e event.Event) {
	p.events = append(p.events, e)
}

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore(nil)

	for id := 1; id <= UniverseCount; id++ {
		u, ok := s.Universe(id)
		if !ok {
			t.Fatalf("Universe(%d) missing", id)
		}
		if u.Priority != 100 || u.StartCode != 0 {
			t.Errorf("Universe(%d) priority=%d startCode=%d, want 100/0", id, u.Priority, u.StartCode)
		}
		if len(u.Slots) != SlotCount {
			t.Errorf("Universe(%d) has %d slots, want %d", id, len(u.Slots), SlotCount)
		}
	}

	if _, ok := s.Universe(0); ok {
		t.Error("Universe(0) should not exist")
	}
	if _, ok := s.Universe(65); ok {
		t.Error("Universe(65) should not exist")
	}
}

func TestSetChannel_RoundTrip(t *testing.T) {
	tests := []struct {
		universe, channel, value int
	}{
		{1, 0, 0},
		{1, 0, 255},
		{64, 511, 128},
		{32, 256, 7},
	}

	for _, tt := range tests {
		s := NewStore(nil)
		s.SetChannel(tt.universe, tt.channel, tt.value)
		if got := s.Channel(tt.universe, tt.channel); got != tt.value {
			t.Errorf("Channel(%d, %d) = %d, want %d", tt.universe, tt.channel, got, tt.value)
		}
	}
}

func TestSetChannel_Clamps(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"negative", -20, 0},
		{"above max", 300, 255},
		{"in range", 99, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil)
			s.SetChannel(5, 10, tt.in)
			if got := s.Channel(5, 10); got != tt.want {
				t.Errorf("Channel() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSetChannel_OutOfRangeIsNoop(t *testing.T) {
	tests := []struct {
		name              string
		universe, channel int
	}{
		{"universe zero", 0, 0},
		{"universe 65", 65, 0},
		{"negative universe", -1, 5},
		{"channel 512", 1, 512},
		{"negative channel", 1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			s := NewStore(pub)
			notified := false
			s.Subscribe(1, func([]int) { notified = true })
			before := s.Snapshot()

			s.SetChannel(tt.universe, tt.channel, 200)

			if s.Snapshot() != before {
				t.Error("out-of-range write changed the table")
			}
			if len(pub.events) != 0 {
				t.Errorf("published %d events, want 0", len(pub.events))
			}
			if notified {
				t.Error("subscriber notified for ignored write")
			}
		})
	}
}

func TestChannel_OutOfRangeReadsZero(t *testing.T) {
	s := NewStore(nil)
	if got := s.Channel(99, 0); got != 0 {
		t.Errorf("Channel(99, 0) = %d, want 0", got)
	}
	if got := s.Channel(1, 600); got != 0 {
		t.Errorf("Channel(1, 600) = %d, want 0", got)
	}
}

func TestSetBulk_TruncatesAtEnd(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewStore(pub)

	s.SetBulk(1, 510, []int{10, 20, 30})

	if got := s.Channel(1, 510); got != 10 {
		t.Errorf("channel 510 = %d, want 10", got)
	}
	if got := s.Channel(1, 511); got != 20 {
		t.Errorf("channel 511 = %d, want 20", got)
	}
	for ch := 0; ch < 510; ch++ {
		if got := s.Channel(1, ch); got != 0 {
			t.Fatalf("channel %d = %d, want 0", ch, got)
		}
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	bulk, ok := pub.events[0].(BulkUpdate)
	if !ok {
		t.Fatalf("event type %T, want BulkUpdate", pub.events[0])
	}
	if bulk.Universe != 1 || bulk.StartChannel != 510 || len(bulk.Values) != 3 {
		t.Errorf("BulkUpdate = %+v", bulk)
	}
}

func TestSetBulk_NegativeStartDropsLeading(t *testing.T) {
	s := NewStore(nil)

	s.SetBulk(2, -2, []int{1, 2, 3, 4})

	if got := s.Channel(2, 0); got != 3 {
		t.Errorf("channel 0 = %d, want 3", got)
	}
	if got := s.Channel(2, 1); got != 4 {
		t.Errorf("channel 1 = %d, want 4", got)
	}
}

func TestSetBulk_ClampsValues(t *testing.T) {
	s := NewStore(nil)

	s.SetBulk(3, 0, []int{-5, 1000, 42})

	want := []int{0, 255, 42}
	for ch, w := range want {
		if got := s.Channel(3, ch); got != w {
			t.Errorf("channel %d = %d, want %d", ch, got, w)
		}
	}
}

func TestSetBulk_InvalidUniverseIsNoop(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewStore(pub)
	before := s.Snapshot()

	s.SetBulk(70, 0, []int{1, 2, 3})

	if s.Snapshot() != before {
		t.Error("bulk write to invalid universe changed the table")
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events, want 0", len(pub.events))
	}
}

func TestClear(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewStore(pub)
	s.SetChannel(4, 1, 100)
	s.SetChannel(5, 1, 100)
	pub.events = nil

	s.Clear(4)

	if got := s.Channel(4, 1); got != 0 {
		t.Errorf("universe 4 channel 1 = %d after Clear, want 0", got)
	}
	if got := s.Channel(5, 1); got != 100 {
		t.Errorf("universe 5 channel 1 = %d, want untouched 100", got)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	if e, ok := pub.events[0].(UniverseCleared); !ok || e.Universe != 4 {
		t.Errorf("event = %#v, want UniverseCleared{4}", pub.events[0])
	}
}

func TestClearAll(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewStore(pub)
	s.SetChannel(1, 0, 1)
	s.SetChannel(64, 511, 2)
	pub.events = nil

	s.ClearAll()

	if s.Channel(1, 0) != 0 || s.Channel(64, 511) != 0 {
		t.Error("ClearAll left non-zero channels")
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	if _, ok := pub.events[0].(AllUniversesCleared); !ok {
		t.Errorf("event = %T, want AllUniversesCleared", pub.events[0])
	}
}

func TestSubscribe_ReceivesUpdates(t *testing.T) {
	s := NewStore(nil)

	var calls [][]int
	s.Subscribe(7, func(slots []int) { calls = append(calls, slots) })

	s.SetChannel(7, 3, 50)
	s.SetChannel(8, 3, 50) // other universe
	s.SetBulk(7, 0, []int{9})
	s.Clear(7)

	if len(calls) != 3 {
		t.Fatalf("subscriber called %d times, want 3", len(calls))
	}
	if calls[0][3] != 50 {
		t.Errorf("first notification slot 3 = %d, want 50", calls[0][3])
	}
	if calls[1][0] != 9 {
		t.Errorf("second notification slot 0 = %d, want 9", calls[1][0])
	}
	if calls[2][3] != 0 {
		t.Errorf("clear notification slot 3 = %d, want 0", calls[2][3])
	}

	// Subscribers get a copy.
	calls[0][3] = 1
	if s.Channel(7, 3) != 0 {
		t.Error("mutating notification slice changed the store")
	}
}

func TestSubscribe_UnsubscribeOnce(t *testing.T) {
	s := NewStore(nil)

	a, b := 0, 0
	unsubscribeA := s.Subscribe(1, func([]int) { a++ })
	s.Subscribe(1, func([]int) { b++ })

	s.SetChannel(1, 0, 1)
	unsubscribeA()
	unsubscribeA()
	s.SetChannel(1, 0, 2)

	if a != 1 {
		t.Errorf("unsubscribed handler called %d times, want 1", a)
	}
	if b != 2 {
		t.Errorf("remaining handler called %d times, want 2", b)
	}
}

func TestSubscribe_InvalidUniverse(t *testing.T) {
	s := NewStore(nil)

	unsubscribe := s.Subscribe(0, func([]int) { t.Error("should never be called") })
	unsubscribe()
	s.SetChannel(1, 0, 5)
}

func TestSubscribe_UnsubscribeDuringDelivery(t *testing.T) {
	s := NewStore(nil)

	var unsubscribe func()
	first, second := 0, 0
	unsubscribe = s.Subscribe(2, func([]int) {
		first++
		unsubscribe()
	})
	s.Subscribe(2, func([]int) { second++ })

	s.SetChannel(2, 0, 1)
	s.SetChannel(2, 0, 2)

	if first != 1 {
		t.Errorf("self-removing subscriber called %d times, want 1", first)
	}
	if second != 2 {
		t.Errorf("second subscriber called %d times, want 2", second)
	}
}

func TestEventsThroughBus(t *testing.T) {
	bus := event.NewBus()
	s := NewStore(bus)

	var got ChannelUpdate
	event.On(bus, func(e ChannelUpdate) { got = e })

	s.SetChannel(10, 20, 400)

	if got != (ChannelUpdate{Universe: 10, Channel: 20, Value: 255}) {
		t.Errorf("ChannelUpdate = %+v", got)
	}
}

func TestValidateAddress(t *testing.T) {
	if err := ValidateAddress(1, 0); err != nil {
		t.Errorf("ValidateAddress(1, 0) = %v", err)
	}
	if err := ValidateAddress(0, 0); !errors.Is(err, ErrInvalidUniverse) {
		t.Errorf("ValidateAddress(0, 0) = %v, want ErrInvalidUniverse", err)
	}
	if err := ValidateAddress(1, 512); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("ValidateAddress(1, 512) = %v, want ErrInvalidChannel", err)
	}
}
