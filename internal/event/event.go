package event

// Kind identifies an event variant. The set is closed: every event the
// engine emits uses one of the constants below.
type Kind string

// Playback events, emitted by the show scheduler.
const (
	KindShowLoaded      Kind = "showLoaded"
	KindPlaybackStarted Kind = "playbackStarted"
	KindPlaybackPaused  Kind = "playbackPaused"
	KindPlaybackStopped Kind = "playbackStopped"
	KindPlaybackSeeked  Kind = "playbackSeeked"
	KindLoopChanged     Kind = "loopChanged"
	KindFrameUpdate     Kind = "frameUpdate"
	KindFrameApplied    Kind = "frameApplied"
)

// Channel table events, emitted by the DMX store.
const (
	KindChannelUpdate       Kind = "channelUpdate"
	KindBulkUpdate          Kind = "bulkUpdate"
	KindUniverseCleared     Kind = "universeCleared"
	KindAllUniversesCleared Kind = "allUniversesCleared"
)

// Link health events, emitted by the diagnostics aggregator.
const (
	KindStatsUpdated  Kind = "statsUpdated"
	KindError         Kind = "error"
	KindErrorsCleared Kind = "errorsCleared"
)

// Kinds lists every event kind in a stable order.
var Kinds = []Kind{
	KindShowLoaded,
	KindPlaybackStarted,
	KindPlaybackPaused,
	KindPlaybackStopped,
	KindPlaybackSeeked,
	KindLoopChanged,
	KindFrameUpdate,
	KindFrameApplied,
	KindChannelUpdate,
	KindBulkUpdate,
	KindUniverseCleared,
	KindAllUniversesCleared,
	KindStatsUpdated,
	KindError,
	KindErrorsCleared,
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is implemented by every typed event payload. Payload structs live
// next to the component that emits them (show, dmx, diagnostics) and must
// be value types so the zero value reports the right Kind.
type Event interface {
	Kind() Kind
}
