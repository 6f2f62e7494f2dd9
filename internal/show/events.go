package show

import "github.com/nerrad567/gray-logic-dmx/internal/event"

// ShowLoaded is published when a sequence replaces the current one.
type ShowLoaded struct {
	SequenceID  string  `json:"sequenceId"`
	Name        string  `json:"name"`
	Duration    float64 `json:"duration"`
	TotalFrames int     `json:"totalFrames"`
}

// PlaybackStarted is published on Play and on every loop restart.
type PlaybackStarted struct {
	Time float64 `json:"time"`
}

// PlaybackPaused is published when Pause stops a running sequence.
type PlaybackPaused struct {
	Time float64 `json:"time"`
}

// PlaybackStopped is published when playback ends and the cursor resets.
type PlaybackStopped struct{}

// PlaybackSeeked is published after SeekToTime.
type PlaybackSeeked struct {
	Time  float64 `json:"time"`
	Frame int     `json:"frame"`
}

// LoopChanged is published after SetLoop.
type LoopChanged struct {
	Loop bool `json:"loop"`
}

// FrameUpdate is published on every tick that lands on a frame.
type FrameUpdate struct {
	Frame       int     `json:"frame"`
	Time        float64 `json:"time"`
	TotalFrames int     `json:"totalFrames"`
}

// FrameApplied is published after a frame's values reach the store.
type FrameApplied struct {
	Index int   `json:"index"`
	Frame Frame `json:"frame"`
}

func (ShowLoaded) Kind() event.Kind      { return event.KindShowLoaded }
func (PlaybackStarted) Kind() event.Kind { return event.KindPlaybackStarted }
func (PlaybackPaused) Kind() event.Kind  { return event.KindPlaybackPaused }
func (PlaybackStopped) Kind() event.Kind { return event.KindPlaybackStopped }
func (PlaybackSeeked) Kind() event.Kind  { return event.KindPlaybackSeeked }
func (LoopChanged) Kind() event.Kind     { return event.KindLoopChanged }
func (FrameUpdate) Kind() event.Kind     { return event.KindFrameUpdate }
func (FrameApplied) Kind() event.Kind    { return event.KindFrameApplied }
