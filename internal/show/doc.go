// Package show plays pre-computed lighting sequences into the channel table.
//
// A Sequence is a list of frames played back at a fixed 30 frames per
// second. The Scheduler owns the loaded sequence and a cursor into it:
//
//	idle ──Load──▶ loaded ──Play──▶ playing ◀──Play── paused
//	                                   │  └────Pause────▶ ▲
//	                                   └── end of sequence: idle, or back
//	                                       to frame 0 when looping
//
// # Timing
//
// The cursor is derived from wall time on every tick:
//
//	cursor = floor((now - referenceStart) * 30)
//
// Only the frame under the cursor is applied. If a tick arrives late the
// frames it skipped are lost; this keeps playback locked to real time on a
// slow host. Ticks are armed through an eventloop.Clock so tests can step
// time with a ManualClock.
//
// # Applying a frame
//
// Each universe listed in Frame.UniverseValues is written with
// SetBulk(universe, 0, values). Universes the frame does not list keep
// whatever they held.
package show
