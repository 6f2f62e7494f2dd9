package engine

import (
	"context"

	"github.com/nerrad567/gray-logic-dmx/internal/show"
)

// LoadShow replaces the loaded sequence and rewinds to frame 0.
func (e *Engine) LoadShow(ctx context.Context, seq show.Sequence) error {
	return e.exec(ctx, func() { e.sched.Load(seq) })
}

// LoadShowFile reads, validates, and loads a JSON sequence.
func (e *Engine) LoadShowFile(ctx context.Context, path string) error {
	seq, err := show.LoadFile(path)
	if err != nil {
		return err
	}
	return e.LoadShow(ctx, seq)
}

// Play starts or resumes playback.
func (e *Engine) Play(ctx context.Context) error {
	return e.exec(ctx, e.sched.Play)
}

// Pause halts playback at the current frame.
func (e *Engine) Pause(ctx context.Context) error {
	return e.exec(ctx, e.sched.Pause)
}

// Stop halts playback and rewinds to frame 0.
func (e *Engine) Stop(ctx context.Context) error {
	return e.exec(ctx, e.sched.Stop)
}

// SeekToTime moves playback to t seconds.
func (e *Engine) SeekToTime(ctx context.Context, t float64) error {
	return e.exec(ctx, func() { e.sched.SeekToTime(t) })
}

// SetLoop sets whether playback restarts at the end of the sequence.
func (e *Engine) SetLoop(ctx context.Context, loop bool) error {
	return e.exec(ctx, func() { e.sched.SetLoop(loop) })
}

// CurrentTime returns the playback position in seconds.
func (e *Engine) CurrentTime(ctx context.Context) (float64, error) {
	return call(ctx, e, e.sched.CurrentTime)
}

// Duration returns the loaded sequence's duration in seconds.
func (e *Engine) Duration(ctx context.Context) (float64, error) {
	return call(ctx, e, e.sched.Duration)
}

// PlaybackStatus returns a snapshot of the scheduler.
func (e *Engine) PlaybackStatus(ctx context.Context) (show.Status, error) {
	return call(ctx, e, e.sched.Status)
}
