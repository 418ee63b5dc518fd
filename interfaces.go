package roulette

import (
	"context"
	"time"
)

// RandomGenerator is the randomness provider for draws and spin planning.
// Implementations used by a Wheel are only called from the goroutine driving it.
type RandomGenerator interface {
	// GenerateFloat returns a float in [0, 1)
	GenerateFloat() (float64, error)

	// GenerateInRange returns an int in [min, max] (inclusive)
	GenerateInRange(min, max int) (int, error)
}

// Animator is anything the frame loop can drive with synthetic or real time deltas
type Animator interface {
	Advance(dt time.Duration) Frame
}

// FrameSink receives the read-only projection of every animation step
type FrameSink interface {
	DrawFrame(frame Frame)
}

// AudioPlayer plays the spin sound cues. Errors are treated as best-effort by the engine.
type AudioPlayer interface {
	Play(cue AudioCue) error
	Pause(cue AudioCue) error
	SetVolume(cue AudioCue, volume float64) error
}

// Celebrator fires the terminal visual effects (confetti, result popup)
type Celebrator interface {
	Celebrate(outcome WinnerOutcome)
}

// CelebratorFunc adapts a function to Celebrator
type CelebratorFunc func(WinnerOutcome)

func (f CelebratorFunc) Celebrate(outcome WinnerOutcome) { f(outcome) }

// ResultSink persists the winner of a finished spin
type ResultSink interface {
	SaveResult(ctx context.Context, record ResultRecord) error
}

// DocumentStore loads and saves the profile document
type DocumentStore interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}
