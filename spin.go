package roulette

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Stage is the phase of a spin session
type Stage int

const (
	StageIdle Stage = iota
	StageSpinning
	StageRewinding
	StageStopped
)

// String returns the string representation of the stage
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageSpinning:
		return "spinning"
	case StageRewinding:
		return "rewinding"
	case StageStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EaseOutCubic decelerates toward 1
func EaseOutCubic(t float64) float64 {
	t--
	return t*t*t + 1
}

// EaseOutQuad decelerates toward 1, gentler than EaseOutCubic
func EaseOutQuad(t float64) float64 {
	return t * (2 - t)
}

// SpinSession owns all mutable animation state of one spin gesture.
// Winner, fake decision and targets are fixed when the session is planned; Advance only moves
// the angle along the precomputed path.
type SpinSession struct {
	ID           string
	ProfileID    string
	Distribution *Distribution
	WinnerIndex  int
	StartedAt    time.Time

	Stage              Stage
	Angle              float64
	StartAngle         float64
	TargetAngle        float64
	CorrectTargetAngle float64
	ExtraRotations     int

	IsFake    bool
	FakeSteps int

	Elapsed        time.Duration
	Duration       time.Duration
	RewindDuration time.Duration

	finalized bool
	outcome   WinnerOutcome
}

// Step is what one Advance call produced
type Step struct {
	Angle    float64
	Stage    Stage
	Progress float64 // progress of the stage that was animated, in [0, 1]

	Transitioned bool
	From         Stage
	To           Stage
}

// Advance moves the session forward by dt. It is a no-op outside spinning and rewinding.
// Time left over when a stage completes is dropped; the next stage starts from zero.
func (s *SpinSession) Advance(dt time.Duration) Step {
	step := Step{Angle: s.Angle, Stage: s.Stage, From: s.Stage, To: s.Stage}
	if s.Stage != StageSpinning && s.Stage != StageRewinding {
		return step
	}
	if dt < 0 {
		dt = 0
	}

	s.Elapsed += dt
	progress := 1.0
	if s.Duration > 0 {
		progress = math.Min(float64(s.Elapsed)/float64(s.Duration), 1)
	}

	var eased float64
	if s.Stage == StageSpinning {
		eased = EaseOutCubic(progress)
	} else {
		eased = EaseOutQuad(progress)
	}
	s.Angle = s.StartAngle + (s.TargetAngle-s.StartAngle)*eased
	step.Progress = progress

	if progress >= 1 {
		s.Angle = s.TargetAngle
		if s.IsFake && s.Stage == StageSpinning {
			s.Stage = StageRewinding
			s.Elapsed = 0
			s.Duration = s.RewindDuration
			s.StartAngle = s.Angle
			s.TargetAngle = s.CorrectTargetAngle
		} else {
			s.Stage = StageStopped
		}
		step.Transitioned = true
		step.To = s.Stage
	}

	step.Angle = s.Angle
	step.Stage = s.Stage
	return step
}

// snapshot copies the planned path and progress, leaving out the finalize state
func (s *SpinSession) snapshot() SpinSession {
	return SpinSession{
		ID:                 s.ID,
		ProfileID:          s.ProfileID,
		Distribution:       s.Distribution,
		WinnerIndex:        s.WinnerIndex,
		StartedAt:          s.StartedAt,
		Stage:              s.Stage,
		Angle:              s.Angle,
		StartAngle:         s.StartAngle,
		TargetAngle:        s.TargetAngle,
		CorrectTargetAngle: s.CorrectTargetAngle,
		ExtraRotations:     s.ExtraRotations,
		IsFake:             s.IsFake,
		FakeSteps:          s.FakeSteps,
		Elapsed:            s.Elapsed,
		Duration:           s.Duration,
		RewindDuration:     s.RewindDuration,
	}
}

// Finalized reports whether the result of this session has been produced
func (s *SpinSession) Finalized() bool { return s.finalized }

// Done reports whether the session reached its terminal stage
func (s *SpinSession) Done() bool { return s.Stage == StageStopped }

// SpinPlanner fixes everything random about a session before the first frame
type SpinPlanner struct {
	config    *EngineConfig
	generator RandomGenerator
	selector  *WeightedSelector
}

// NewSpinPlanner creates a planner. Nil config means DefaultEngineConfig, nil generator means
// a SecureRandomGenerator.
func NewSpinPlanner(config *EngineConfig, generator RandomGenerator) *SpinPlanner {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if generator == nil {
		generator = NewSecureRandomGenerator()
	}
	return &SpinPlanner{
		config:    config,
		generator: generator,
		selector:  NewWeightedSelector(generator),
	}
}

// Plan draws the winner and computes the whole path of a session starting at currentAngle.
//
// Draw order is fixed so a seeded generator replays the same session:
// winner, extra rotations, duration jitter, fake roll, fake steps.
func (p *SpinPlanner) Plan(d *Distribution, currentAngle float64, fakeEnabled bool) (*SpinSession, error) {
	if d == nil || d.Len() == 0 {
		return nil, ErrEmptyItems
	}

	winner, err := p.selector.SelectFrom(d)
	if err != nil {
		return nil, err
	}

	stopAngle, err := d.TargetStopAngle(winner)
	if err != nil {
		return nil, err
	}

	rotations, err := p.generator.GenerateInRange(p.config.MinExtraRotations, p.config.MaxExtraRotations)
	if err != nil {
		return nil, ErrRandomSourceFailure.WithCause(err)
	}

	jitter, err := p.generator.GenerateFloat()
	if err != nil {
		return nil, ErrRandomSourceFailure.WithCause(err)
	}

	correct := stopAngle + FullCircle*float64(rotations)
	s := &SpinSession{
		ID:                 uuid.NewString(),
		Distribution:       d,
		WinnerIndex:        winner,
		StartedAt:          time.Now(),
		Stage:              StageSpinning,
		StartAngle:         math.Mod(currentAngle, FullCircle),
		CorrectTargetAngle: correct,
		TargetAngle:        correct,
		ExtraRotations:     rotations,
		Duration:           p.config.MinSpinDuration + time.Duration(jitter*float64(p.config.SpinDurationJitter)),
		RewindDuration:     p.config.RewindDuration,
	}
	s.Angle = s.StartAngle

	if fakeEnabled && p.config.FakeProbability > 0 {
		roll, err := p.generator.GenerateFloat()
		if err != nil {
			return nil, ErrRandomSourceFailure.WithCause(err)
		}
		if roll < p.config.FakeProbability {
			steps, err := p.generator.GenerateInRange(1, p.config.FakeMaxSteps)
			if err != nil {
				return nil, ErrRandomSourceFailure.WithCause(err)
			}
			s.IsFake = true
			s.FakeSteps = steps
			s.Duration += p.config.FakeExtraDuration
			s.TargetAngle = correct + d.FakeOffset(winner, steps)
		}
	}

	return s, nil
}
