package roulette

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChasePhase is the phase of a chase-light run
type ChasePhase int

const (
	ChaseIdle ChasePhase = iota
	ChaseFast
	ChaseStopping
	ChaseStrobe
)

// String returns the string representation of the phase
func (p ChasePhase) String() string {
	switch p {
	case ChaseIdle:
		return "idle"
	case ChaseFast:
		return "fast"
	case ChaseStopping:
		return "stopping"
	case ChaseStrobe:
		return "strobe"
	default:
		return "unknown"
	}
}

// ChaseConfig 跑马灯参数
type ChaseConfig struct {
	Duration        time.Duration // Fast phase length
	MinStepInterval time.Duration // Step interval at the start of the fast phase
	StepSpread      time.Duration // Extra interval added by the end of the fast phase
	StopWindow      time.Duration // Easing window of the stopping phase
	StopMinInterval time.Duration
	StopMaxInterval time.Duration
	StrobeToggles   int
	StrobeInterval  time.Duration
}

// DefaultChaseConfig 返回默认跑马灯参数
func DefaultChaseConfig() *ChaseConfig {
	return &ChaseConfig{
		Duration:        DefaultChaseDuration,
		MinStepInterval: 30 * time.Millisecond,
		StepSpread:      DefaultChaseDuration / 10,
		StopWindow:      DefaultChaseStopWindow,
		StopMinInterval: 100 * time.Millisecond,
		StopMaxInterval: 1000 * time.Millisecond,
		StrobeToggles:   DefaultStrobeToggles,
		StrobeInterval:  DefaultStrobeInterval,
	}
}

// ChaseLight is the second selection screen: a light runs around the items instead of the
// wheel turning, slows down, lands on the pre-drawn winner and blinks.
type ChaseLight struct {
	mu sync.Mutex

	config    *ChaseConfig
	selector  *WeightedSelector
	mixer     *AudioMixer
	finalizer *ResultFinalizer
	monitor   *SpinMonitor
	logger    Logger

	profileID    string
	distribution *Distribution

	session      *SpinSession
	phase        ChasePhase
	lit          int
	lightOn      bool
	phaseElapsed time.Duration
	sinceStep    time.Duration
	strobeCount  int
	lastOutcome  *WinnerOutcome
	closed       bool
}

// NewChaseLight creates a chase light. Nil config and generator fall back to defaults.
func NewChaseLight(config *ChaseConfig, generator RandomGenerator, mixer *AudioMixer, finalizer *ResultFinalizer, logger Logger) *ChaseLight {
	if config == nil {
		config = DefaultChaseConfig()
	}
	if generator == nil {
		generator = NewSecureRandomGenerator()
	}
	if mixer == nil {
		mixer = NewAudioMixer(nil, nil, logger)
	}
	if finalizer == nil {
		finalizer = NewResultFinalizer(nil, nil, mixer, generator, DefaultWinSoundVariants, logger)
	}
	return &ChaseLight{
		config:    config,
		selector:  NewWeightedSelector(generator),
		mixer:     mixer,
		finalizer: finalizer,
		monitor:   NewSpinMonitor(),
		logger:    orDefaultLogger(logger),
		lightOn:   true,
	}
}

// Monitor returns the chase light's counters
func (c *ChaseLight) Monitor() *SpinMonitor { return c.monitor }

// Load replaces the items. It is refused while a run is in progress.
func (c *ChaseLight) Load(profile *Profile) error {
	if profile == nil {
		return ErrProfileNotFound
	}
	d, err := profile.Clone().Distribution()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrWheelClosed
	}
	if c.session != nil {
		return ErrSpinInProgress
	}
	c.profileID = profile.ID
	c.distribution = d
	if c.lit >= d.Len() {
		c.lit = 0
	}
	return nil
}

// Start draws the winner and starts the fast phase; a request during a run is ignored
func (c *ChaseLight) Start() (started bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrWheelClosed
	}
	if c.session != nil {
		c.monitor.RecordSpinIgnored()
		return false, nil
	}
	if c.distribution == nil || c.distribution.Len() == 0 {
		c.monitor.RecordSpinRejected()
		return false, ErrEmptyItems
	}

	winner, err := c.selector.SelectFrom(c.distribution)
	if err != nil {
		c.monitor.RecordSpinRejected()
		return false, err
	}

	c.session = &SpinSession{
		ID:           uuid.NewString(),
		ProfileID:    c.profileID,
		Distribution: c.distribution,
		WinnerIndex:  winner,
		StartedAt:    time.Now(),
		Stage:        StageSpinning,
		Duration:     c.config.Duration,
	}
	c.phase = ChaseFast
	c.phaseElapsed = 0
	c.sinceStep = 0
	c.lightOn = true

	c.mixer.OnChaseStart()
	c.monitor.RecordSpinStarted(false)
	c.logger.Debug("chase %s started: winner=%d", c.session.ID, winner)
	return true, nil
}

// Phase returns the current phase
func (c *ChaseLight) Phase() ChasePhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LitIndex returns the item the light is on
func (c *ChaseLight) LitIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lit
}

// LastOutcome returns the outcome of the most recent finished run
func (c *ChaseLight) LastOutcome() (WinnerOutcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastOutcome == nil {
		return WinnerOutcome{}, false
	}
	return *c.lastOutcome, true
}

// fastInterval slows from MinStepInterval by up to StepSpread along a quadratic ease
func (c *ChaseLight) fastInterval(progress float64) time.Duration {
	return c.config.MinStepInterval + time.Duration(float64(c.config.StepSpread)*EaseOutQuad(progress))
}

// stopInterval grows from StopMinInterval to StopMaxInterval over the stop window
func (c *ChaseLight) stopInterval(progress float64) time.Duration {
	spread := c.config.StopMaxInterval - c.config.StopMinInterval
	return c.config.StopMinInterval + time.Duration(float64(spread)*EaseOutQuad(progress))
}

func progressOf(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	return min(1, float64(elapsed)/float64(total))
}

// Advance moves the chase light by dt
func (c *ChaseLight) Advance(dt time.Duration) Frame {
	if dt < 0 {
		dt = 0
	}

	c.mu.Lock()
	if c.closed || c.session == nil {
		frame := c.frameLocked()
		c.mu.Unlock()
		return frame
	}

	n := c.distribution.Len()
	winner := c.session.WinnerIndex
	c.phaseElapsed += dt
	c.sinceStep += dt

	switch c.phase {
	case ChaseFast:
		for {
			interval := c.fastInterval(progressOf(c.phaseElapsed, c.config.Duration))
			if interval <= 0 || c.sinceStep < interval {
				break
			}
			c.sinceStep -= interval
			c.lit = (c.lit + 1) % n
		}
		if c.phaseElapsed >= c.config.Duration {
			c.phase = ChaseStopping
			c.phaseElapsed = 0
			c.sinceStep = 0
			c.mixer.OnStopped()
		}

	case ChaseStopping:
		for c.lit != winner {
			interval := c.stopInterval(progressOf(c.phaseElapsed, c.config.StopWindow))
			if interval <= 0 || c.sinceStep < interval {
				break
			}
			c.sinceStep -= interval
			c.lit = (c.lit + 1) % n
		}
		if c.lit == winner {
			c.phase = ChaseStrobe
			c.phaseElapsed = 0
			c.sinceStep = 0
			c.strobeCount = 0
			c.lightOn = true
		}

	case ChaseStrobe:
		for c.sinceStep >= c.config.StrobeInterval && c.strobeCount < c.config.StrobeToggles {
			c.sinceStep -= c.config.StrobeInterval
			c.strobeCount++
			c.lightOn = c.strobeCount%2 == 0
		}
	}

	if c.phase != ChaseStrobe || c.strobeCount < c.config.StrobeToggles {
		frame := c.frameLocked()
		c.mu.Unlock()
		return frame
	}

	s := c.session
	s.Stage = StageStopped
	c.lightOn = true
	frame := c.frameLocked()
	c.mu.Unlock()

	outcome, err := c.finalizer.Finalize(context.Background(), s)
	c.monitor.RecordSpinCompleted(err == nil, time.Since(s.StartedAt))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == s {
		c.session = nil
		c.phase = ChaseIdle
		c.lastOutcome = &outcome
	}
	frame.Outcome = &outcome
	return frame
}

func (c *ChaseLight) frameLocked() Frame {
	frame := Frame{
		ProfileID: c.profileID,
		Stage:     StageIdle,
		LitIndex:  c.lit,
		LightOn:   c.lightOn,
	}
	if c.distribution != nil {
		frame.Sectors = c.distribution.Sectors()
	}
	if c.session != nil {
		frame.SessionID = c.session.ID
		frame.Stage = c.session.Stage
	}
	return frame
}

// Close discards an in-flight run
func (c *ChaseLight) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.session = nil
	c.phase = ChaseIdle
}
