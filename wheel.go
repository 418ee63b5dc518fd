package roulette

import (
	"context"
	"sync"
	"time"
)

// Wheel is the spin engine for one roulette window.
//
// It owns the active profile snapshot and at most one SpinSession. A frame loop drives it through
// Advance; user gestures call Spin. Both may run on different goroutines.
type Wheel struct {
	mu sync.Mutex

	config    *EngineConfig
	generator RandomGenerator
	planner   *SpinPlanner
	mixer     *AudioMixer
	finalizer *ResultFinalizer
	monitor   *SpinMonitor
	logger    Logger

	player     AudioPlayer
	celebrator Celebrator
	sink       ResultSink

	ctx    context.Context
	cancel context.CancelFunc

	profileID    string
	settings     ProfileSettings
	distribution *Distribution
	pending      *Profile
	pendingCfg   *EngineConfig

	angle       float64
	session     *SpinSession
	lastOutcome *WinnerOutcome
	closed      bool
}

// NewWheel creates a wheel with default config, secure randomness and the default logger
func NewWheel() *Wheel {
	return NewWheelWithConfigAndLogger(nil, nil, nil)
}

// NewWheelWithConfigAndLogger creates a wheel. Nil arguments fall back to defaults.
func NewWheelWithConfigAndLogger(config *EngineConfig, generator RandomGenerator, logger Logger) *Wheel {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if generator == nil {
		generator = NewSecureRandomGenerator()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Wheel{
		config:    config,
		generator: generator,
		planner:   NewSpinPlanner(config, generator),
		monitor:   NewSpinMonitor(),
		logger:    orDefaultLogger(logger),
		ctx:       ctx,
		cancel:    cancel,
	}
	w.rebuildLocked()
	return w
}

func (w *Wheel) rebuildLocked() {
	w.mixer = NewAudioMixer(w.player, w.config, w.logger)
	w.finalizer = NewResultFinalizer(w.sink, w.celebrator, w.mixer, w.generator, w.config.WinSoundVariants, w.logger)
	w.finalizer.SetMonitor(w.monitor)
}

// SetConfig replaces the animation config. While a session runs the config is parked and
// applied when the wheel returns to idle; applied reports whether it took effect immediately.
func (w *Wheel) SetConfig(config *EngineConfig) (applied bool, err error) {
	if config == nil {
		return false, ErrInvalidConfig.WithDetails("engine config is nil")
	}
	if err := config.Validate(); err != nil {
		return false, err
	}
	c := *config

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false, ErrWheelClosed
	}
	if w.session != nil {
		w.pendingCfg = &c
		w.logger.Debug("engine config parked until session %s ends", w.session.ID)
		return false, nil
	}
	w.applyConfigLocked(&c)
	return true, nil
}

func (w *Wheel) applyConfigLocked(config *EngineConfig) {
	w.config = config
	w.planner = NewSpinPlanner(config, w.generator)
	w.rebuildLocked()
	w.logger.Info("engine config applied: duration=%s fake_probability=%.2f",
		config.MinSpinDuration, config.FakeProbability)
}

// Config returns a copy of the engine config in effect
func (w *Wheel) Config() EngineConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.config
}

// SetAudioPlayer 设置音频输出
func (w *Wheel) SetAudioPlayer(player AudioPlayer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.player = player
	w.rebuildLocked()
}

// SetCelebrator 设置中奖特效
func (w *Wheel) SetCelebrator(celebrator Celebrator) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.celebrator = celebrator
	w.rebuildLocked()
}

// SetResultSink 设置结果持久化目标
func (w *Wheel) SetResultSink(sink ResultSink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = sink
	w.rebuildLocked()
}

// SetLogger 设置日志
func (w *Wheel) SetLogger(logger Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger = orDefaultLogger(logger)
	w.rebuildLocked()
}

// GetLogger returns the wheel's logger
func (w *Wheel) GetLogger() Logger { return w.logger }

// Monitor returns the wheel's counters
func (w *Wheel) Monitor() *SpinMonitor { return w.monitor }

// Load publishes a profile snapshot to the wheel.
//
// While a session runs the snapshot is parked and applied when the wheel returns to idle;
// applied reports whether it took effect immediately. Invalid profiles are rejected and the
// previous snapshot stays.
func (w *Wheel) Load(profile *Profile) (applied bool, err error) {
	if profile == nil {
		return false, ErrProfileNotFound
	}
	snapshot := profile.Clone()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false, ErrWheelClosed
	}
	if w.session != nil {
		w.pending = snapshot
		w.logger.Debug("profile %s parked until session %s ends", snapshot.ID, w.session.ID)
		return false, nil
	}
	if err := w.applyLocked(snapshot); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Wheel) applyLocked(profile *Profile) error {
	d, err := profile.Distribution()
	if err != nil {
		w.logger.Error("profile %s rejected: %v", profile.ID, err)
		return err
	}
	w.profileID = profile.ID
	w.settings = profile.Settings
	w.distribution = d
	w.logger.Info("profile %s loaded with %d items", profile.ID, d.Len())
	return nil
}

// Spin starts a session. A request while a session runs is ignored and reports started=false
// with no error.
func (w *Wheel) Spin() (started bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false, ErrWheelClosed
	}
	if w.session != nil {
		w.monitor.RecordSpinIgnored()
		w.logger.Debug("spin ignored: session %s is %s", w.session.ID, w.session.Stage)
		return false, nil
	}
	if w.distribution == nil || w.distribution.Len() == 0 {
		w.monitor.RecordSpinRejected()
		return false, ErrEmptyItems
	}

	s, err := w.planner.Plan(w.distribution, w.angle, w.settings.FakeEnabled)
	if err != nil {
		w.monitor.RecordSpinRejected()
		w.logger.Error("spin planning failed: %v", err)
		return false, err
	}
	s.ProfileID = w.profileID

	w.session = s
	w.mixer.OnSpinStart()
	w.monitor.RecordSpinStarted(s.IsFake)
	w.logger.Debug("session %s started: winner=%d fake=%v steps=%d duration=%s",
		s.ID, s.WinnerIndex, s.IsFake, s.FakeSteps, s.Duration)
	return true, nil
}

// Advance moves the running session by dt and returns the frame to draw.
// The frame that stops a session carries the outcome; afterwards the wheel is idle again.
func (w *Wheel) Advance(dt time.Duration) Frame {
	w.mu.Lock()
	if w.closed || w.session == nil {
		frame := w.frameLocked()
		w.mu.Unlock()
		return frame
	}

	s := w.session
	from := s.Stage
	step := s.Advance(dt)
	w.angle = step.Angle

	if from == StageSpinning {
		w.mixer.OnSpinFrame(step.Progress)
	}
	if step.Transitioned {
		switch step.To {
		case StageRewinding:
			w.mixer.OnRewind()
		case StageStopped:
			w.mixer.OnStopped()
		}
	}

	frame := w.frameLocked()
	if !step.Transitioned || step.To != StageStopped {
		w.mu.Unlock()
		return frame
	}
	finalizer := w.finalizer
	ctx := w.ctx
	w.mu.Unlock()

	// 结果回调不持锁, celebrator 可以回读 wheel 状态
	outcome, err := finalizer.Finalize(ctx, s)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		// Close 在结果回调期间到达: 丢弃结果
		return w.frameLocked()
	}
	w.monitor.RecordSpinCompleted(err == nil, time.Since(s.StartedAt))
	if err != nil {
		w.logger.Error("session %s finalize failed: %v", s.ID, err)
	}
	w.finishLocked(s, outcome)
	frame.Outcome = &outcome
	return frame
}

func (w *Wheel) finishLocked(s *SpinSession, outcome WinnerOutcome) {
	if w.session != s {
		return
	}
	w.session = nil
	w.lastOutcome = &outcome
	if w.closed {
		return
	}
	if w.pendingCfg != nil {
		w.applyConfigLocked(w.pendingCfg)
		w.pendingCfg = nil
	}
	if w.pending != nil {
		pending := w.pending
		w.pending = nil
		_ = w.applyLocked(pending)
	}
}

func (w *Wheel) frameLocked() Frame {
	frame := Frame{
		ProfileID:     w.profileID,
		Title:         w.settings.Title,
		TransparentBg: w.settings.TransparentBg,
		Stage:         StageIdle,
		Angle:         w.angle,
		LitIndex:      -1,
	}
	if w.session != nil {
		frame.SessionID = w.session.ID
		frame.Stage = w.session.Stage
		frame.Sectors = w.session.Distribution.Sectors()
		return frame
	}
	if w.distribution != nil {
		frame.Sectors = w.distribution.Sectors()
	}
	return frame
}

// Frame returns the current projection without advancing time
func (w *Wheel) Frame() Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frameLocked()
}

// Stage returns the stage of the running session, or idle
func (w *Wheel) Stage() Stage {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return StageIdle
	}
	return w.session.Stage
}

// Session returns a copy of the running session for inspection.
// The copy never carries the finalize state, which the frame goroutine writes without the lock.
func (w *Wheel) Session() (SpinSession, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return SpinSession{}, false
	}
	return w.session.snapshot(), true
}

// Angle returns the current wheel rotation
func (w *Wheel) Angle() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.angle
}

// LastOutcome returns the outcome of the most recent finished session
func (w *Wheel) LastOutcome() (WinnerOutcome, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastOutcome == nil {
		return WinnerOutcome{}, false
	}
	return *w.lastOutcome, true
}

// Close discards any in-flight session without side effects. Later calls are no-ops.
func (w *Wheel) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.session != nil {
		w.logger.Info("wheel closed, discarding session %s at stage %s", w.session.ID, w.session.Stage)
		w.session = nil
	}
	w.pending = nil
	w.pendingCfg = nil
	w.cancel()
}
