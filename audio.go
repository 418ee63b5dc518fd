package roulette

import (
	"fmt"
	"math"
)

// AudioCue names one sound asset
type AudioCue string

const (
	CueStart     AudioCue = "start"     // Spin button pressed
	CueSpin      AudioCue = "spin"      // Looping wheel noise
	CueHeartbeat AudioCue = "heartbeat" // Suspense loop near the end
	CueFake      AudioCue = "fake"      // Entering rewinding
)

// WinCue returns the n-th win jingle ("win1", "win2", ...)
func WinCue(n int) AudioCue { return AudioCue(fmt.Sprintf("win%d", n)) }

// NopAudioPlayer plays nothing
type NopAudioPlayer struct{}

func (NopAudioPlayer) Play(AudioCue) error               { return nil }
func (NopAudioPlayer) Pause(AudioCue) error              { return nil }
func (NopAudioPlayer) SetVolume(AudioCue, float64) error { return nil }

// AudioMixer turns state machine phases into cue commands.
// Player failures and panics are logged and swallowed so a broken output never stalls a spin.
type AudioMixer struct {
	player             AudioPlayer
	logger             Logger
	heartbeatThreshold float64
	fadeThreshold      float64

	spinVolume   float64
	heartVolume  float64
	heartPlaying bool
	spinPlaying  bool
}

// NewAudioMixer creates a mixer over player; nil player mutes, nil config uses defaults
func NewAudioMixer(player AudioPlayer, config *EngineConfig, logger Logger) *AudioMixer {
	if player == nil {
		player = NopAudioPlayer{}
	}
	if config == nil {
		config = DefaultEngineConfig()
	}
	return &AudioMixer{
		player:             player,
		logger:             orDefaultLogger(logger),
		heartbeatThreshold: config.HeartbeatThreshold,
		fadeThreshold:      config.SpinFadeThreshold,
	}
}

// Volumes returns the current spin loop and heartbeat volumes
func (m *AudioMixer) Volumes() (spin, heart float64) { return m.spinVolume, m.heartVolume }

// HeartbeatPlaying reports whether the heartbeat loop is running
func (m *AudioMixer) HeartbeatPlaying() bool { return m.heartPlaying }

// OnSpinStart plays the start cue and arms both loops at volume 0
func (m *AudioMixer) OnSpinStart() {
	m.play(CueStart)

	m.setVolume(CueSpin, 0)
	m.spinVolume = 0
	m.play(CueSpin)
	m.spinPlaying = true

	m.setVolume(CueHeartbeat, 0)
	m.heartVolume = 0
	m.pause(CueHeartbeat)
	m.heartPlaying = false
}

// OnChaseStart plays the start cue and the spin loop at full volume
func (m *AudioMixer) OnChaseStart() {
	m.play(CueStart)
	m.spinVolume = 1
	m.setVolume(CueSpin, 1)
	m.play(CueSpin)
	m.spinPlaying = true
}

// OnSpinFrame applies the crossfade for a spinning-stage progress value
func (m *AudioMixer) OnSpinFrame(progress float64) {
	remaining := 1 - progress

	if remaining < m.heartbeatThreshold {
		if m.heartVolume == 0 && !m.heartPlaying {
			m.play(CueHeartbeat)
			m.heartPlaying = true
		}
		m.heartVolume = math.Min(1, (m.heartbeatThreshold-remaining)/m.heartbeatThreshold)
		m.setVolume(CueHeartbeat, m.heartVolume)

		if remaining < m.fadeThreshold {
			spin := 0.0
			if m.fadeThreshold > 0 {
				spin = math.Max(0, remaining/m.fadeThreshold)
			}
			// never fade back up
			if spin < m.spinVolume {
				m.spinVolume = spin
				m.setVolume(CueSpin, m.spinVolume)
			}
		}
		return
	}

	m.spinVolume = math.Min(1, progress*4)
	m.setVolume(CueSpin, m.spinVolume)
	if m.heartVolume > 0 {
		m.heartVolume = 0
		m.setVolume(CueHeartbeat, 0)
	}
	if m.heartPlaying {
		m.pause(CueHeartbeat)
		m.heartPlaying = false
	}
}

// OnRewind plays the transition cue when a fake spin starts correcting
func (m *AudioMixer) OnRewind() { m.play(CueFake) }

// OnStopped silences both loops
func (m *AudioMixer) OnStopped() {
	if m.spinPlaying {
		m.pause(CueSpin)
		m.spinPlaying = false
	}
	m.pause(CueHeartbeat)
	m.heartPlaying = false
}

// OnWin plays the selected win jingle
func (m *AudioMixer) OnWin(variant int) { m.play(WinCue(variant)) }

func (m *AudioMixer) play(cue AudioCue) {
	m.safe("play", cue, func() error { return m.player.Play(cue) })
}

func (m *AudioMixer) pause(cue AudioCue) {
	m.safe("pause", cue, func() error { return m.player.Pause(cue) })
}

func (m *AudioMixer) setVolume(cue AudioCue, volume float64) {
	m.safe("volume", cue, func() error { return m.player.SetVolume(cue, volume) })
}

func (m *AudioMixer) safe(op string, cue AudioCue, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("audio %s %s panicked: %v", op, cue, recoveredError("audio "+op, r))
		}
	}()
	if err := fn(); err != nil {
		m.logger.Debug("audio %s %s failed: %v", op, cue, err)
	}
}
