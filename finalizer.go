package roulette

import (
	"context"
	"time"
	"unicode/utf8"
)

// ErrorLabel is shown instead of a winner name when no winner can be resolved
const ErrorLabel = "error"

const (
	resultBaseFontSize  = 70
	resultMinFontSize   = 20
	resultMaxChars      = 5
	resultShrinkPerRune = 6
)

// WinnerOutcome is what the result popup shows
type WinnerOutcome struct {
	SessionID string
	ProfileID string
	Index     int
	Name      string
	Color     string
	FontSize  int
	Error     bool
}

// ResultRecord is handed to the result sink for persistence
type ResultRecord struct {
	SessionID string    `json:"session_id"`
	ProfileID string    `json:"profile_id"`
	Winner    string    `json:"winner"`
	Color     string    `json:"color"`
	Index     int       `json:"index"`
	Fake      bool      `json:"fake"`
	Timestamp time.Time `json:"timestamp"`
}

// ResultFontSize shrinks the popup font for long names
func ResultFontSize(name string) int {
	n := utf8.RuneCountInString(name)
	if n <= resultMaxChars {
		return resultBaseFontSize
	}
	return max(resultMinFontSize, resultBaseFontSize-(n-resultMaxChars)*resultShrinkPerRune)
}

// ResultFinalizer produces the outcome of a stopped session and fires the terminal effects
type ResultFinalizer struct {
	sink       ResultSink
	celebrator Celebrator
	mixer      *AudioMixer
	generator  RandomGenerator
	monitor    *SpinMonitor
	variants   int
	logger     Logger
}

// NewResultFinalizer creates a finalizer. Every collaborator except the generator may be nil.
func NewResultFinalizer(
	sink ResultSink, celebrator Celebrator, mixer *AudioMixer, generator RandomGenerator, variants int, logger Logger,
) *ResultFinalizer {
	if generator == nil {
		generator = NewSecureRandomGenerator()
	}
	if variants < 1 {
		variants = DefaultWinSoundVariants
	}
	return &ResultFinalizer{
		sink:       sink,
		celebrator: celebrator,
		mixer:      mixer,
		generator:  generator,
		variants:   variants,
		logger:     orDefaultLogger(logger),
	}
}

// SetMonitor attaches counters for sink failures
func (f *ResultFinalizer) SetMonitor(monitor *SpinMonitor) { f.monitor = monitor }

// Finalize resolves the winner from the session's own snapshot.
//
// The second call for a session returns the first outcome with ErrAlreadyFinalized and fires
// nothing. Once ctx is done the remaining effects (sound, celebration, sink) are skipped and
// ctx's error is returned. An out-of-range winner yields an error outcome and ErrInvalidWinnerIndex.
func (f *ResultFinalizer) Finalize(ctx context.Context, s *SpinSession) (WinnerOutcome, error) {
	if s == nil {
		return WinnerOutcome{Index: -1, Name: ErrorLabel, Error: true}, ErrInvalidWinnerIndex
	}
	if s.finalized {
		return s.outcome, ErrAlreadyFinalized.WithMetadata("session_id", s.ID)
	}
	s.finalized = true

	var sector Sector
	ok := false
	if s.Distribution != nil {
		sector, ok = s.Distribution.Sector(s.WinnerIndex)
	}
	if !ok {
		f.logger.Error("session %s: winner index %d cannot be resolved", s.ID, s.WinnerIndex)
		s.outcome = WinnerOutcome{
			SessionID: s.ID,
			ProfileID: s.ProfileID,
			Index:     -1,
			Name:      ErrorLabel,
			FontSize:  resultBaseFontSize,
			Error:     true,
		}
		return s.outcome, ErrInvalidWinnerIndex.WithMetadata("winner_index", s.WinnerIndex)
	}

	display := sector.Name
	if display == "" {
		display = ErrorLabel
	}
	s.outcome = WinnerOutcome{
		SessionID: s.ID,
		ProfileID: s.ProfileID,
		Index:     sector.Index,
		Name:      display,
		Color:     sector.Color,
		FontSize:  ResultFontSize(sector.Name),
	}

	// 宿主已关闭: 不再触发任何终局效果
	if err := ctx.Err(); err != nil {
		f.logger.Debug("session %s: terminal effects skipped: %v", s.ID, err)
		return s.outcome, err
	}

	if f.mixer != nil {
		variant, err := f.generator.GenerateInRange(1, f.variants)
		if err != nil {
			variant = 1
		}
		f.mixer.OnWin(variant)
	}
	f.celebrate(s.outcome)

	if err := ctx.Err(); err != nil {
		f.logger.Debug("session %s: result %q not saved: %v", s.ID, sector.Name, err)
		return s.outcome, err
	}

	if f.sink != nil {
		record := ResultRecord{
			SessionID: s.ID,
			ProfileID: s.ProfileID,
			Winner:    sector.Name,
			Color:     sector.Color,
			Index:     sector.Index,
			Fake:      s.IsFake,
			Timestamp: time.Now(),
		}
		if err := f.sink.SaveResult(ctx, record); err != nil {
			// 结果持久化失败不影响展示
			f.logger.Error("session %s: saving result %q failed: %v", s.ID, sector.Name, err)
			if f.monitor != nil {
				f.monitor.RecordSinkFailure()
			}
		}
	}

	f.logger.Info("session %s finished: winner=%s (index %d, fake=%v)", s.ID, sector.Name, sector.Index, s.IsFake)
	return s.outcome, nil
}

func (f *ResultFinalizer) celebrate(outcome WinnerOutcome) {
	if f.celebrator == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			err := recoveredError("celebrate", r)
			f.logger.Error("celebration panicked: %v", err)
			f.logger.Debug("celebration panic stack: %s", err.StackTrace)
		}
	}()
	f.celebrator.Celebrate(outcome)
}
