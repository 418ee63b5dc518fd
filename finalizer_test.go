package roulette

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stoppedSession(t *testing.T, d *Distribution, winner int) *SpinSession {
	t.Helper()
	return &SpinSession{
		ID:           "session-1",
		ProfileID:    "profile-test",
		Distribution: d,
		WinnerIndex:  winner,
		Stage:        StageStopped,
	}
}

func TestResultFontSize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 70},
		{"five_runes", "abcde", 70},
		{"six_runes", "abcdef", 64},
		{"multibyte_counts_runes", "一二三四五六七", 58},
		{"floor", "a very long prize name indeed", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResultFontSize(tt.in))
		})
	}
}

func TestResultFinalizer_Finalize(t *testing.T) {
	d, err := NewDistribution(items(Fixed(50), nil, nil))
	require.NoError(t, err)

	t.Run("正常结果触发全部效果", func(t *testing.T) {
		player := &recordingPlayer{}
		celebrator := &recordingCelebrator{}
		sink := &recordingSink{}
		gen := &scriptedGenerator{ints: []int{4}}
		f := NewResultFinalizer(sink, celebrator, NewAudioMixer(player, nil, NewSilentLogger()), gen, 5, NewSilentLogger())

		s := stoppedSession(t, d, 1)
		s.IsFake = true
		outcome, err := f.Finalize(context.Background(), s)
		require.NoError(t, err)

		assert.Equal(t, "B", outcome.Name)
		assert.Equal(t, 1, outcome.Index)
		assert.Equal(t, Palette[1], outcome.Color)
		assert.Equal(t, 70, outcome.FontSize)
		assert.False(t, outcome.Error)
		assert.Equal(t, "session-1", outcome.SessionID)
		assert.True(t, s.Finalized())

		assert.Equal(t, []AudioCue{"win4"}, player.plays("win"))
		assert.Equal(t, 1, celebrator.count())
		records := sink.all()
		require.Len(t, records, 1)
		assert.Equal(t, "B", records[0].Winner)
		assert.True(t, records[0].Fake)
		assert.Equal(t, "profile-test", records[0].ProfileID)
	})

	t.Run("重复调用只生效一次", func(t *testing.T) {
		player := &recordingPlayer{}
		celebrator := &recordingCelebrator{}
		sink := &recordingSink{}
		f := NewResultFinalizer(sink, celebrator, NewAudioMixer(player, nil, NewSilentLogger()), &scriptedGenerator{}, 5, NewSilentLogger())

		s := stoppedSession(t, d, 2)
		first, err := f.Finalize(context.Background(), s)
		require.NoError(t, err)
		second, err := f.Finalize(context.Background(), s)
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
		assert.Equal(t, first, second)

		assert.Len(t, player.plays("win"), 1)
		assert.Equal(t, 1, celebrator.count())
		assert.Len(t, sink.all(), 1)
	})

	t.Run("越界索引返回错误结果", func(t *testing.T) {
		celebrator := &recordingCelebrator{}
		sink := &recordingSink{}
		f := NewResultFinalizer(sink, celebrator, nil, &scriptedGenerator{}, 5, NewSilentLogger())

		for _, idx := range []int{-1, 3} {
			outcome, err := f.Finalize(context.Background(), stoppedSession(t, d, idx))
			assert.ErrorIs(t, err, ErrInvalidWinnerIndex)
			assert.True(t, outcome.Error)
			assert.Equal(t, ErrorLabel, outcome.Name)
			assert.Equal(t, -1, outcome.Index)
		}
		assert.Zero(t, celebrator.count())
		assert.Empty(t, sink.all())
	})

	t.Run("nil会话", func(t *testing.T) {
		f := NewResultFinalizer(nil, nil, nil, &scriptedGenerator{}, 5, NewSilentLogger())
		outcome, err := f.Finalize(context.Background(), nil)
		assert.ErrorIs(t, err, ErrInvalidWinnerIndex)
		assert.True(t, outcome.Error)
	})

	t.Run("空名称显示错误标签", func(t *testing.T) {
		list := items(nil, nil)
		list[0].Name = ""
		nd, err := NewDistribution(list)
		require.NoError(t, err)

		sink := &recordingSink{}
		f := NewResultFinalizer(sink, nil, nil, &scriptedGenerator{}, 5, NewSilentLogger())
		outcome, err := f.Finalize(context.Background(), stoppedSession(t, nd, 0))
		require.NoError(t, err)
		assert.Equal(t, ErrorLabel, outcome.Name)
		assert.False(t, outcome.Error)
		assert.Equal(t, "", sink.all()[0].Winner)
	})

	t.Run("持久化失败不影响结果", func(t *testing.T) {
		sink := &recordingSink{err: errors.New("disk full")}
		celebrator := &recordingCelebrator{}
		monitor := NewSpinMonitor()
		f := NewResultFinalizer(sink, celebrator, nil, &scriptedGenerator{}, 5, NewSilentLogger())
		f.SetMonitor(monitor)

		outcome, err := f.Finalize(context.Background(), stoppedSession(t, d, 0))
		require.NoError(t, err)
		assert.Equal(t, "A", outcome.Name)
		assert.Equal(t, 1, celebrator.count())
		assert.Equal(t, int64(1), monitor.GetMetrics().SinkFailures)
	})

	t.Run("庆祝效果panic被吞掉", func(t *testing.T) {
		sink := &recordingSink{}
		f := NewResultFinalizer(sink, panickingCelebrator{}, nil, &scriptedGenerator{}, 5, NewSilentLogger())
		outcome, err := f.Finalize(context.Background(), stoppedSession(t, d, 0))
		require.NoError(t, err)
		assert.Equal(t, "A", outcome.Name)
		assert.Len(t, sink.all(), 1, "sink still runs after the celebrator panics")
	})

	t.Run("上下文已取消不触发效果", func(t *testing.T) {
		player := &recordingPlayer{}
		celebrator := &recordingCelebrator{}
		sink := &recordingSink{}
		f := NewResultFinalizer(sink, celebrator, NewAudioMixer(player, nil, NewSilentLogger()),
			&scriptedGenerator{}, 5, NewSilentLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := stoppedSession(t, d, 0)
		outcome, err := f.Finalize(ctx, s)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, "A", outcome.Name)
		assert.True(t, s.Finalized())
		assert.Zero(t, celebrator.count())
		assert.Empty(t, sink.all())
		assert.Empty(t, player.plays("win"))

		_, err = f.Finalize(context.Background(), s)
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
		assert.Zero(t, celebrator.count())
	})

	t.Run("庆祝期间取消则不再持久化", func(t *testing.T) {
		sink := &recordingSink{}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f := NewResultFinalizer(sink, CelebratorFunc(func(WinnerOutcome) { cancel() }), nil,
			&scriptedGenerator{}, 5, NewSilentLogger())

		_, err := f.Finalize(ctx, stoppedSession(t, d, 0))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, sink.all())
	})
}

type panickingCelebrator struct{}

func (panickingCelebrator) Celebrate(WinnerOutcome) { panic("confetti cannon jammed") }
