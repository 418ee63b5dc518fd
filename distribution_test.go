package roulette

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLayout_Gapless(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		probs := rapid.SliceOfN(rapid.Float64Range(0, 100), 1, 50).Draw(t, "probs")
		arcs := Layout(probs)

		if arcs[0].Start != PointerAngle {
			t.Fatalf("first arc starts at %v, want %v", arcs[0].Start, PointerAngle)
		}
		for i := 1; i < len(arcs); i++ {
			if arcs[i].Start != arcs[i-1].End {
				t.Fatalf("arc %d starts at %v, previous ends at %v", i, arcs[i].Start, arcs[i-1].End)
			}
		}
		for i, p := range probs {
			if math.Abs((arcs[i].End-arcs[i].Start)-SectorWidth(p)) > 1e-9 {
				t.Fatalf("arc %d width does not match its probability", i)
			}
		}
	})
}

func TestLayout_FullCircle(t *testing.T) {
	d, err := NewDistribution(items(Fixed(10), nil, nil, Fixed(33.3), nil))
	require.NoError(t, err)

	sectors := d.Sectors()
	require.Len(t, sectors, 5)
	assert.Equal(t, PointerAngle, sectors[0].Start)
	assert.InDelta(t, FullCircle, sectors[4].End-sectors[0].Start, 1e-9)
}

func TestNewDistribution(t *testing.T) {
	t.Run("空列表", func(t *testing.T) {
		_, err := NewDistribution(nil)
		assert.ErrorIs(t, err, ErrEmptyItems)
	})

	t.Run("固定总和超过100", func(t *testing.T) {
		_, err := NewDistribution(items(Fixed(60), Fixed(60)))
		assert.ErrorIs(t, err, ErrFixedTotalExceeded)
	})

	t.Run("NaN", func(t *testing.T) {
		_, err := NewDistribution(items(Fixed(math.NaN()), nil))
		assert.ErrorIs(t, err, ErrInvalidProbability)
	})

	t.Run("负的固定概率", func(t *testing.T) {
		_, err := NewDistribution(items(Fixed(-10), nil))
		assert.ErrorIs(t, err, ErrInvalidProbability)

		_, err = NewDistribution(items(nil, Fixed(-0.5), Fixed(20)))
		assert.ErrorIs(t, err, ErrInvalidProbability)
	})

	t.Run("总和低于100保留空隙", func(t *testing.T) {
		d, err := NewDistribution(items(Fixed(30), Fixed(30), Fixed(30)))
		require.NoError(t, err)
		assert.InDelta(t, 90, d.Total(), 1e-9)
		assert.InDelta(t, 90, d.FixedTotal(), 1e-9)

		last, ok := d.Sector(2)
		require.True(t, ok)
		assert.InDelta(t, PointerAngle+0.9*FullCircle, last.End, 1e-9)

		// the pointer over the uncovered 10% finds no sector
		gapMid := PointerAngle + 0.95*FullCircle
		assert.Equal(t, -1, d.SectorAt(PointerAngle-gapMid))
	})

	t.Run("颜色按位置分配", func(t *testing.T) {
		list := items(nil, nil)
		list[1].Color = "#000000"
		list[1].IsCustomColor = true
		d, err := NewDistribution(list)
		require.NoError(t, err)

		s0, _ := d.Sector(0)
		s1, _ := d.Sector(1)
		assert.Equal(t, Palette[0], s0.Color)
		assert.Equal(t, "#000000", s1.Color)
	})

	t.Run("越界索引", func(t *testing.T) {
		d, err := NewDistribution(items(nil))
		require.NoError(t, err)
		_, ok := d.Sector(1)
		assert.False(t, ok)
		_, ok = d.Sector(-1)
		assert.False(t, ok)
	})

	t.Run("Sectors返回副本", func(t *testing.T) {
		d, err := NewDistribution(items(nil, nil))
		require.NoError(t, err)
		s := d.Sectors()
		s[0].Name = "mutated"
		again, _ := d.Sector(0)
		assert.Equal(t, "A", again.Name)
	})
}

func TestTargetStopAngle(t *testing.T) {
	d, err := NewDistribution(items(nil, nil, nil, nil))
	require.NoError(t, err)

	// quarter sectors: the first one's middle sits at -π/4, so the wheel turns by -π/4
	angle, err := d.TargetStopAngle(0)
	require.NoError(t, err)
	assert.InDelta(t, -math.Pi/4, angle, 1e-12)

	_, err = d.TargetStopAngle(4)
	assert.ErrorIs(t, err, ErrInvalidWinnerIndex)
	_, err = d.TargetStopAngle(-1)
	assert.ErrorIs(t, err, ErrInvalidWinnerIndex)
}

func TestTargetStopAngle_LandsOnWinner(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		probs := rapid.SliceOfN(rapid.Float64Range(1, 100), 1, 20).Draw(t, "weights")
		list := make([]Item, len(probs))
		var sum float64
		for _, p := range probs {
			sum += p
		}
		for i, p := range probs {
			list[i] = Item{Name: "x", Probability: Fixed(p / sum * 100)}
		}
		d, err := NewDistribution(list)
		if err != nil {
			t.Fatalf("distribution: %v", err)
		}

		winner := rapid.IntRange(0, d.Len()-1).Draw(t, "winner")
		turns := rapid.IntRange(0, 12).Draw(t, "turns")

		stop, err := d.TargetStopAngle(winner)
		if err != nil {
			t.Fatalf("stop angle: %v", err)
		}
		if stop >= 0 || stop < -FullCircle-1e-12 {
			t.Fatalf("stop angle %v outside [-2π, 0)", stop)
		}
		if got := d.SectorAt(stop + FullCircle*float64(turns)); got != winner {
			t.Fatalf("pointer over sector %d, want %d", got, winner)
		}
	})
}

func TestFakeOffset(t *testing.T) {
	d, err := NewDistribution(items(Fixed(40), Fixed(30), Fixed(20), Fixed(10)))
	require.NoError(t, err)

	assert.InDelta(t, SectorWidth(30), d.FakeOffset(0, 1), 1e-12)
	assert.InDelta(t, SectorWidth(30)+SectorWidth(20)+SectorWidth(10), d.FakeOffset(0, 3), 1e-12)
	// 回绕到列表开头
	assert.InDelta(t, SectorWidth(40)+SectorWidth(30), d.FakeOffset(3, 2), 1e-12)
	assert.Zero(t, d.FakeOffset(1, 0))
	assert.Zero(t, d.FakeOffset(-1, 2))
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{FullCircle, 0},
		{-math.Pi / 2, 3 * math.Pi / 2},
		{5 * FullCircle, 0},
		{-3*FullCircle + 1, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeAngle(tt.in), 1e-9, "in=%v", tt.in)
	}

	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Float64Range(-1e6, 1e6).Draw(t, "angle")
		n := NormalizeAngle(a)
		if n < 0 || n >= FullCircle {
			t.Fatalf("NormalizeAngle(%v) = %v", a, n)
		}
	})
}

func TestAngularDistance(t *testing.T) {
	assert.InDelta(t, 0, AngularDistance(FullCircle*3, 0), 1e-9)
	assert.InDelta(t, math.Pi/2, AngularDistance(-math.Pi/4, math.Pi/4), 1e-9)
	assert.InDelta(t, 0.2, AngularDistance(0.1, FullCircle-0.1), 1e-9)
}
