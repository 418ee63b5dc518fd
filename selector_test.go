package roulette

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestWeightedSelector_Select(t *testing.T) {
	t.Run("空列表", func(t *testing.T) {
		s := NewWeightedSelector(&scriptedGenerator{})
		idx, err := s.Select(nil)
		assert.ErrorIs(t, err, ErrEmptyItems)
		assert.Equal(t, -1, idx)
	})

	t.Run("单项不消耗随机数", func(t *testing.T) {
		gen := &scriptedGenerator{err: errors.New("must not be called")}
		idx, err := NewWeightedSelector(gen).Select([]float64{0})
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})

	t.Run("累积区间", func(t *testing.T) {
		probs := []float64{50, 25, 25}
		cases := []struct {
			f    float64
			want int
		}{
			{0, 0},
			{0.499, 0},
			{0.5, 1},
			{0.74, 1},
			{0.75, 2},
			{0.999999, 2},
		}
		for _, c := range cases {
			s := NewWeightedSelector(&scriptedGenerator{floats: []float64{c.f}})
			idx, err := s.Select(probs)
			require.NoError(t, err)
			assert.Equal(t, c.want, idx, "f=%v", c.f)
		}
	})

	t.Run("总和小于100按实际总和缩放", func(t *testing.T) {
		// [30,30,30]: r = 0.5*90 = 45 falls into the second sector
		s := NewWeightedSelector(&scriptedGenerator{floats: []float64{0.5}})
		idx, err := s.Select([]float64{30, 30, 30})
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("零权重项不会被选中", func(t *testing.T) {
		s := NewWeightedSelector(&scriptedGenerator{floats: []float64{0.5}})
		idx, err := s.Select([]float64{50, 0, 50})
		require.NoError(t, err)
		assert.Equal(t, 2, idx)
	})

	t.Run("浮点漂移回落到最后一项", func(t *testing.T) {
		// 1.0 is outside GenerateFloat's contract; it stands in for accumulated drift
		s := NewWeightedSelector(&scriptedGenerator{floats: []float64{1.0}})
		idx, err := s.Select([]float64{10, 20, 30})
		require.NoError(t, err)
		assert.Equal(t, 2, idx)
	})

	t.Run("随机源失败", func(t *testing.T) {
		s := NewWeightedSelector(&scriptedGenerator{err: errors.New("entropy exhausted")})
		_, err := s.Select([]float64{50, 50})
		assert.ErrorIs(t, err, ErrRandomSourceFailure)
	})
}

func TestWeightedSelector_NonPositiveTotalIsUniform(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 30).Draw(t, "n")
		probs := make([]float64, n)
		for i := range probs {
			probs[i] = -rapid.Float64Range(0, 50).Draw(t, "negative")
		}
		seed := rapid.Uint64().Draw(t, "seed")

		s := NewWeightedSelector(NewSeededRandomGenerator(seed, seed^0x9e3779b97f4a7c15))
		idx, err := s.Select(probs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if idx < 0 || idx >= n {
			t.Fatalf("index %d outside [0, %d)", idx, n)
		}
	})
}

func TestWeightedSelector_IndexAlwaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		probs := rapid.SliceOfN(rapid.Float64Range(0, 100), 1, 40).Draw(t, "probs")
		f := rapid.Float64Range(0, 0.9999999).Draw(t, "f")

		idx, err := NewWeightedSelector(&scriptedGenerator{floats: []float64{f}}).Select(probs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if idx < 0 || idx >= len(probs) {
			t.Fatalf("index %d outside [0, %d)", idx, len(probs))
		}
	})
}

func TestWeightedSelector_Frequencies(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping statistical test in short mode")
	}

	const draws = 100_000
	probs := []float64{25, 25, 25, 25}
	s := NewWeightedSelector(NewSeededRandomGenerator(42, 7))

	counts := make([]int, len(probs))
	for range draws {
		idx, err := s.Select(probs)
		require.NoError(t, err)
		counts[idx]++
	}

	for i, c := range counts {
		ratio := float64(c) / draws
		assert.InDelta(t, 0.25, ratio, 0.01, "item %d drawn %d times", i, c)
	}
}

func TestWeightedSelector_SelectFrom(t *testing.T) {
	s := NewWeightedSelector(&scriptedGenerator{floats: []float64{0.9}})

	_, err := s.SelectFrom(nil)
	assert.ErrorIs(t, err, ErrEmptyItems)

	d, err := NewDistribution(items(Fixed(50), nil, nil))
	require.NoError(t, err)
	idx, err := s.SelectFrom(d)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}
