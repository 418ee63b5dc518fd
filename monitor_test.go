package roulette

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinMonitor(t *testing.T) {
	t.Run("初始状态", func(t *testing.T) {
		m := NewSpinMonitor()
		metrics := m.GetMetrics()
		assert.True(t, m.IsEnabled())
		assert.Zero(t, metrics.SpinsStarted)
		assert.Zero(t, metrics.FakeRate())
		assert.Zero(t, metrics.AverageSpinDuration())
		assert.NotZero(t, metrics.StartTime)
	})

	t.Run("记录转盘", func(t *testing.T) {
		m := NewSpinMonitor()
		m.RecordSpinStarted(true)
		m.RecordSpinStarted(false)
		m.RecordSpinIgnored()
		m.RecordSpinRejected()
		m.RecordSpinCompleted(true, 8*time.Second)
		m.RecordSpinCompleted(false, 6*time.Second)
		m.RecordSinkFailure()

		metrics := m.GetMetrics()
		assert.Equal(t, int64(2), metrics.SpinsStarted)
		assert.Equal(t, int64(1), metrics.FakeSpins)
		assert.Equal(t, 0.5, metrics.FakeRate())
		assert.Equal(t, int64(1), metrics.SpinsIgnored)
		assert.Equal(t, int64(1), metrics.SpinsRejected)
		assert.Equal(t, int64(2), metrics.SpinsCompleted)
		assert.Equal(t, int64(1), metrics.FinalizeErrors)
		assert.Equal(t, int64(1), metrics.SinkFailures)
		assert.Equal(t, 7*time.Second, metrics.AverageSpinDuration())
	})

	t.Run("禁用时不记录", func(t *testing.T) {
		m := NewSpinMonitor()
		m.Disable()
		m.RecordSpinStarted(true)
		m.RecordSinkFailure()
		assert.Zero(t, m.GetMetrics().SpinsStarted)
		assert.Zero(t, m.GetMetrics().SinkFailures)

		m.Enable()
		m.RecordSpinStarted(false)
		assert.Equal(t, int64(1), m.GetMetrics().SpinsStarted)
	})

	t.Run("重置", func(t *testing.T) {
		m := NewSpinMonitor()
		m.RecordSpinStarted(true)
		m.Reset()
		assert.Zero(t, m.GetMetrics().SpinsStarted)
		assert.Zero(t, m.GetMetrics().FakeSpins)
	})

	t.Run("并发记录", func(t *testing.T) {
		m := NewSpinMonitor()
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					m.RecordSpinStarted(false)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int64(5000), m.GetMetrics().SpinsStarted)
	})
}
