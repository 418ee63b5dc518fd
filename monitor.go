package roulette

import (
	"sync/atomic"
	"time"
)

// SpinMetrics 转盘运行指标快照
type SpinMetrics struct {
	// 抽选统计
	SpinsStarted   int64 `json:"spins_started"`   // 开始的转盘次数
	FakeSpins      int64 `json:"fake_spins"`      // 假动作次数
	SpinsIgnored   int64 `json:"spins_ignored"`   // 转动中被忽略的请求
	SpinsCompleted int64 `json:"spins_completed"` // 完成的转盘次数
	SpinsRejected  int64 `json:"spins_rejected"`  // 前置条件不满足被拒绝的请求

	// 错误统计
	FinalizeErrors int64 `json:"finalize_errors"` // 结果确定失败次数
	SinkFailures   int64 `json:"sink_failures"`   // 结果持久化失败次数

	// 时间统计
	TotalSpinTime   int64 `json:"total_spin_time"`   // 总动画时间(纳秒)
	AverageSpinTime int64 `json:"average_spin_time"` // 平均动画时间(纳秒)

	// 时间戳
	StartTime      int64 `json:"start_time"`       // 开始时间
	LastUpdateTime int64 `json:"last_update_time"` // 最后更新时间
}

// FakeRate 假动作比例
func (m SpinMetrics) FakeRate() float64 {
	if m.SpinsStarted == 0 {
		return 0.0
	}
	return float64(m.FakeSpins) / float64(m.SpinsStarted)
}

// AverageSpinDuration 平均动画时间
func (m SpinMetrics) AverageSpinDuration() time.Duration { return time.Duration(m.AverageSpinTime) }

// ================================================================================

// SpinMonitor 转盘运行监控器, 全部计数器为原子操作
type SpinMonitor struct {
	enabled atomic.Bool

	spinsStarted   atomic.Int64
	fakeSpins      atomic.Int64
	spinsIgnored   atomic.Int64
	spinsCompleted atomic.Int64
	spinsRejected  atomic.Int64
	finalizeErrors atomic.Int64
	sinkFailures   atomic.Int64
	totalSpinTime  atomic.Int64
	startTime      atomic.Int64
	lastUpdateTime atomic.Int64
}

// NewSpinMonitor 创建新的监控器
func NewSpinMonitor() *SpinMonitor {
	m := &SpinMonitor{}
	m.enabled.Store(true)
	m.Reset()
	return m
}

// Enable 启用监控
func (m *SpinMonitor) Enable() { m.enabled.Store(true) }

// Disable 禁用监控
func (m *SpinMonitor) Disable() { m.enabled.Store(false) }

// IsEnabled 检查是否启用了监控
func (m *SpinMonitor) IsEnabled() bool { return m.enabled.Load() }

func (m *SpinMonitor) touch() { m.lastUpdateTime.Store(time.Now().UnixNano()) }

// RecordSpinStarted 记录开始的转盘
func (m *SpinMonitor) RecordSpinStarted(fake bool) {
	if !m.IsEnabled() {
		return
	}
	m.spinsStarted.Add(1)
	if fake {
		m.fakeSpins.Add(1)
	}
	m.touch()
}

// RecordSpinIgnored 记录转动中被忽略的请求
func (m *SpinMonitor) RecordSpinIgnored() {
	if !m.IsEnabled() {
		return
	}
	m.spinsIgnored.Add(1)
	m.touch()
}

// RecordSpinRejected 记录被拒绝的请求
func (m *SpinMonitor) RecordSpinRejected() {
	if !m.IsEnabled() {
		return
	}
	m.spinsRejected.Add(1)
	m.touch()
}

// RecordSpinCompleted 记录完成的转盘及其动画时长
func (m *SpinMonitor) RecordSpinCompleted(success bool, duration time.Duration) {
	if !m.IsEnabled() {
		return
	}
	m.spinsCompleted.Add(1)
	m.totalSpinTime.Add(int64(duration))
	if !success {
		m.finalizeErrors.Add(1)
	}
	m.touch()
}

// RecordSinkFailure 记录结果持久化失败
func (m *SpinMonitor) RecordSinkFailure() {
	if !m.IsEnabled() {
		return
	}
	m.sinkFailures.Add(1)
	m.touch()
}

// GetMetrics 获取指标快照
func (m *SpinMonitor) GetMetrics() SpinMetrics {
	metrics := SpinMetrics{
		SpinsStarted:   m.spinsStarted.Load(),
		FakeSpins:      m.fakeSpins.Load(),
		SpinsIgnored:   m.spinsIgnored.Load(),
		SpinsCompleted: m.spinsCompleted.Load(),
		SpinsRejected:  m.spinsRejected.Load(),
		FinalizeErrors: m.finalizeErrors.Load(),
		SinkFailures:   m.sinkFailures.Load(),
		TotalSpinTime:  m.totalSpinTime.Load(),
		StartTime:      m.startTime.Load(),
		LastUpdateTime: m.lastUpdateTime.Load(),
	}
	if metrics.SpinsCompleted > 0 {
		metrics.AverageSpinTime = metrics.TotalSpinTime / metrics.SpinsCompleted
	}
	return metrics
}

// Reset 重置指标
func (m *SpinMonitor) Reset() {
	m.spinsStarted.Store(0)
	m.fakeSpins.Store(0)
	m.spinsIgnored.Store(0)
	m.spinsCompleted.Store(0)
	m.spinsRejected.Store(0)
	m.finalizeErrors.Store(0)
	m.sinkFailures.Store(0)
	m.totalSpinTime.Store(0)
	now := time.Now().UnixNano()
	m.startTime.Store(now)
	m.lastUpdateTime.Store(now)
}
