package roulette

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// FrameSinkFunc adapts a function to FrameSink
type FrameSinkFunc func(frame Frame)

// DrawFrame calls f(frame)
func (f FrameSinkFunc) DrawFrame(frame Frame) { f(frame) }

// FrameLoop drives an Animator from a ticker and hands every frame to a sink.
// Once Stop returns no further frame is delivered.
type FrameLoop struct {
	animator Animator
	sink     FrameSink
	interval time.Duration
	logger   Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	frames atomic.Int64
}

// NewFrameLoop creates a loop; a non-positive interval means DefaultFrameInterval
func NewFrameLoop(animator Animator, sink FrameSink, interval time.Duration, logger Logger) *FrameLoop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if sink == nil {
		sink = FrameSinkFunc(func(Frame) {})
	}
	return &FrameLoop{
		animator: animator,
		sink:     sink,
		interval: interval,
		logger:   orDefaultLogger(logger),
	}
}

// Start runs the loop in its own goroutine until ctx is cancelled or Stop is called
func (l *FrameLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrSpinInProgress.WithDetails("frame loop already running")
	}
	l.running = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	go l.run(ctx, l.stop, l.done)
	return nil
}

func (l *FrameLoop) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("frame loop stopped: %v", ctx.Err())
			return
		case <-stop:
			return
		case now := <-ticker.C:
			// stop 与 tick 同时就绪时 select 随机选择, 这里再检查一次
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			default:
			}

			dt := now.Sub(last)
			last = now
			l.sink.DrawFrame(l.animator.Advance(dt))
			l.frames.Add(1)
		}
	}
}

// Stop ends the loop and waits for the in-flight frame. It must not be called from the sink.
func (l *FrameLoop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	stop, done := l.stop, l.done
	select {
	case <-stop:
	default:
		close(stop)
	}
	l.mu.Unlock()

	<-done
}

// Running reports whether the loop goroutine is alive
func (l *FrameLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Frames returns how many frames were delivered
func (l *FrameLoop) Frames() int64 { return l.frames.Load() }

// Simulate advances an animator with a fixed synthetic step, delivering every frame to sink
// (may be nil), until done reports true or limit frames were produced. It returns the last frame
// and the number of frames.
func Simulate(a Animator, step time.Duration, limit int, sink FrameSink, done func(Frame) bool) (Frame, int) {
	var frame Frame
	for i := 1; i <= limit; i++ {
		frame = a.Advance(step)
		if sink != nil {
			sink.DrawFrame(frame)
		}
		if done != nil && done(frame) {
			return frame, i
		}
	}
	return frame, limit
}
