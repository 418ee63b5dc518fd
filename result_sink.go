package roulette

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
)

// ResultSinkFunc adapts a function to ResultSink
type ResultSinkFunc func(ctx context.Context, record ResultRecord) error

// SaveResult calls f(ctx, record)
func (f ResultSinkFunc) SaveResult(ctx context.Context, record ResultRecord) error { return f(ctx, record) }

// MultiResultSink hands every record to all sinks and joins their errors
type MultiResultSink []ResultSink

// SaveResult saves to every sink, even after a failure
func (m MultiResultSink) SaveResult(ctx context.Context, record ResultRecord) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.SaveResult(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ================================================================================

// BreakerResultSink 带熔断器的结果持久化, 目标持续失败时快速拒绝
type BreakerResultSink struct {
	sink    ResultSink
	breaker *gobreaker.CircuitBreaker
	logger  Logger
	config  *CircuitBreakerConfig
}

// NewBreakerResultSink 创建带熔断器的结果持久化
func NewBreakerResultSink(sink ResultSink, config *CircuitBreakerConfig, logger Logger) *BreakerResultSink {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	logger = orDefaultLogger(logger)
	if !config.Enabled {
		// 熔断器未启用, 透传
		return &BreakerResultSink{sink: sink, logger: logger, config: config}
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 当请求数达到最小要求且失败率超过阈值时触发熔断
			return counts.Requests >= config.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.OnStateChange {
				logger.Info("Circuit breaker '%s' state changed from %s to %s", name, from, to)
			}
		},
	}

	return &BreakerResultSink{
		sink:    sink,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		config:  config,
	}
}

// SaveResult saves through the breaker
func (b *BreakerResultSink) SaveResult(ctx context.Context, record ResultRecord) error {
	if b.breaker == nil {
		return b.sink.SaveResult(ctx, record)
	}

	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.sink.SaveResult(ctx, record)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return ErrCircuitBreakerOpen.WithDetails("circuit breaker is open, results are being dropped")
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrCircuitBreakerOpen.WithDetails("too many requests, circuit breaker is half-open")
	}
	return err
}

// State 获取熔断器状态
func (b *BreakerResultSink) State() gobreaker.State {
	if b.breaker == nil {
		return gobreaker.StateClosed
	}
	return b.breaker.State()
}

// Counts 获取熔断器计数
func (b *BreakerResultSink) Counts() gobreaker.Counts {
	if b.breaker == nil {
		return gobreaker.Counts{}
	}
	return b.breaker.Counts()
}

// ================================================================================

// AsyncResultSink runs saves on their own goroutines with a timeout so a slow target never
// holds up the frame that finished a spin
type AsyncResultSink struct {
	sink    ResultSink
	timeout time.Duration
	logger  Logger
	onError func(ResultRecord, error)

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewAsyncResultSink wraps sink; a non-positive timeout means DefaultSinkTimeout
func NewAsyncResultSink(sink ResultSink, timeout time.Duration, logger Logger) *AsyncResultSink {
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	return &AsyncResultSink{sink: sink, timeout: timeout, logger: orDefaultLogger(logger)}
}

// OnError registers a callback for failed saves
func (a *AsyncResultSink) OnError(fn func(ResultRecord, error)) { a.onError = fn }

// SaveResult schedules the save and returns immediately
func (a *AsyncResultSink) SaveResult(ctx context.Context, record ResultRecord) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrWheelClosed.WithDetails("result sink closed")
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		// 不继承调用方的取消, 窗口关闭时结果仍然写出
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.sink.SaveResult(saveCtx, record); err != nil {
			a.logger.Error("async save of %q (session %s) failed: %v", record.Winner, record.SessionID, err)
			if a.onError != nil {
				a.onError(record, err)
			}
		}
	}()
	return nil
}

// Close waits for in-flight saves; later saves are refused
func (a *AsyncResultSink) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.wg.Wait()
}

// ================================================================================

// MessagePublisher is the subset of *nats.Conn the NATS sink needs
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// ResultEnvelope is the event published for every result
type ResultEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// ResultEventType is the event_type of result envelopes
const ResultEventType = "roulette.result"

// NATSResultSink publishes a ResultEnvelope per record
type NATSResultSink struct {
	publisher MessagePublisher
	subject   string
	source    string
	logger    Logger
}

// NewNATSResultSink creates a sink; an empty subject means DefaultNATSSubject
func NewNATSResultSink(publisher MessagePublisher, subject string, logger Logger) *NATSResultSink {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSResultSink{publisher: publisher, subject: subject, source: "roulette", logger: orDefaultLogger(logger)}
}

// SaveResult publishes the record
func (n *NATSResultSink) SaveResult(ctx context.Context, record ResultRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	envelope := ResultEnvelope{
		EventID:       uuid.NewString(),
		EventType:     ResultEventType,
		Timestamp:     time.Now().UTC(),
		SourceService: n.source,
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}

	if err := n.publisher.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish result to NATS: %w", err)
	}

	n.logger.Debug("published result %s (event %s) to %s", record.Winner, envelope.EventID, n.subject)
	return nil
}

// ConnectNATS dials the configured server with reconnect handling
func ConnectNATS(config *NATSConfig, logger Logger) (*nats.Conn, error) {
	if config == nil {
		config = DefaultNATSConfig()
	}
	logger = orDefaultLogger(logger)

	opts := []nats.Option{
		nats.Name("roulette"),
		nats.Timeout(config.Timeout),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected with error: %v", err)
			} else {
				logger.Info("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS async error: %v", err)
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("Connected to NATS at %s", config.URL)
	return nc, nil
}
