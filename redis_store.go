package roulette

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisDocumentStore keeps the whole document as one JSON value under a single key
type RedisDocumentStore struct {
	client redis.Cmdable
	key    string
	retry  *retrier
	logger Logger
}

// NewRedisDocumentStore creates a store; an empty key means DocumentKey
func NewRedisDocumentStore(client redis.Cmdable, key string, logger Logger) *RedisDocumentStore {
	return NewRedisDocumentStoreWithRetry(client, key, logger, DefaultRetryAttempts, DefaultRetryInterval)
}

// NewRedisDocumentStoreWithRetry creates a store with custom retry settings
func NewRedisDocumentStoreWithRetry(
	client redis.Cmdable, key string, logger Logger, retryAttempts int, retryDelay time.Duration,
) *RedisDocumentStore {
	if key == "" {
		key = DocumentKey
	}
	logger = orDefaultLogger(logger)
	return &RedisDocumentStore{
		client: client,
		key:    key,
		retry:  newRetrier(retryAttempts, retryDelay, logger),
		logger: logger,
	}
}

// Load reads the document. A missing key is seeded with the default document; a corrupt value
// is logged and the default document returned.
func (s *RedisDocumentStore) Load(ctx context.Context) (*Document, error) {
	var data []byte
	missing := false

	loadStart := time.Now()
	err := s.retry.execute(ctx, fmt.Sprintf("load[%s]", s.key), func() error {
		var err error
		data, err = s.client.Get(ctx, s.key).Bytes()
		if errors.Is(err, redis.Nil) {
			// key 不存在不是错误, 不重试
			missing = true
			return nil
		}
		return err
	})
	if err != nil {
		s.logger.Error("Failed to load document from Redis: key=%s, load_time=%v, error=%v", s.key, time.Since(loadStart), err)
		return nil, ErrStateLoadFailure.WithDetails(s.key).WithCause(err)
	}

	if missing {
		doc := DefaultDocument()
		encoded, err := EncodeDocument(doc)
		if err != nil {
			return nil, err
		}
		// 并发首启时只有一个写入生效
		err = s.retry.execute(ctx, fmt.Sprintf("seed[%s]", s.key), func() error {
			return s.client.SetNX(ctx, s.key, encoded, 0).Err()
		})
		if err != nil {
			s.logger.Error("Failed to seed default document: key=%s, error=%v", s.key, err)
		} else {
			s.logger.Info("Seeded default document: key=%s", s.key)
		}
		return doc, nil
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		s.logger.Error("Failed to decode document: key=%s, size=%d bytes, using the default document: %v", s.key, len(data), err)
		return DefaultDocument(), nil
	}

	s.logger.Debug("Loaded document: key=%s, size=%d bytes, profiles=%d, load_time=%v",
		s.key, len(data), len(doc.Profiles), time.Since(loadStart))
	return doc, nil
}

// Save validates and stores the document
func (s *RedisDocumentStore) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return ErrDocumentInvalid.WithDetails("nil document")
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	data, err := EncodeDocument(doc)
	if err != nil {
		return err
	}

	err = s.retry.execute(ctx, fmt.Sprintf("save[%s]", s.key), func() error {
		return s.client.Set(ctx, s.key, data, 0).Err()
	})
	if err != nil {
		s.logger.Error("Failed to save document to Redis: key=%s, size=%d bytes, error=%v", s.key, len(data), err)
		return ErrStateSaveFailure.WithDetails(s.key).WithCause(err)
	}

	s.logger.Debug("Saved document: key=%s, size=%d bytes", s.key, len(data))
	return nil
}

// RedisResultSink pushes every result onto a capped list, newest first
type RedisResultSink struct {
	client  redis.Cmdable
	key     string
	history int64
	retry   *retrier
	logger  Logger
}

// NewRedisResultSink creates a sink; empty key and non-positive history fall back to defaults
func NewRedisResultSink(client redis.Cmdable, key string, history int64, logger Logger) *RedisResultSink {
	if key == "" {
		key = ResultListKey
	}
	if history <= 0 {
		history = DefaultResultHistory
	}
	logger = orDefaultLogger(logger)
	return &RedisResultSink{
		client:  client,
		key:     key,
		history: history,
		retry:   newRetrier(DefaultRetryAttempts, DefaultRetryInterval, logger),
		logger:  logger,
	}
}

// SaveResult records the winner and trims the history
func (s *RedisResultSink) SaveResult(ctx context.Context, record ResultRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}

	err = s.retry.execute(ctx, fmt.Sprintf("push[%s]", s.key), func() error {
		return s.client.LPush(ctx, s.key, data).Err()
	})
	if err != nil {
		return ErrStateSaveFailure.WithDetails(s.key).WithCause(err)
	}

	if err := s.client.LTrim(ctx, s.key, 0, s.history-1).Err(); err != nil {
		// 裁剪失败只影响历史长度
		s.logger.Error("Failed to trim result history: key=%s, error=%v", s.key, err)
	}
	return nil
}

// Recent returns up to n records, newest first. Undecodable entries are skipped.
func (s *RedisResultSink) Recent(ctx context.Context, n int64) ([]ResultRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	var raw []string
	err := s.retry.execute(ctx, fmt.Sprintf("range[%s]", s.key), func() error {
		var err error
		raw, err = s.client.LRange(ctx, s.key, 0, n-1).Result()
		return err
	})
	if err != nil {
		return nil, ErrStateLoadFailure.WithDetails(s.key).WithCause(err)
	}

	records := make([]ResultRecord, 0, len(raw))
	for _, item := range raw {
		var r ResultRecord
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			s.logger.Error("Skipping undecodable result entry in %s: %v", s.key, err)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
