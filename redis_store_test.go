package roulette

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDocumentStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("读取已有文档", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisDocumentStore(db, "", NewSilentLogger())

		data, err := EncodeDocument(twoProfileDocument())
		require.NoError(t, err)
		mock.ExpectGet(DocumentKey).SetVal(string(data))

		doc, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, twoProfileDocument(), doc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("键不存在时写入默认文档", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisDocumentStore(db, "roulette:test", NewSilentLogger())

		seed, err := EncodeDocument(DefaultDocument())
		require.NoError(t, err)
		mock.ExpectGet("roulette:test").RedisNil()
		mock.ExpectSetNX("roulette:test", seed, 0).SetVal(true)

		doc, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultDocument(), doc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("损坏的值回退到默认文档", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisDocumentStore(db, "", NewSilentLogger())
		mock.ExpectGet(DocumentKey).SetVal("{broken")

		doc, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultDocument(), doc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("可重试错误后成功", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisDocumentStoreWithRetry(db, "", NewSilentLogger(), 2, time.Millisecond)

		data, err := EncodeDocument(twoProfileDocument())
		require.NoError(t, err)
		mock.ExpectGet(DocumentKey).SetErr(errors.New("dial tcp 127.0.0.1:6379: connection refused"))
		mock.ExpectGet(DocumentKey).SetVal(string(data))

		doc, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "p2", doc.ActiveProfileID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("重试耗尽报告连接失败", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisDocumentStoreWithRetry(db, "", NewSilentLogger(), 1, time.Millisecond)
		refused := errors.New("dial tcp 127.0.0.1:6379: connection refused")
		mock.ExpectGet(DocumentKey).SetErr(refused)
		mock.ExpectGet(DocumentKey).SetErr(refused)

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, ErrStateLoadFailure)
		assert.ErrorIs(t, err, ErrRedisConnectionFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("不可重试错误立即失败", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisDocumentStoreWithRetry(db, "", NewSilentLogger(), 3, time.Millisecond)
		mock.ExpectGet(DocumentKey).SetErr(errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"))

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, ErrStateLoadFailure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisDocumentStore_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("保存", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisDocumentStore(db, "", NewSilentLogger())

		doc := twoProfileDocument()
		data, err := EncodeDocument(doc)
		require.NoError(t, err)
		mock.ExpectSet(DocumentKey, data, 0).SetVal("OK")

		require.NoError(t, store.Save(ctx, doc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("非法文档不写入", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisDocumentStore(db, "", NewSilentLogger())

		assert.ErrorIs(t, store.Save(ctx, &Document{}), ErrDocumentInvalid)
		assert.ErrorIs(t, store.Save(ctx, nil), ErrDocumentInvalid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("写入失败", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		store := NewRedisDocumentStoreWithRetry(db, "", NewSilentLogger(), 0, time.Millisecond)

		doc := DefaultDocument()
		data, err := EncodeDocument(doc)
		require.NoError(t, err)
		mock.ExpectSet(DocumentKey, data, 0).SetErr(errors.New("OOM command not allowed"))

		assert.ErrorIs(t, store.Save(ctx, doc), ErrStateSaveFailure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisResultSink(t *testing.T) {
	ctx := context.Background()
	record := ResultRecord{
		SessionID: "s1",
		ProfileID: "p1",
		Winner:    "A",
		Color:     Palette[0],
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)

	t.Run("推入并裁剪", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		sink := NewRedisResultSink(db, "", 10, NewSilentLogger())

		mock.ExpectLPush(ResultListKey, data).SetVal(1)
		mock.ExpectLTrim(ResultListKey, 0, 9).SetVal("OK")

		require.NoError(t, sink.SaveResult(ctx, record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("裁剪失败不算失败", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		sink := NewRedisResultSink(db, "results", 0, NewSilentLogger())

		mock.ExpectLPush("results", data).SetVal(1)
		mock.ExpectLTrim("results", 0, DefaultResultHistory-1).SetErr(errors.New("READONLY"))

		assert.NoError(t, sink.SaveResult(ctx, record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("推入失败", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		sink := NewRedisResultSink(db, "", 10, NewSilentLogger())
		mock.ExpectLPush(ResultListKey, data).SetErr(errors.New("WRONGTYPE"))

		assert.ErrorIs(t, sink.SaveResult(ctx, record), ErrStateSaveFailure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("读取最近结果", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		sink := NewRedisResultSink(db, "", 10, NewSilentLogger())
		mock.ExpectLRange(ResultListKey, 0, 2).SetVal([]string{string(data), "garbage"})

		records, err := sink.Recent(ctx, 3)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, record, records[0])
		assert.NoError(t, mock.ExpectationsWereMet())

		none, err := sink.Recent(ctx, 0)
		assert.NoError(t, err)
		assert.Nil(t, none)
	})
}
