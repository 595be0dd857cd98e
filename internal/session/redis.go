package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "sess:"

// RedisStore はセッションを Redis に保存します。期限は Redis の TTL に任せます。
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

// OpenRedis は URL から接続し、疎通を確認します。
func OpenRedis(ctx context.Context, rawURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(rdb), nil
}

// Get はセッションを取得します。
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	data, err := s.rdb.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if record.Expired(s.now()) {
		return nil, nil
	}
	return &record, nil
}

// Set はセッションを保存します。既に期限切れのレコードは削除扱いです。
func (s *RedisStore) Set(ctx context.Context, id string, record *Record) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if record == nil {
		return fmt.Errorf("session record is nil")
	}
	ttl := record.Expires.Sub(s.now())
	if ttl <= 0 {
		return s.Destroy(ctx, id)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKey(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Destroy はセッションを削除します。
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Clear は sess: で始まるキーをすべて削除します。
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("clear sessions: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan sessions: %w", err)
	}
	if len(batch) > 0 {
		if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("clear sessions: %w", err)
		}
	}
	return nil
}

// Close はクライアントを閉じます。
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

var _ Store = (*RedisStore)(nil)
