package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix     = "user:"
	usernameKeyPrefix = "user:username:"
	emailKeyPrefix    = "user:email:"

	maxTxRetries = 10
)

// RedisStore はユーザーを JSON ドキュメントとして Redis に保存します。
// ユーザー名とメールアドレスは別キーのインデックスで一意性を保証します。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var record User
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	return &record, nil
}

func (s *RedisStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*User, error) {
	var keys []string
	if username = NormalizeUsername(username); username != "" {
		keys = append(keys, usernameKey(username))
	}
	if email != "" {
		keys = append(keys, emailKey(email))
	}

	for _, key := range keys {
		id, err := s.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.FindByID(ctx, id)
	}
	return nil, ErrNotFound
}

func (s *RedisStore) Create(ctx context.Context, in NewUser) (*User, error) {
	record, err := newRecord(in)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	nameKey := usernameKey(record.Username)
	mailKey := emailKey(record.Email)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, nameKey, mailKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(record.ID), payload, 0)
			pipe.Set(ctx, nameKey, record.ID, 0)
			pipe.Set(ctx, mailKey, record.ID, 0)
			return nil
		})
		return err
	}

	if err := s.withRetry(ctx, txf, nameKey, mailKey); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *RedisStore) SetRefreshToken(ctx context.Context, id, token string) (*User, error) {
	return s.updatePartial(ctx, id, func(record *User) {
		record.RefreshToken = token
	})
}

func (s *RedisStore) ClearRefreshToken(ctx context.Context, id string) (*User, error) {
	return s.SetRefreshToken(ctx, id, "")
}

// updatePartial はレコードを読み出して mutate を適用し、WATCH 付きで書き戻します。
func (s *RedisStore) updatePartial(ctx context.Context, id string, mutate func(*User)) (*User, error) {
	key := userKey(id)
	var updated User

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		var record User
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		mutate(&record)
		record.UpdatedAt = now()
		payload, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			updated = record
		}
		return err
	}

	if err := s.withRetry(ctx, txf, key); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *RedisStore) withRetry(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction on %v retried %d times", keys, maxTxRetries)
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func usernameKey(username string) string {
	return usernameKeyPrefix + username
}

func emailKey(email string) string {
	return emailKeyPrefix + email
}
