package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/john-rice/gitbutler/common/logger"
)

// RedisStore keeps each record in one Redis hash under <namespace>:<root>.
// A store replaces the whole hash inside a MULTI/EXEC transaction, so a
// record is never observable half-written.
type RedisStore struct {
	redis     *redis.Client
	namespace string
	log       *logger.Logger
}

// NewRedisStore creates a Redis-backed store scoped to namespace
func NewRedisStore(client *redis.Client, namespace string, log *logger.Logger) *RedisStore {
	return &RedisStore{
		redis:     client,
		namespace: namespace,
		log:       log,
	}
}

func (s *RedisStore) key(root string) string {
	return s.namespace + ":" + root
}

// Reader opens a snapshot of the record at root
func (s *RedisStore) Reader(ctx context.Context, root string) (Reader, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(root)).Result()
	if err != nil {
		s.log.Error("redis HGETALL failed", "key", s.key(root), "error", err)
		return nil, fmt.Errorf("failed to read record %s: %w", root, err)
	}
	if len(fields) == 0 {
		s.log.Debug("redis record not found", "key", s.key(root))
		return nil, ErrNotFound
	}

	snapshot := make(map[string]Content, len(fields))
	for k, v := range fields {
		snapshot[k] = FromBytes([]byte(v))
	}

	s.log.Debug("redis record read", "key", s.key(root), "field_count", len(fields))
	return NewSnapshotReader(snapshot), nil
}

// Writer returns a writer for the record at root
func (s *RedisStore) Writer(root string) Writer {
	return &redisWriter{store: s, root: root}
}

// Delete removes the record at root
func (s *RedisStore) Delete(ctx context.Context, root string) error {
	if err := s.redis.Del(ctx, s.key(root)).Err(); err != nil {
		s.log.Error("redis DEL failed", "key", s.key(root), "error", err)
		return fmt.Errorf("failed to delete record %s: %w", root, err)
	}
	s.log.Debug("redis record deleted", "key", s.key(root))
	return nil
}

// List returns the roots of all records in the namespace
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var roots []string
	prefix := s.namespace + ":"

	iter := s.redis.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		roots = append(roots, iter.Val()[len(prefix):])
	}
	if err := iter.Err(); err != nil {
		s.log.Error("redis SCAN failed", "namespace", s.namespace, "error", err)
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	s.log.Debug("redis records listed", "namespace", s.namespace, "count", len(roots))
	return roots, nil
}

// Close closes the underlying Redis client
func (s *RedisStore) Close() error {
	return s.redis.Close()
}

type redisWriter struct {
	store *RedisStore
	root  string
}

func (w *redisWriter) Write(ctx context.Context, fields map[string]Content) error {
	key := w.store.key(w.root)

	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, string(v.Bytes()))
	}

	// DEL + HSET inside MULTI/EXEC replaces the record atomically
	pipe := w.store.redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, values...)
	if _, err := pipe.Exec(ctx); err != nil {
		w.store.log.Error("redis record write failed", "key", key, "error", err)
		return fmt.Errorf("failed to write record %s: %w", w.root, err)
	}

	w.store.log.Debug("redis record written", "key", key, "field_count", len(fields))
	return nil
}
