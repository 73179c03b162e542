// Package redis implements the backup medium on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"dressline/internal/domain"
	ebookRepo "dressline/internal/domain/repositories/ebook"

	goredis "github.com/redis/go-redis/v9"
)

// Options configures the Redis backup medium.
type Options struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every key, e.g. "dressline:"
	KeyPrefix string
	// MaxValueBytes rejects larger values before they reach Redis. Zero means unlimited.
	MaxValueBytes int64
}

// KVStore is a BackupStore on Redis string keys.
type KVStore struct {
	client        goredis.UniversalClient
	prefix        string
	maxValueBytes int64
	logger        *slog.Logger
}

var _ ebookRepo.BackupStore = (*KVStore)(nil)

// NewKVStore connects to Redis and verifies the connection.
func NewKVStore(ctx context.Context, opts Options, logger *slog.Logger) (*KVStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		Protocol: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewKVStoreWithClient(client, opts, logger), nil
}

// NewKVStoreWithClient wraps an existing client.
func NewKVStoreWithClient(client goredis.UniversalClient, opts Options, logger *slog.Logger) *KVStore {
	return &KVStore{
		client:        client,
		prefix:        opts.KeyPrefix,
		maxValueBytes: opts.MaxValueBytes,
		logger:        logger,
	}
}

// Close closes the underlying client.
func (s *KVStore) Close() error {
	return s.client.Close()
}

func (s *KVStore) key(k string) string { return s.prefix + k }

// Get returns the value stored under key
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", fmt.Errorf("backup key %q: %w", key, domain.ErrNotFound)
		}
		return "", domain.NewStorageError("get "+key, err)
	}
	return value, nil
}

// Set writes key. Redis out-of-memory replies surface as quota errors.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if s.maxValueBytes > 0 && int64(len(value)) > s.maxValueBytes {
		return &domain.StorageError{
			Op:  "set " + key,
			Err: fmt.Errorf("%w: value of %d bytes exceeds limit of %d", domain.ErrQuotaExceeded, len(value), s.maxValueBytes),
		}
	}

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		if isOOM(err) {
			err = fmt.Errorf("%w: %v", domain.ErrQuotaExceeded, err)
		}
		return domain.NewStorageError("set "+key, err)
	}
	return nil
}

// Delete removes key
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return domain.NewStorageError("delete "+key, err)
	}
	return nil
}

// Keys lists keys starting with prefix, sorted, without the namespace prefix
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(s.prefix+prefix) + "*"

	keys := []string{}
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, domain.NewStorageError("list keys", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func isOOM(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM ")
}

// escapeGlob escapes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
