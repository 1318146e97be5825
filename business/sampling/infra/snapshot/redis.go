// Package snapshot persists pool cache contents in redis so a restart can
// serve cached pools before its first warm refresh completes.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/dex-sampler/business/sampling/infra/poolcache"
	"github.com/fd1az/dex-sampler/internal/apperror"
)

var _ poolcache.Snapshotter = (*RedisStore)(nil)

// RedisStore keeps one JSON document per pool cache.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisStore stores the snapshot of cache name under prefix:name.
func NewRedisStore(client *redis.Client, prefix, name string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    Key(prefix, name),
		now:    time.Now,
	}
}

// Key returns the redis key of a cache's snapshot.
func Key(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}

// Save replaces the snapshot. The key expires with the last entry.
func (s *RedisStore) Save(ctx context.Context, entries []poolcache.Entry) error {
	ttl := expiry(entries, s.now())
	if ttl <= 0 {
		if err := s.client.Del(ctx, s.key).Err(); err != nil {
			return apperror.External(apperror.CodeSnapshotFailed, "delete "+s.key, err)
		}
		return nil
	}

	b, err := json.Marshal(entries)
	if err != nil {
		return apperror.New(apperror.CodeSnapshotFailed, apperror.WithCause(err), apperror.WithContext("encode "+s.key))
	}
	if err := s.client.Set(ctx, s.key, b, ttl).Err(); err != nil {
		return apperror.External(apperror.CodeSnapshotFailed, "set "+s.key, err)
	}
	return nil
}

// Load returns the stored entries, or none if no snapshot exists.
func (s *RedisStore) Load(ctx context.Context) ([]poolcache.Entry, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.External(apperror.CodeSnapshotFailed, "get "+s.key, err)
	}

	var entries []poolcache.Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, apperror.New(apperror.CodeSnapshotFailed, apperror.WithCause(err), apperror.WithContext("decode "+s.key))
	}
	return entries, nil
}

// expiry returns how long until the latest entry expires.
func expiry(entries []poolcache.Entry, now time.Time) time.Duration {
	var latest time.Time
	for _, e := range entries {
		if e.ExpiresAt.After(latest) {
			latest = e.ExpiresAt
		}
	}
	return latest.Sub(now)
}
