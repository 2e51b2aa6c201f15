package persist

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/peterbourgon/diskv/v3"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrNoSnapshot is returned by Load when no snapshot has been saved
// yet. The persister treats it as a cold start, not a failure.
var ErrNoSnapshot = errors.New("persist: no snapshot")

// Store is the storage backend for one cache snapshot.
type Store interface {
	Save(ctx context.Context, payload []byte) error
	Load(ctx context.Context) ([]byte, error)
	Clear(ctx context.Context) error
}

const snapshotKey = "querycache-snapshot"

// DiskStore keeps the snapshot in a local diskv-backed directory, the
// default for single-terminal installs.
type DiskStore struct {
	d *diskv.Diskv
}

// NewDiskStore opens (creating if needed) the snapshot directory.
func NewDiskStore(basePath string) *DiskStore {
	return &DiskStore{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 8 * 1024 * 1024,
	})}
}

func (s *DiskStore) Save(_ context.Context, payload []byte) error {
	return s.d.Write(snapshotKey, payload)
}

func (s *DiskStore) Load(_ context.Context) ([]byte, error) {
	payload, err := s.d.Read(snapshotKey)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return payload, nil
}

func (s *DiskStore) Clear(_ context.Context) error {
	err := s.d.Erase(snapshotKey)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// RedisStore keeps the snapshot in Redis, for multi-terminal shops
// where every front desk should warm from the same cache.
type RedisStore struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore builds a Redis-backed snapshot store. The TTL bounds
// how long an orphaned snapshot lingers; zero disables expiry.
func NewRedisStore(rdb *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		key:    keyPrefix + ":" + snapshotKey,
		ttl:    ttl,
		tracer: otel.Tracer("7pet.internal.query.persist"),
	}
}

func (s *RedisStore) Save(ctx context.Context, payload []byte) error {
	ctx, span := s.tracer.Start(ctx, "persist.redis.save")
	defer span.End()
	if err := s.rdb.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "persist.redis.load")
	defer span.End()
	payload, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		span.RecordError(err)
		return nil, err
	}
	return payload, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
