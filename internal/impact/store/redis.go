package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/donare/internal/impact/domain"
)

const (
	redisVersionKey  = "donare:impact:version"
	redisSnapshotKey = "donare:impact:snapshot"
)

// saveIfCurrentScript writes the snapshot only while the version key still
// matches the version it was computed against.
const saveIfCurrentScript = `
local current = redis.call("GET", KEYS[1])
if current == false then
  current = "0"
end
if current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`

// Redis shares the snapshot and its version across replicas.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	save   *redis.Script
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		save:   redis.NewScript(saveIfCurrentScript),
	}
}

func (r *Redis) Version(ctx context.Context) (int64, error) {
	version, err := r.client.Get(ctx, redisVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

func (r *Redis) Load(ctx context.Context) (*domain.Snapshot, error) {
	raw, err := r.client.Get(ctx, redisSnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot domain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *Redis) Save(ctx context.Context, snapshot *domain.Snapshot) (bool, error) {
	if snapshot == nil {
		return false, nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return false, err
	}
	saved, err := r.save.Run(ctx, r.client,
		[]string{redisVersionKey, redisSnapshotKey},
		strconv.FormatInt(snapshot.Version, 10),
		payload,
		r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return saved == 1, nil
}

func (r *Redis) Invalidate(ctx context.Context) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, redisVersionKey)
		pipe.Del(ctx, redisSnapshotKey)
		return nil
	})
	return err
}
