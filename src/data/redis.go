package data

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const orphanThreadsKey = "legalagent:orphan_threads"

// ConnectRedis parses url and pings the server once.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// OrphanThreads is the redis-backed ledger of threads whose deletion failed.
// Members are thread ids scored by the time they were first recorded.
type OrphanThreads struct {
	rdb *redis.Client
	key string
}

func NewOrphanThreads(rdb *redis.Client) *OrphanThreads {
	return &OrphanThreads{rdb: rdb, key: orphanThreadsKey}
}

// Record adds a thread id. Re-recording keeps the original timestamp.
func (o *OrphanThreads) Record(ctx context.Context, threadID string) error {
	return o.rdb.ZAddNX(ctx, o.key, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: threadID,
	}).Err()
}

// Pending returns up to limit thread ids, oldest first.
func (o *OrphanThreads) Pending(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	return o.rdb.ZRange(ctx, o.key, 0, int64(limit-1)).Result()
}

// Resolve removes a thread id once it is gone from the platform.
func (o *OrphanThreads) Resolve(ctx context.Context, threadID string) error {
	return o.rdb.ZRem(ctx, o.key, threadID).Err()
}
