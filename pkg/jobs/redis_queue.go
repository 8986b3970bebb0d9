package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jordanlanch/rivalscope/pkg/cache"
)

// ResearchQueueKey is the Redis list holding pending jobs
const ResearchQueueKey = "rivalscope:jobs:research"

// pollInterval bounds each BLPOP so Close and ctx are noticed
const pollInterval = time.Second

// RedisQueue is a Redis list used as a FIFO: RPUSH to enqueue, BLPOP to dequeue
type RedisQueue struct {
	client *cache.Client
	key    string
	closed atomic.Bool
}

// NewRedisQueue creates a queue on the shared cache client
func NewRedisQueue(client *cache.Client) *RedisQueue {
	return &RedisQueue{client: client, key: ResearchQueueKey}
}

var _ Queue = (*RedisQueue)(nil)

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.client.Redis.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		if q.closed.Load() {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := q.client.Redis.BLPop(ctx, pollInterval, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("dequeue job: %w", err)
		}

		// res is [key, value]
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		return &job, nil
	}
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.Redis.LLen(ctx, q.key).Result()
}

// Close stops Dequeue loops. The shared Redis client stays open.
func (q *RedisQueue) Close() error {
	q.closed.Store(true)
	return nil
}
