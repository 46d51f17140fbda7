package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// brpopTimeout bounds each blocking pop so Dequeue can notice context
// cancellation between polls.
const brpopTimeout = 2 * time.Second

// RedisQueue is a durable FIFO on a Redis list. Jobs survive process
// restarts on both sides: producers LPUSH, workers BRPOP.
type RedisQueue struct {
	client *redis.Client
	name   string
}

// NewRedisQueue creates a queue on the named list.
func NewRedisQueue(client *redis.Client, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue encode job %s: %w", job.TaskID, err)
	}
	if err := q.client.LPush(ctx, q.name, raw).Err(); err != nil {
		return fmt.Errorf("queue push job %s: %w", job.TaskID, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}
		res, err := q.client.BRPop(ctx, brpopTimeout, q.name).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return Job{}, fmt.Errorf("queue pop: %w", err)
		}
		// BRPop returns [list, value].
		if len(res) != 2 {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return Job{}, fmt.Errorf("queue decode job: %w", err)
		}
		return job, nil
	}
}

var _ Queue = (*RedisQueue)(nil)
