package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/babypodcast/api/internal/model"
)

const (
	jobTTL = 24 * time.Hour

	// Every failed WATCH attempt means another writer committed, so a
	// writer retries at most once per concurrent peer. A job sees the
	// owning worker plus cancel requests; ten attempts is ample headroom.
	maxUpdateRetries = 10
)

// RedisStore persists jobs as JSON blobs under job:{id}. Update runs as
// an optimistic WATCH transaction: the owning worker and the cancel
// handler can write concurrently without losing either write.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func (s *RedisStore) Create(ctx context.Context, job *model.Job) error {
	return s.save(ctx, job)
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Update applies mutate under WATCH so a concurrent writer invalidates
// the transaction instead of being overwritten. On conflict the whole
// read-mutate-write cycle re-runs against the fresh job state.
func (s *RedisStore) Update(ctx context.Context, jobID string, mutate func(*model.Job) error) error {
	key := jobKey(jobID)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return ErrJobNotFound
			}
			return err
		}

		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}
		if err := mutate(&job); err != nil {
			return err
		}

		out, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, jobTTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.redis.Watch(ctx, txn, key)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return fmt.Errorf("job %s update contended after %d attempts", jobID, maxUpdateRetries)
}

func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	n, err := s.redis.Del(ctx, jobKey(jobID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *RedisStore) save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobTTL).Err()
}
