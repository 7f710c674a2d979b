package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/babypodcast/api/internal/model"
)

// newTestRedisStore connects to the Redis named by REDIS_ADDR (default
// localhost:6379) and skips the test when none is reachable.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: Redis not reachable at %s: %v", addr, err)
	}

	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client)
}

func createTestJob(t *testing.T, s *RedisStore, jobID string) {
	t.Helper()
	ctx := context.Background()
	if err := s.Create(ctx, newJob(jobID)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Delete(context.Background(), jobID) })
}

func TestRedisStoreCreateGetDelete(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	jobID := fmt.Sprintf("test-job-%d", time.Now().UnixNano())

	createTestJob(t, s, jobID)

	got, err := s.Get(ctx, jobID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.CampaignID != "campaign-1" {
		t.Errorf("expected campaign-1, got %q", got.CampaignID)
	}

	if err := s.Delete(ctx, jobID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, jobID); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound after delete, got %v", err)
	}
}

func TestRedisStoreUpdateNotFound(t *testing.T) {
	s := newTestRedisStore(t)

	err := s.Update(context.Background(), "missing-job", func(j *model.Job) error { return nil })
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestRedisStoreUpdatePropagatesMutateError(t *testing.T) {
	s := newTestRedisStore(t)
	jobID := fmt.Sprintf("test-job-%d", time.Now().UnixNano())
	createTestJob(t, s, jobID)

	sentinel := errors.New("refused")
	err := s.Update(context.Background(), jobID, func(j *model.Job) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

// A cancel landing between a worker's read and write must survive, and
// no appended result may be dropped. Both writers race the same key, so
// only the optimistic transaction keeps the two writes intact.
func TestRedisStoreUpdateConcurrentCancelAndAppend(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	jobID := fmt.Sprintf("test-job-%d", time.Now().UnixNano())
	createTestJob(t, s, jobID)

	const appends = 8
	var wg sync.WaitGroup
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Update(ctx, jobID, func(j *model.Job) error {
				j.Results = append(j.Results, model.SceneResult{SceneIndex: i, Status: model.SceneStatusSuccess})
				j.ScenesCompleted = len(j.Results)
				return nil
			})
			if err != nil {
				t.Errorf("append %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := s.Update(ctx, jobID, func(j *model.Job) error {
			j.Status = model.JobStatusCanceled
			return nil
		})
		if err != nil {
			t.Errorf("cancel failed: %v", err)
		}
	}()
	wg.Wait()

	got, err := s.Get(ctx, jobID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != model.JobStatusCanceled {
		t.Errorf("cancel was lost: status is %q", got.Status)
	}
	if len(got.Results) != appends {
		t.Errorf("expected %d results, got %d", appends, len(got.Results))
	}
	if got.ScenesCompleted != appends {
		t.Errorf("expected completed count %d, got %d", appends, got.ScenesCompleted)
	}

	seen := make(map[int]bool, appends)
	for _, r := range got.Results {
		if seen[r.SceneIndex] {
			t.Fatalf("duplicate result for scene %d", r.SceneIndex)
		}
		seen[r.SceneIndex] = true
	}
}
