package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/babypodcast/api/internal/model"
)

func newJob(id string) *model.Job {
	return &model.Job{
		ID:          id,
		CampaignID:  "campaign-1",
		Status:      model.JobStatusQueued,
		ScenesTotal: 3,
		CreatedAt:   time.Now(),
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.CampaignID != "campaign-1" {
		t.Errorf("expected campaign-1, got %q", got.CampaignID)
	}
	if got.Status != model.JobStatusQueued {
		t.Errorf("expected queued, got %q", got.Status)
	}
}

func TestMemoryStoreCreateDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Create(ctx, newJob("job-1")); err == nil {
		t.Error("expected error on duplicate create")
	}
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := s.Update(ctx, "job-1", func(j *model.Job) error {
		j.Status = model.JobStatusProcessing
		j.Results = append(j.Results, model.SceneResult{SceneIndex: 0, Status: model.SceneStatusSuccess})
		j.ScenesCompleted = 1
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != model.JobStatusProcessing {
		t.Errorf("expected processing, got %q", got.Status)
	}
	if got.ScenesCompleted != 1 || len(got.Results) != 1 {
		t.Errorf("expected one recorded result, got completed=%d results=%d", got.ScenesCompleted, len(got.Results))
	}
}

func TestMemoryStoreUpdateNotFound(t *testing.T) {
	s := NewMemoryStore()

	err := s.Update(context.Background(), "missing", func(j *model.Job) error { return nil })
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdatePropagatesMutateError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sentinel := errors.New("refused")
	err := s.Update(ctx, "job-1", func(j *model.Job) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Delete(ctx, "job-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "job-1"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	job := newJob("job-1")
	job.Results = []model.SceneResult{{SceneIndex: 0, Status: model.SceneStatusSuccess}}
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, _ := s.Get(ctx, "job-1")
	got.Status = model.JobStatusFailed
	got.Results[0].Status = model.SceneStatusFailed

	fresh, _ := s.Get(ctx, "job-1")
	if fresh.Status != model.JobStatusQueued {
		t.Error("mutating a Get result leaked into the store")
	}
	if fresh.Results[0].Status != model.SceneStatusSuccess {
		t.Error("mutating a Get result slice leaked into the store")
	}
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("job-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Update(ctx, "job-1", func(j *model.Job) error {
				j.Results = append(j.Results, model.SceneResult{SceneIndex: i})
				j.ScenesCompleted = len(j.Results)
				return nil
			})
			if err != nil {
				t.Errorf("Update %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Results) != n {
		t.Errorf("expected %d results, got %d", n, len(got.Results))
	}
	if got.ScenesCompleted != n {
		t.Errorf("expected completed count %d, got %d", n, got.ScenesCompleted)
	}

	seen := make(map[int]bool, n)
	for _, r := range got.Results {
		if seen[r.SceneIndex] {
			t.Fatalf("duplicate result for scene %d", r.SceneIndex)
		}
		seen[r.SceneIndex] = true
	}
}
