package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/babypodcast/api/internal/model"
)

// MemoryStore keeps jobs in a process-local map. This is the volatile
// storage mode: nothing survives a restart. Used when Redis is not
// configured, and by tests.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.Job)}
}

func (s *MemoryStore) Create(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return copyJob(job), nil
}

func (s *MemoryStore) Update(ctx context.Context, jobID string, mutate func(*model.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if err := mutate(job); err != nil {
		return err
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return ErrJobNotFound
	}
	delete(s.jobs, jobID)
	return nil
}

// copyJob returns a deep enough copy that callers cannot race with the
// owning writer through shared slices.
func copyJob(job *model.Job) *model.Job {
	cp := *job
	cp.Results = make([]model.SceneResult, len(job.Results))
	copy(cp.Results, job.Results)
	if job.Error != nil {
		e := *job.Error
		cp.Error = &e
	}
	return &cp
}
