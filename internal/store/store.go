// Package store holds job state for campaign executions. The orchestrator
// depends only on the JobStore contract, so the backing can move from the
// in-process map to Redis (or a durable store) without touching it.
package store

import (
	"context"
	"errors"

	"github.com/babypodcast/api/internal/model"
)

// ErrJobNotFound is returned when a job id has no record.
var ErrJobNotFound = errors.New("job not found")

// JobStore is the contract the orchestrator and handlers share.
//
// Each job has a single writer (the worker execution that owns it) and any
// number of concurrent readers. Update applies a mutation atomically under
// the store's locking so readers never observe a half-written job.
type JobStore interface {
	Create(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
	Update(ctx context.Context, jobID string, mutate func(*model.Job) error) error
	Delete(ctx context.Context, jobID string) error
}
