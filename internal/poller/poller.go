// Package poller implements adaptive long-polling for remote generation
// jobs. Render vendors expose no webhooks, so the only way to track a job
// is to poll its status endpoint. Jobs take anywhere from seconds to many
// minutes; a fixed interval either wastes round trips early or detects
// completion late. The poller grows its interval with exponential backoff
// when the vendor reports nothing, and switches to progress-banded
// intervals when progress telemetry is available.
package poller

import (
	"context"
	"log"
	"strings"
	"time"
)

// GenerationStatus is one observed snapshot of a remote generation job.
type GenerationStatus struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// CheckFunc issues a single status request for a remote job. A returned
// error is treated as transient (transport failure, non-2xx status) and
// retried with backoff.
type CheckFunc func(ctx context.Context) (*GenerationStatus, error)

// Terminal status sets, matched case-insensitively.
var (
	successStatuses = map[string]bool{
		"completed": true,
		"complete":  true,
		"done":      true,
		"success":   true,
	}
	failureStatuses = map[string]bool{
		"failed":    true,
		"error":     true,
		"cancelled": true,
		"timeout":   true,
	}
)

// Config holds polling parameters. Zero values fall back to the defaults
// below.
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BackoffFactor   float64
	MaxPollTime     time.Duration
}

const (
	DefaultInitialInterval = 15 * time.Second
	DefaultMaxInterval     = 60 * time.Second
	DefaultBackoffFactor   = 1.2
	DefaultMaxPollTime     = 20 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultInitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.BackoffFactor <= 1 {
		c.BackoffFactor = DefaultBackoffFactor
	}
	if c.MaxPollTime <= 0 {
		c.MaxPollTime = DefaultMaxPollTime
	}
	return c
}

// Poller drives a CheckFunc until the remote job reaches a terminal state
// or the time budget runs out.
type Poller struct {
	cfg Config

	// Injection points for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a poller with the given config, filling in defaults.
func New(cfg Config) *Poller {
	return &Poller{
		cfg:   cfg.withDefaults(),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Wait polls check until the remote job reports a terminal status.
//
// Terminal success returns the final snapshot. Terminal failure returns a
// *RemoteGenerationError and is never retried. Transient check errors are
// retried with exponential backoff. In-progress snapshots pick the next
// interval from progress bands when the vendor reports nonzero progress,
// otherwise from the backoff rule. When the configured MaxPollTime is
// exhausted without a terminal status, Wait returns a *TimeoutError.
func (p *Poller) Wait(ctx context.Context, jobID string, check CheckFunc) (*GenerationStatus, error) {
	start := p.now()
	interval := p.cfg.InitialInterval
	polls := 0

	for p.now().Sub(start) < p.cfg.MaxPollTime {
		polls++
		status, err := check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[poller] job=%s poll #%d failed: %v - retrying in %s", jobID, polls, err, interval)
			if serr := p.sleep(ctx, interval); serr != nil {
				return nil, serr
			}
			interval = p.backoff(interval)
			continue
		}

		st := strings.ToLower(status.Status)
		elapsed := p.now().Sub(start)

		switch {
		case successStatuses[st]:
			log.Printf("[poller] job=%s completed after %s (%d polls)", jobID, elapsed.Round(time.Second), polls)
			return status, nil

		case failureStatuses[st]:
			msg := status.ErrorMessage
			if msg == "" {
				msg = "generation failed with status: " + status.Status
			}
			return nil, &RemoteGenerationError{Status: status.Status, Message: msg}
		}

		next := p.nextInterval(interval, status.Progress)
		log.Printf("[poller] job=%s poll #%d status=%s progress=%d%% elapsed=%s - next poll in %s",
			jobID, polls, st, status.Progress, elapsed.Round(time.Second), next)
		if serr := p.sleep(ctx, next); serr != nil {
			return nil, serr
		}
		interval = next
	}

	return nil, &TimeoutError{Elapsed: p.now().Sub(start), Polls: polls}
}

// nextInterval computes the wait before the next poll. With progress
// telemetry the interval widens as the job nears completion, because jobs
// close to done finish in bursts and early polls are the ones that pay
// off. Without it, plain backoff bounds total request count.
func (p *Poller) nextInterval(current time.Duration, progress int) time.Duration {
	if progress > 0 {
		var next time.Duration
		switch {
		case progress < 30:
			next = p.cfg.InitialInterval
		case progress < 70:
			next = p.cfg.InitialInterval * 3 / 2
		default:
			next = p.cfg.InitialInterval * 2
		}
		return p.clamp(next)
	}
	return p.backoff(current)
}

func (p *Poller) backoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * p.cfg.BackoffFactor)
	return p.clamp(next)
}

// clamp keeps intervals within [InitialInterval, MaxInterval].
func (p *Poller) clamp(d time.Duration) time.Duration {
	if d > p.cfg.MaxInterval {
		return p.cfg.MaxInterval
	}
	if d < p.cfg.InitialInterval {
		return p.cfg.InitialInterval
	}
	return d
}
