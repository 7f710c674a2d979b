package poller

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock drives the poller deterministically: now returns the
// simulated time and sleep advances it, recording every interval.
type fakeClock struct {
	current time.Time
	slept   []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.current = c.current.Add(d)
	return nil
}

func newTestPoller(cfg Config) (*Poller, *fakeClock) {
	p := New(cfg)
	clock := newFakeClock()
	p.now = clock.now
	p.sleep = clock.sleep
	return p, clock
}

// scriptedCheck returns the given snapshots in order, then keeps
// returning the last one.
func scriptedCheck(snapshots ...*GenerationStatus) (CheckFunc, *int) {
	calls := new(int)
	return func(ctx context.Context) (*GenerationStatus, error) {
		i := *calls
		if i >= len(snapshots) {
			i = len(snapshots) - 1
		}
		*calls++
		return snapshots[i], nil
	}, calls
}

func TestWaitReturnsOnTerminalSuccess(t *testing.T) {
	for _, status := range []string{"completed", "Complete", "DONE", "success"} {
		t.Run(status, func(t *testing.T) {
			p, _ := newTestPoller(Config{})
			check, calls := scriptedCheck(
				&GenerationStatus{Status: "processing"},
				&GenerationStatus{Status: status},
			)

			result, err := p.Wait(context.Background(), "job-1", check)
			if err != nil {
				t.Fatalf("Wait returned error: %v", err)
			}
			if result.Status != status {
				t.Errorf("expected final status %q, got %q", status, result.Status)
			}
			if *calls != 2 {
				t.Errorf("expected 2 polls, got %d", *calls)
			}
		})
	}
}

func TestWaitReturnsRemoteErrorOnTerminalFailure(t *testing.T) {
	for _, status := range []string{"failed", "Error", "cancelled", "TIMEOUT"} {
		t.Run(status, func(t *testing.T) {
			p, _ := newTestPoller(Config{})
			check, calls := scriptedCheck(
				&GenerationStatus{Status: status, ErrorMessage: "boom"},
			)

			_, err := p.Wait(context.Background(), "job-1", check)
			var rerr *RemoteGenerationError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected RemoteGenerationError, got %v", err)
			}
			if rerr.Message != "boom" {
				t.Errorf("expected vendor message, got %q", rerr.Message)
			}
			if *calls != 1 {
				t.Errorf("failure must not be retried, got %d polls", *calls)
			}
		})
	}
}

func TestWaitFailureWithoutMessageSynthesizesOne(t *testing.T) {
	p, _ := newTestPoller(Config{})
	check, _ := scriptedCheck(&GenerationStatus{Status: "failed"})

	_, err := p.Wait(context.Background(), "job-1", check)
	var rerr *RemoteGenerationError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RemoteGenerationError, got %v", err)
	}
	if rerr.Message == "" {
		t.Error("expected a synthesized error message")
	}
}

func TestWaitBacksOffWithoutProgress(t *testing.T) {
	cfg := Config{
		InitialInterval: 10 * time.Second,
		MaxInterval:     30 * time.Second,
		BackoffFactor:   2.0,
		MaxPollTime:     10 * time.Minute,
	}
	p, clock := newTestPoller(cfg)
	check, _ := scriptedCheck(
		&GenerationStatus{Status: "queued"},
		&GenerationStatus{Status: "queued"},
		&GenerationStatus{Status: "queued"},
		&GenerationStatus{Status: "completed"},
	)

	if _, err := p.Wait(context.Background(), "job-1", check); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	// 10s doubled each poll, clamped at 30s.
	want := []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second}
	if len(clock.slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %d: %v", len(want), len(clock.slept), clock.slept)
	}
	for i, d := range want {
		if clock.slept[i] != d {
			t.Errorf("sleep %d: expected %s, got %s", i, d, clock.slept[i])
		}
	}
}

func TestWaitUsesProgressBands(t *testing.T) {
	cfg := Config{
		InitialInterval: 10 * time.Second,
		MaxInterval:     60 * time.Second,
		BackoffFactor:   1.5,
		MaxPollTime:     10 * time.Minute,
	}
	p, clock := newTestPoller(cfg)
	check, _ := scriptedCheck(
		&GenerationStatus{Status: "processing", Progress: 10},
		&GenerationStatus{Status: "processing", Progress: 50},
		&GenerationStatus{Status: "processing", Progress: 90},
		&GenerationStatus{Status: "completed", Progress: 100},
	)

	if _, err := p.Wait(context.Background(), "job-1", check); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	want := []time.Duration{10 * time.Second, 15 * time.Second, 20 * time.Second}
	if len(clock.slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %d: %v", len(want), len(clock.slept), clock.slept)
	}
	for i, d := range want {
		if clock.slept[i] != d {
			t.Errorf("sleep %d: expected %s, got %s", i, d, clock.slept[i])
		}
	}
}

func TestWaitIntervalsStayWithinBounds(t *testing.T) {
	cfg := Config{
		InitialInterval: 15 * time.Second,
		MaxInterval:     60 * time.Second,
		BackoffFactor:   1.2,
		MaxPollTime:     30 * time.Minute,
	}
	p, clock := newTestPoller(cfg)

	snapshots := make([]*GenerationStatus, 0, 20)
	for i := 0; i < 19; i++ {
		snapshots = append(snapshots, &GenerationStatus{Status: "processing"})
	}
	snapshots = append(snapshots, &GenerationStatus{Status: "completed"})
	check, _ := scriptedCheck(snapshots...)

	if _, err := p.Wait(context.Background(), "job-1", check); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	for i, d := range clock.slept {
		if d < cfg.InitialInterval || d > cfg.MaxInterval {
			t.Errorf("sleep %d: interval %s outside [%s, %s]", i, d, cfg.InitialInterval, cfg.MaxInterval)
		}
	}
}

func TestWaitRetriesTransientErrors(t *testing.T) {
	p, _ := newTestPoller(Config{})

	calls := 0
	check := func(ctx context.Context) (*GenerationStatus, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection reset")
		}
		return &GenerationStatus{Status: "completed"}, nil
	}

	result, err := p.Wait(context.Background(), "job-1", check)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if result.Status != "completed" {
		t.Errorf("expected completed, got %q", result.Status)
	}
	if calls != 3 {
		t.Errorf("expected 3 polls, got %d", calls)
	}
}

func TestWaitTimesOutAfterBudget(t *testing.T) {
	cfg := Config{
		InitialInterval: 30 * time.Second,
		MaxInterval:     30 * time.Second,
		BackoffFactor:   1.2,
		MaxPollTime:     2 * time.Minute,
	}
	p, _ := newTestPoller(cfg)
	check, calls := scriptedCheck(&GenerationStatus{Status: "processing"})

	_, err := p.Wait(context.Background(), "job-1", check)
	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if terr.Elapsed < cfg.MaxPollTime {
		t.Errorf("expected elapsed >= %s, got %s", cfg.MaxPollTime, terr.Elapsed)
	}
	if terr.Polls != *calls {
		t.Errorf("expected %d polls in error, got %d", *calls, terr.Polls)
	}
}

func TestWaitStopsOnContextCancel(t *testing.T) {
	p, _ := newTestPoller(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	check := func(ctx context.Context) (*GenerationStatus, error) {
		cancel()
		return nil, ctx.Err()
	}

	_, err := p.Wait(ctx, "job-1", check)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.InitialInterval != DefaultInitialInterval {
		t.Errorf("expected initial %s, got %s", DefaultInitialInterval, cfg.InitialInterval)
	}
	if cfg.MaxInterval != DefaultMaxInterval {
		t.Errorf("expected max %s, got %s", DefaultMaxInterval, cfg.MaxInterval)
	}
	if cfg.BackoffFactor != DefaultBackoffFactor {
		t.Errorf("expected factor %v, got %v", DefaultBackoffFactor, cfg.BackoffFactor)
	}
	if cfg.MaxPollTime != DefaultMaxPollTime {
		t.Errorf("expected budget %s, got %s", DefaultMaxPollTime, cfg.MaxPollTime)
	}
}
