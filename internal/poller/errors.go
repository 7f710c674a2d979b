package poller

import (
	"fmt"
	"time"
)

// RemoteGenerationError reports that the remote job itself reached a
// terminal failure status. It is not retried.
type RemoteGenerationError struct {
	Status  string
	Message string
}

func (e *RemoteGenerationError) Error() string {
	return fmt.Sprintf("generation failed: %s", e.Message)
}

// TimeoutError reports that polling exhausted its time budget without the
// remote job reaching a terminal status.
type TimeoutError struct {
	Elapsed time.Duration
	Polls   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation polling timed out after %s (%d polls)", e.Elapsed.Round(time.Second), e.Polls)
}
