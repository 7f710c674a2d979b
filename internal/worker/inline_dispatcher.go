package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/babypodcast/api/internal/model"
)

// InlineDispatcher runs campaign jobs on a goroutine inside the API
// process. It is the fallback when Redis is unavailable, and the fixture
// the end-to-end tests run against.
type InlineDispatcher struct {
	worker *CampaignWorker
}

func NewInlineDispatcher(worker *CampaignWorker) *InlineDispatcher {
	return &InlineDispatcher{worker: worker}
}

// Dispatch starts processing jobID in the background. The payload must
// be a marshaled CampaignJobPayload, matching what the asynq path
// carries.
func (d *InlineDispatcher) Dispatch(ctx context.Context, jobID string, payload []byte) error {
	var campaignPayload model.CampaignJobPayload
	if err := json.Unmarshal(payload, &campaignPayload); err != nil {
		return fmt.Errorf("failed to unmarshal campaign payload: %w", err)
	}

	go func() {
		if err := d.worker.Process(context.Background(), jobID, &campaignPayload); err != nil {
			log.Printf("Inline campaign job %s failed: %v", jobID, err)
		}
	}()

	return nil
}
