package e2e

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/babypodcast/api/internal/model"
)

const campaignBody = `{
	"campaign_id": "monroviaboy_baby_podcast_001",
	"topic": "Mon Rovîa music reaction",
	"script": [
		{"type": "dialogue", "speaker": "Baby 1", "text": "Yo, I just stumbled upon this artist, Mon Rovîa."},
		{"type": "dialogue", "speaker": "Baby 2", "text": "Mon Rovîa? What's his vibe?"},
		{"type": "media", "media_kind": "music_clip", "description": "Clip of Mon Rovîa's 'Crooked the Road'"},
		{"type": "dialogue", "speaker": "Baby 1", "text": "Soulful folk. Have a listen."}
	],
	"baby_profiles": {
		"Baby 1": {"tone": "warm, inviting", "voice_id": "baby_voice_1"},
		"Baby 2": {"tone": "curious, thoughtful", "voice_id": "baby_voice_2"}
	}
}`

func TestCampaignGenerate(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/campaigns/generate", campaignBody)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	body := parseJSON(t, resp)
	jobID, _ := body["job_id"].(string)
	if jobID == "" {
		t.Fatalf("expected job_id in response, got %v", body)
	}
	if body["status"] != string(model.JobStatusQueued) {
		t.Errorf("expected queued, got %v", body["status"])
	}
	if body["scenes_total"] != float64(4) {
		t.Errorf("expected 4 scenes, got %v", body["scenes_total"])
	}

	job := waitForTerminal(t, ta, jobID, 5*time.Second)
	if job.Status != model.JobStatusCompleted {
		t.Fatalf("expected completed, got %q (%s)", job.Status, job.Message)
	}
	if len(job.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(job.Results))
	}
	for i, r := range job.Results {
		if r.Status != model.SceneStatusSuccess {
			t.Errorf("scene %d: expected success, got %q (%s)", i, r.Status, r.ErrorMessage)
		}
	}
}

func TestCampaignStatusEndpoint(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/campaigns/generate", campaignBody)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	jobID := parseJSON(t, resp)["job_id"].(string)

	waitForTerminal(t, ta, jobID, 5*time.Second)

	resp, err = doRequest(ta.app, http.MethodGet, "/api/campaigns/status/"+jobID, "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["status"] != string(model.JobStatusCompleted) {
		t.Errorf("expected completed, got %v", body["status"])
	}
	results, ok := body["results"].([]interface{})
	if !ok {
		t.Fatalf("expected results array, got %v", body["results"])
	}
	if len(results) != 4 {
		t.Errorf("expected 4 results, got %d", len(results))
	}
}

func TestCampaignStatusNotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/campaigns/status/does-not-exist", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)

	body := parseJSON(t, resp)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", errObj["code"])
	}
}

func TestCampaignGenerateRejectsInvalidBody(t *testing.T) {
	ta := setupApp(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"campaign_id": `},
		{"missing profiles", `{"campaign_id": "c1", "topic": "t", "script": [{"type": "dialogue", "speaker": "Baby 1", "text": "hi"}]}`},
		{"empty script", `{"campaign_id": "c1", "topic": "t", "script": [], "baby_profiles": {"Baby 1": {"tone": "warm", "voice_id": "baby_voice_1"}, "Baby 2": {"tone": "curious", "voice_id": "baby_voice_2"}}}`},
		{"unknown speaker", `{"campaign_id": "c1", "topic": "t", "script": [{"type": "dialogue", "speaker": "Uncle", "text": "hi"}], "baby_profiles": {"Baby 1": {"tone": "warm", "voice_id": "baby_voice_1"}, "Baby 2": {"tone": "curious", "voice_id": "baby_voice_2"}}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := doRequest(ta.app, http.MethodPost, "/api/campaigns/generate", tc.body)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			assertStatus(t, resp, http.StatusBadRequest)

			body := parseJSON(t, resp)
			errObj, ok := body["error"].(map[string]interface{})
			if !ok {
				t.Fatalf("expected error envelope, got %v", body)
			}
			if errObj["code"] != "VALIDATION_ERROR" {
				t.Errorf("expected VALIDATION_ERROR, got %v", errObj["code"])
			}
		})
	}
}

func TestCampaignCancel(t *testing.T) {
	ta := setupApp(t)

	// A long script keeps the job running while we cancel it. The mock
	// scene path is fast, so cancellation may land mid-run or after;
	// both must leave consistent state.
	script := ""
	for i := 0; i < 50; i++ {
		if i > 0 {
			script += ","
		}
		speaker := "Baby 1"
		if i%2 == 1 {
			speaker = "Baby 2"
		}
		script += fmt.Sprintf(`{"type": "dialogue", "speaker": %q, "text": "Line %d."}`, speaker, i)
	}
	body := `{
		"campaign_id": "cancel_campaign",
		"topic": "cancellation",
		"script": [` + script + `],
		"baby_profiles": {
			"Baby 1": {"tone": "warm, inviting", "voice_id": "baby_voice_1"},
			"Baby 2": {"tone": "curious, thoughtful", "voice_id": "baby_voice_2"}
		}
	}`

	resp, err := doRequest(ta.app, http.MethodPost, "/api/campaigns/generate", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	jobID := parseJSON(t, resp)["job_id"].(string)

	resp, err = doRequest(ta.app, http.MethodPost, "/api/campaigns/cancel/"+jobID, "")
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}

	if resp.StatusCode == http.StatusOK {
		result := parseJSON(t, resp)
		if result["status"] != string(model.JobStatusCanceled) {
			t.Errorf("expected canceled, got %v", result["status"])
		}
		job := waitForTerminal(t, ta, jobID, 5*time.Second)
		if job.Status != model.JobStatusCanceled {
			t.Errorf("expected job to stay canceled, got %q", job.Status)
		}
	} else {
		// The job finished before the cancel arrived.
		assertStatus(t, resp, http.StatusBadRequest)
	}
}

func TestCancelUnknownJob(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/campaigns/cancel/does-not-exist", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}
