package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/babypodcast/api/internal/client"
	"github.com/babypodcast/api/internal/model"
)

// SceneProcessor dispatches one scene to the synthesis calls it needs.
// It holds no state of its own: every invocation is self-contained, so a
// caller can safely re-run a scene with identical inputs.
//
// A fully rendered dialogue scene chains speech, then portrait, then lip-sync
// video, because the video render needs both the audio and the image as
// inputs. When the image or video adapter is not configured the pipeline
// stops after speech and reports the audio artifact.
type SceneProcessor struct {
	speech  client.SpeechSynthesizer
	image   client.ImageSynthesizer
	video   client.VideoRenderer
	storage client.StorageClient
}

func NewSceneProcessor(speech client.SpeechSynthesizer, image client.ImageSynthesizer, video client.VideoRenderer, storage client.StorageClient) *SceneProcessor {
	return &SceneProcessor{
		speech:  speech,
		image:   image,
		video:   video,
		storage: storage,
	}
}

// Process resolves one scene into its SceneResult. Synthesis failures of
// any stage are captured in the result, never returned: scene failures
// are data, and the campaign moves on to the next scene.
//
// Artifacts are keyed by job id, not campaign id: clients may resubmit
// a campaign under the same identifier, and each run owns its outputs.
func (p *SceneProcessor) Process(ctx context.Context, jobID string, index int, scene model.Scene, profiles map[string]model.Profile) model.SceneResult {
	switch scene.Type {
	case model.SceneTypeDialogue:
		return p.processDialogue(ctx, jobID, index, scene, profiles)
	case model.SceneTypeMedia:
		// Media rendering is deferred: record the placeholder so the
		// result list stays index-complete.
		return model.SceneResult{
			SceneIndex: index,
			SceneType:  model.SceneTypeMedia,
			Status:     model.SceneStatusSuccess,
		}
	default:
		return failedResult(index, scene.Type, fmt.Sprintf("unknown scene type %q", scene.Type), 0)
	}
}

func (p *SceneProcessor) processDialogue(ctx context.Context, jobID string, index int, scene model.Scene, profiles map[string]model.Profile) model.SceneResult {
	profile, ok := profiles[scene.Speaker]
	if !ok {
		return failedResult(index, model.SceneTypeDialogue, fmt.Sprintf("no profile for speaker %q", scene.Speaker), 0)
	}

	voiceID := model.ResolveVoiceID(profile.VoiceID)
	start := time.Now()

	// Development fallback: with no speech vendor configured, stand in a
	// mock artifact so the rest of the lifecycle stays observable.
	if p.speech == nil || !p.speech.IsConfigured() {
		log.Printf("Speech synthesizer not configured, using mock output for scene %d", index)
		return model.SceneResult{
			SceneIndex: index,
			SceneType:  model.SceneTypeDialogue,
			Status:     model.SceneStatusSuccess,
			OutputPath: fmt.Sprintf("mock://audio/%s_scene_%d.mp3", jobID, index),
			DurationMS: time.Since(start).Milliseconds(),
		}
	}

	audioPath, err := p.speech.Synthesize(ctx, &client.SynthesizeRequest{
		Text:       scene.Text,
		VoiceID:    voiceID,
		Tone:       profile.Tone,
		OutputName: fmt.Sprintf("%s_scene_%d_audio.mp3", jobID, index),
	})
	if err != nil {
		return failedResult(index, model.SceneTypeDialogue, fmt.Sprintf("speech synthesis failed: %v", err), time.Since(start).Milliseconds())
	}

	output := audioPath

	if p.image != nil && p.image.IsConfigured() && p.video != nil && p.video.IsConfigured() {
		imagePath, err := p.image.GeneratePortrait(ctx, scene.Speaker, profile)
		if err != nil {
			return failedResult(index, model.SceneTypeDialogue, fmt.Sprintf("image generation failed: %v", err), time.Since(start).Milliseconds())
		}

		videoPath, err := p.video.CreateLipSyncVideo(ctx, &client.LipSyncRequest{
			AudioPath:  audioPath,
			ImagePath:  imagePath,
			SceneIndex: index,
			Speaker:    scene.Speaker,
			JobID:      jobID,
		})
		if err != nil {
			return failedResult(index, model.SceneTypeDialogue, fmt.Sprintf("video generation failed: %v", err), time.Since(start).Milliseconds())
		}
		output = videoPath

		// Publication is best-effort: a storage failure keeps the local
		// artifact and does not fail the scene.
		if p.storage != nil {
			key := fmt.Sprintf("campaigns/%s/scene_%d.mp4", jobID, index)
			if url, uerr := p.storage.UploadFile(ctx, key, videoPath, "video/mp4"); uerr == nil {
				output = url
			} else {
				log.Printf("Failed to publish scene %d video: %v", index, uerr)
			}
		}
	}

	return model.SceneResult{
		SceneIndex: index,
		SceneType:  model.SceneTypeDialogue,
		Status:     model.SceneStatusSuccess,
		OutputPath: output,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

func failedResult(index int, sceneType model.SceneType, msg string, durationMS int64) model.SceneResult {
	return model.SceneResult{
		SceneIndex:   index,
		SceneType:    sceneType,
		Status:       model.SceneStatusFailed,
		ErrorMessage: msg,
		DurationMS:   durationMS,
	}
}
