package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/babypodcast/api/internal/config"
)

// ErrInvalidAPIKey marks a Gemini rejection of the supplied key, so the
// handler can answer 401 instead of a generic vendor error.
var ErrInvalidAPIKey = errors.New("invalid gemini API key")

// Voices assigned to the two podcast hosts.
const (
	geminiVoiceSpeaker1 = "Zephyr"
	geminiVoiceSpeaker2 = "Puck"
)

// GeminiClient renders multi-speaker podcast audio through the Gemini
// TTS API. The dialogue text carries "Speaker 1:"/"Speaker 2:" markers;
// each speaker gets a fixed prebuilt voice. Gemini returns raw PCM, so
// the client wraps it into a WAV container before handing it back.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSpeakerVoice struct {
	Speaker     string `json:"speaker"`
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature        float64  `json:"temperature"`
		ResponseModalities []string `json:"responseModalities"`
		SpeechConfig       struct {
			MultiSpeakerVoiceConfig struct {
				SpeakerVoiceConfigs []geminiSpeakerVoice `json:"speakerVoiceConfigs"`
			} `json:"multiSpeakerVoiceConfig"`
		} `json:"speechConfig"`
	} `json:"generationConfig"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// NewGeminiClient creates a new Gemini TTS client
func NewGeminiClient(cfg *config.GeminiConfig) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// GeneratePodcastAudio synthesizes the dialogue and returns WAV bytes.
// apiKey is the caller-supplied key; pass DefaultAPIKey() to use the
// server's configured key.
func (c *GeminiClient) GeneratePodcastAudio(ctx context.Context, apiKey, text string) ([]byte, error) {
	reqBody := newPodcastRequest(text)
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	log.Printf("[Gemini] POST %s (%d chars of dialogue)", endpoint, len(text))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if isKeyRejection(resp.StatusCode, respBody) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed geminiGenerateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	// Audio may arrive split across parts; stitch the PCM back together.
	var pcm []byte
	mimeType := ""
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			chunk, derr := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if derr != nil {
				return nil, fmt.Errorf("failed to decode audio chunk: %w", derr)
			}
			pcm = append(pcm, chunk...)
			if mimeType == "" {
				mimeType = part.InlineData.MimeType
			}
		}
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("no audio data in gemini response")
	}

	if strings.HasPrefix(mimeType, "audio/wav") {
		return pcm, nil
	}
	bits, rate := parseAudioMIME(mimeType)
	wav := wavFromPCM(pcm, bits, rate)
	log.Printf("[Gemini] rendered %d bytes of audio (%s)", len(wav), mimeType)
	return wav, nil
}

// DefaultAPIKey returns the server-configured key, empty when unset
func (c *GeminiClient) DefaultAPIKey() string {
	return c.apiKey
}

// IsConfigured returns true if the client has a server-side API key
func (c *GeminiClient) IsConfigured() bool {
	return c.apiKey != ""
}

func newPodcastRequest(text string) geminiGenerateRequest {
	var req geminiGenerateRequest
	req.Contents = []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: text}},
	}}
	req.GenerationConfig.Temperature = 1
	req.GenerationConfig.ResponseModalities = []string{"AUDIO"}

	for speaker, voice := range map[string]string{
		"Speaker 1": geminiVoiceSpeaker1,
		"Speaker 2": geminiVoiceSpeaker2,
	} {
		sv := geminiSpeakerVoice{Speaker: speaker}
		sv.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voice
		req.GenerationConfig.SpeechConfig.MultiSpeakerVoiceConfig.SpeakerVoiceConfigs = append(
			req.GenerationConfig.SpeechConfig.MultiSpeakerVoiceConfig.SpeakerVoiceConfigs, sv)
	}
	return req
}

func isKeyRejection(status int, body []byte) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	lower := strings.ToLower(string(body))
	return status == http.StatusBadRequest &&
		(strings.Contains(lower, "api key not valid") || strings.Contains(lower, "invalid_argument"))
}

// parseAudioMIME extracts bits per sample and sample rate from a MIME
// type like "audio/L16;codec=pcm;rate=24000". Unparseable input falls
// back to 16-bit 24kHz, which is what Gemini TTS streams today.
func parseAudioMIME(mimeType string) (bits, rate int) {
	bits, rate = 16, 24000
	for _, param := range strings.Split(mimeType, ";") {
		param = strings.TrimSpace(param)
		if v, ok := strings.CutPrefix(strings.ToLower(param), "rate="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				rate = n
			}
		} else if v, ok := strings.CutPrefix(param, "audio/L"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				bits = n
			}
		}
	}
	return bits, rate
}

// wavFromPCM prepends a RIFF header to mono PCM samples.
func wavFromPCM(pcm []byte, bits, rate int) []byte {
	const numChannels = 1
	bytesPerSample := bits / 8
	blockAlign := numChannels * bytesPerSample
	byteRate := rate * blockAlign
	dataSize := len(pcm)

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(rate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bits))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)
	return buf.Bytes()
}
