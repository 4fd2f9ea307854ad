package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/adcanvas/ai-router/internal/artifact"
	"github.com/adcanvas/ai-router/internal/provider"
)

const defaultVoice = "21m00Tcm4TlvDq8ikWAM" // "Rachel", the ElevenLabs default

// ElevenLabs synthesizes speech and stores the MP3 through the artifact
// store, returning a relative URL instead of inline bytes.
type ElevenLabs struct {
	apiKey  string
	baseURL string
	client  *http.Client
	store   *artifact.Store
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func New(apiKey string, store *artifact.Store) *ElevenLabs {
	return &ElevenLabs{
		apiKey:  apiKey,
		baseURL: "https://api.elevenlabs.io/v1",
		client:  http.DefaultClient,
		store:   store,
	}
}

func (e *ElevenLabs) Invoke(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if req.Prompt == "" {
		return nil, provider.NewFailure(provider.FailureInvalidResponse, e.Name(), "empty text for synthesis")
	}

	voice := req.Voice
	if voice == "" {
		voice = defaultVoice
	}
	model := req.Model
	if model == "" {
		model = "eleven_multilingual_v2"
	}

	body, err := json.Marshal(ttsRequest{
		Text:          req.Prompt,
		ModelID:       model,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureInvalidResponse, e.Name(), err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, voice)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, e.Name(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, e.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, provider.NewFailure(provider.ClassifyStatus(resp.StatusCode), e.Name(),
			"elevenlabs api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, e.Name(), err)
	}
	if len(audio) == 0 {
		return nil, provider.NewFailure(provider.FailureInvalidResponse, e.Name(), "elevenlabs returned empty audio")
	}

	artifactURL, err := e.store.Save("tts", "mp3", audio)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, e.Name(), err)
	}

	return &provider.Response{
		Success:  true,
		URL:      artifactURL,
		Provider: e.Name(),
		Model:    model,
		Usage:    int64(len(audio)),
	}, nil
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Category() provider.Category { return provider.CategoryTTS }

func (e *ElevenLabs) Models() []string {
	return []string{"eleven_multilingual_v2", "eleven_turbo_v2_5"}
}
