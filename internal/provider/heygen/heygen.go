package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adcanvas/ai-router/internal/artifact"
	"github.com/adcanvas/ai-router/internal/provider"
)

const (
	defaultAvatar     = "Daisy-inskirt-20220818"
	defaultVoiceID    = "2d5b0e6cf36f460aa7fc47e3eee4ba54"
	defaultPollEvery  = 3 * time.Second
	defaultMaxPolls   = 60
	defaultDimensionW = 1280
	defaultDimensionH = 720
)

// HeyGen renders avatar videos. Generation is asynchronous on the vendor
// side: we submit a job, poll its status with a bounded loop, then download
// the finished MP4 into the artifact store.
type HeyGen struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	store     *artifact.Store
	pollEvery time.Duration
	maxPolls  int
}

type generateRequest struct {
	VideoInputs []videoInput `json:"video_inputs"`
	Dimension   dimension    `json:"dimension"`
}

type videoInput struct {
	Character character `json:"character"`
	Voice     voice     `json:"voice"`
}

type character struct {
	Type     string `json:"type"`
	AvatarID string `json:"avatar_id"`
}

type voice struct {
	Type      string `json:"type"`
	InputText string `json:"input_text"`
	VoiceID   string `json:"voice_id"`
}

type dimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type generateResponse struct {
	Data struct {
		VideoID string `json:"video_id"`
	} `json:"data"`
}

type statusResponse struct {
	Data struct {
		Status   string `json:"status"`
		VideoURL string `json:"video_url"`
		Error    *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"data"`
}

func New(apiKey string, store *artifact.Store) *HeyGen {
	return &HeyGen{
		apiKey:    apiKey,
		baseURL:   "https://api.heygen.com",
		client:    http.DefaultClient,
		store:     store,
		pollEvery: defaultPollEvery,
		maxPolls:  defaultMaxPolls,
	}
}

func (h *HeyGen) Invoke(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if req.Prompt == "" {
		return nil, provider.NewFailure(provider.FailureInvalidResponse, h.Name(), "empty script for video generation")
	}

	videoID, err := h.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	videoURL, err := h.await(ctx, videoID)
	if err != nil {
		return nil, err
	}

	data, err := h.download(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	artifactURL, err := h.store.Save("video", "mp4", data)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, h.Name(), err)
	}

	return &provider.Response{
		Success:  true,
		URL:      artifactURL,
		Provider: h.Name(),
		Model:    "avatar-v2",
		Usage:    int64(len(data)),
	}, nil
}

func (h *HeyGen) submit(ctx context.Context, req *provider.Request) (string, error) {
	voiceID := req.Voice
	if voiceID == "" {
		voiceID = defaultVoiceID
	}

	body, err := json.Marshal(generateRequest{
		VideoInputs: []videoInput{{
			Character: character{Type: "avatar", AvatarID: defaultAvatar},
			Voice:     voice{Type: "text", InputText: req.Prompt, VoiceID: voiceID},
		}},
		Dimension: dimension{Width: defaultDimensionW, Height: defaultDimensionH},
	})
	if err != nil {
		return "", provider.WrapFailure(provider.FailureInvalidResponse, h.Name(), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", h.baseURL+"/v2/video/generate", bytes.NewBuffer(body))
	if err != nil {
		return "", provider.WrapFailure(provider.FailureTransient, h.Name(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", h.apiKey)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", provider.WrapFailure(provider.FailureTransient, h.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", provider.NewFailure(provider.ClassifyStatus(resp.StatusCode), h.Name(),
			"heygen generate error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", provider.WrapFailure(provider.FailureInvalidResponse, h.Name(), err)
	}
	if out.Data.VideoID == "" {
		return "", provider.NewFailure(provider.FailureInvalidResponse, h.Name(), "heygen returned no video_id")
	}
	return out.Data.VideoID, nil
}

// await polls the job status endpoint until the render completes, fails, or
// the attempt budget runs out. It aborts immediately when ctx is cancelled.
func (h *HeyGen) await(ctx context.Context, videoID string) (string, error) {
	for attempt := 0; attempt < h.maxPolls; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(h.pollEvery):
			case <-ctx.Done():
				return "", provider.WrapFailure(provider.FailureTransient, h.Name(), ctx.Err())
			}
		}

		status, err := h.checkStatus(ctx, videoID)
		if err != nil {
			return "", err
		}

		switch status.Data.Status {
		case "completed":
			if status.Data.VideoURL == "" {
				return "", provider.NewFailure(provider.FailureInvalidResponse, h.Name(), "heygen completed without video_url")
			}
			return status.Data.VideoURL, nil
		case "failed":
			msg := "render failed"
			if status.Data.Error != nil {
				msg = status.Data.Error.Message
			}
			return "", provider.NewFailure(provider.FailureInvalidResponse, h.Name(), "heygen: %s", msg)
		}
		// pending / processing / waiting: keep polling
	}
	return "", provider.NewFailure(provider.FailureTransient, h.Name(),
		"heygen render did not complete after %d polls", h.maxPolls)
}

func (h *HeyGen) checkStatus(ctx context.Context, videoID string) (*statusResponse, error) {
	url := fmt.Sprintf("%s/v1/video_status.get?video_id=%s", h.baseURL, videoID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, h.Name(), err)
	}
	httpReq.Header.Set("X-Api-Key", h.apiKey)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, h.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, provider.NewFailure(provider.ClassifyStatus(resp.StatusCode), h.Name(),
			"heygen status error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, provider.WrapFailure(provider.FailureInvalidResponse, h.Name(), err)
	}
	return &out, nil
}

func (h *HeyGen) download(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, h.Name(), err)
	}
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, h.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.NewFailure(provider.FailureTransient, h.Name(),
			"heygen video download error (status %d)", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, h.Name(), err)
	}
	if len(data) == 0 {
		return nil, provider.NewFailure(provider.FailureInvalidResponse, h.Name(), "heygen returned empty video file")
	}
	return data, nil
}

func (h *HeyGen) Name() string { return "heygen" }

func (h *HeyGen) Category() provider.Category { return provider.CategoryVideo }

func (h *HeyGen) Models() []string { return []string{"avatar-v2"} }
