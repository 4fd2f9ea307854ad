package stability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/adcanvas/ai-router/internal/artifact"
	"github.com/adcanvas/ai-router/internal/provider"
)

// Stability generates images via the v2beta stable-image endpoint and stores
// the PNG through the artifact store.
type Stability struct {
	apiKey  string
	baseURL string
	client  *http.Client
	store   *artifact.Store
}

func New(apiKey string, store *artifact.Store) *Stability {
	return &Stability{
		apiKey:  apiKey,
		baseURL: "https://api.stability.ai",
		client:  http.DefaultClient,
		store:   store,
	}
}

func (s *Stability) Invoke(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if req.Prompt == "" {
		return nil, provider.NewFailure(provider.FailureInvalidResponse, s.Name(), "empty prompt for image generation")
	}

	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "1:1"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"prompt":        req.Prompt,
		"aspect_ratio":  aspect,
		"output_format": "png",
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, provider.WrapFailure(provider.FailureTransient, s.Name(), err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, s.Name(), err)
	}

	url := fmt.Sprintf("%s/v2beta/stable-image/generate/core", s.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, s.Name(), err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	httpReq.Header.Set("Accept", "image/*")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, provider.NewFailure(provider.ClassifyStatus(resp.StatusCode), s.Name(),
			"stability api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, s.Name(), err)
	}
	if len(img) == 0 {
		return nil, provider.NewFailure(provider.FailureInvalidResponse, s.Name(), "stability returned empty image")
	}

	artifactURL, err := s.store.Save("img", "png", img)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, s.Name(), err)
	}

	return &provider.Response{
		Success:  true,
		URL:      artifactURL,
		Provider: s.Name(),
		Model:    "stable-image-core",
		Usage:    int64(len(img)),
	}, nil
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Category() provider.Category { return provider.CategoryImage }

func (s *Stability) Models() []string {
	return []string{"stable-image-core", "stable-image-ultra"}
}
