package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/adcanvas/ai-router/internal/provider"
)

const defaultModel = "mistral-small-latest"

type Mistral struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func New(apiKey string) *Mistral {
	return &Mistral{
		apiKey:  apiKey,
		baseURL: "https://api.mistral.ai/v1",
		client:  http.DefaultClient,
	}
}

func (m *Mistral) Invoke(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureInvalidResponse, m.Name(), err)
	}

	url := fmt.Sprintf("%s/chat/completions", m.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, m.Name(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", m.apiKey))

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, m.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, provider.NewFailure(provider.ClassifyStatus(resp.StatusCode), m.Name(),
			"mistral api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, provider.WrapFailure(provider.FailureInvalidResponse, m.Name(), err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, provider.NewFailure(provider.FailureInvalidResponse, m.Name(), "mistral api returned no content")
	}

	return &provider.Response{
		Success:  true,
		Content:  out.Choices[0].Message.Content,
		Provider: m.Name(),
		Model:    out.Model,
		Usage:    int64(out.Usage.PromptTokens + out.Usage.CompletionTokens),
	}, nil
}

func (m *Mistral) Name() string { return "mistral" }

func (m *Mistral) Category() provider.Category { return provider.CategoryChat }

func (m *Mistral) Models() []string {
	return []string{"mistral-small-latest", "mistral-medium-latest", "open-mistral-7b"}
}
