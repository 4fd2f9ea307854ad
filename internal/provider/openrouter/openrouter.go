package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/adcanvas/ai-router/internal/provider"
)

const defaultModel = "meta-llama/llama-3.1-8b-instruct"

// OpenRouter proxies many upstream chat models behind one OpenAI-compatible
// endpoint; we use it as the second line behind Mistral.
type OpenRouter struct {
	apiKey  string
	baseURL string
	referer string
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

func New(apiKey, referer string) *OpenRouter {
	return &OpenRouter{
		apiKey:  apiKey,
		baseURL: "https://openrouter.ai/api/v1",
		referer: referer,
		client:  http.DefaultClient,
	}
}

func (o *OpenRouter) Invoke(ctx context.Context, req *provider.Request) (*provider.Response, error) {
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
		return nil, provider.WrapFailure(provider.FailureInvalidResponse, o.Name(), err)
	}

	url := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, o.Name(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", o.apiKey))
	if o.referer != "" {
		httpReq.Header.Set("HTTP-Referer", o.referer)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, provider.WrapFailure(provider.FailureTransient, o.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, provider.NewFailure(provider.ClassifyStatus(resp.StatusCode), o.Name(),
			"openrouter api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, provider.WrapFailure(provider.FailureInvalidResponse, o.Name(), err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, provider.NewFailure(provider.FailureInvalidResponse, o.Name(), "openrouter api returned no content")
	}

	return &provider.Response{
		Success:  true,
		Content:  out.Choices[0].Message.Content,
		Provider: o.Name(),
		Model:    out.Model,
		Usage:    int64(out.Usage.PromptTokens + out.Usage.CompletionTokens),
	}, nil
}

func (o *OpenRouter) Name() string { return "openrouter" }

func (o *OpenRouter) Category() provider.Category { return provider.CategoryChat }

func (o *OpenRouter) Models() []string {
	return []string{
		"meta-llama/llama-3.1-8b-instruct",
		"google/gemma-2-9b-it",
		"mistralai/mistral-7b-instruct",
	}
}
