package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
	"github.com/bryanwahyu/gpolens/internal/infra/ai/prompt"
)

const (
	defaultModel     = "o3-2025-04-16"
	defaultMaxTokens = 8192
)

// Client is an analysis.Oracle backed by the OpenAI chat completions API.
type Client struct {
	api       *openai.Client
	Model     string
	MaxTokens int
}

func NewClient(apiKey, model string, maxTokens int) *Client {
	return NewClientWithConfig(openai.DefaultConfig(apiKey), model, maxTokens)
}

// NewClientWithConfig allows a custom base URL or HTTP client, e.g. for Azure or tests.
func NewClientWithConfig(cfg openai.ClientConfig, model string, maxTokens int) *Client {
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{api: openai.NewClientWithConfig(cfg), Model: model, MaxTokens: maxTokens}
}

func (c *Client) AnalyzeBatch(ctx context.Context, req analysis.BatchRequest) (*analysis.Analysis, error) {
	text, err := c.complete(ctx, prompt.SystemPrompt(), prompt.BatchPrompt(req), true)
	if err != nil {
		return nil, err
	}
	return prompt.DecodeAnalysis(text)
}

func (c *Client) Summarize(ctx context.Context, req analysis.SummaryRequest) (string, error) {
	user, err := prompt.SummaryPrompt(req)
	if err != nil {
		return "", err
	}
	text, err := c.complete(ctx, prompt.SummarySystemPrompt, user, false)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty summary", analysis.ErrOracleFormat)
	}
	return text, nil
}

func (c *Client) SynthesizeScript(ctx context.Context, req analysis.ScriptRequest) (string, error) {
	text, err := c.complete(ctx, prompt.ScriptSystemPrompt, prompt.ScriptPrompt(req), false)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty script", analysis.ErrOracleFormat)
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, system, user string, jsonOut bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if jsonOut {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = c.MaxTokens
	} else {
		req.MaxTokens = c.MaxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", analysis.ErrOracleFormat)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return "", fmt.Errorf("%w: completion truncated at %d tokens", analysis.ErrOracleCapacity, c.MaxTokens)
	}
	return choice.Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify maps go-openai errors onto the analysis error kinds.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := fmt.Sprint(apiErr.Code)
		switch {
		case code == "context_length_exceeded",
			apiErr.HTTPStatusCode == http.StatusRequestEntityTooLarge,
			strings.Contains(apiErr.Message, "maximum context length"):
			return fmt.Errorf("%w: %s", analysis.ErrOracleCapacity, apiErr.Message)
		case code == "insufficient_quota":
			return fmt.Errorf("%w: %s", analysis.ErrQuotaExceeded, apiErr.Message)
		}
		return fmt.Errorf("%w: openai %d: %s", analysis.ErrOracleTransient, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusRequestEntityTooLarge {
		return fmt.Errorf("%w: %v", analysis.ErrOracleCapacity, err)
	}
	return fmt.Errorf("%w: %v", analysis.ErrOracleTransient, err)
}
