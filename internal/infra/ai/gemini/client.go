package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
	"github.com/bryanwahyu/gpolens/internal/infra/ai/prompt"
)

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 8192
)

// Client is an analysis.Oracle backed by the Gemini API.
type Client struct {
	api       *genai.Client
	Model     string
	MaxTokens int
}

// NewClient creates a Gemini oracle for apiKey.
func NewClient(ctx context.Context, apiKey, model string, maxTokens int) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	return NewClientWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model, maxTokens)
}

func NewClientWithConfig(ctx context.Context, cfg *genai.ClientConfig, model string, maxTokens int) (*Client, error) {
	api, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{api: api, Model: model, MaxTokens: maxTokens}, nil
}

func (c *Client) AnalyzeBatch(ctx context.Context, req analysis.BatchRequest) (*analysis.Analysis, error) {
	text, err := c.generate(ctx, prompt.SystemPrompt(), prompt.BatchPrompt(req), "application/json")
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
	text, err := c.generate(ctx, prompt.SummarySystemPrompt, user, "")
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
	text, err := c.generate(ctx, prompt.ScriptSystemPrompt, prompt.ScriptPrompt(req), "")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty script", analysis.ErrOracleFormat)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, system, user, mimeType string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   int32(c.MaxTokens),
		ResponseMIMEType:  mimeType,
	}

	resp, err := c.api.Models.GenerateContent(ctx, c.Model, genai.Text(user), cfg)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", analysis.ErrOracleFormat)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return "", fmt.Errorf("%w: response truncated at %d tokens", analysis.ErrOracleCapacity, c.MaxTokens)
	}
	return resp.Text(), nil
}

// classify maps GenAI errors onto the analysis error kinds.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	code, status, msg := 0, "", ""
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, status, msg = apiErr.Code, apiErr.Status, apiErr.Message
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code, status, msg = apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message
	default:
		return fmt.Errorf("%w: %v", analysis.ErrOracleTransient, err)
	}

	lower := strings.ToLower(msg)
	switch {
	case code == http.StatusRequestEntityTooLarge,
		code == http.StatusBadRequest && strings.Contains(lower, "token"):
		return fmt.Errorf("%w: %s", analysis.ErrOracleCapacity, msg)
	case status == "RESOURCE_EXHAUSTED" && strings.Contains(lower, "quota"):
		return fmt.Errorf("%w: %s", analysis.ErrQuotaExceeded, msg)
	}
	return fmt.Errorf("%w: gemini %d %s: %s", analysis.ErrOracleTransient, code, status, msg)
}
