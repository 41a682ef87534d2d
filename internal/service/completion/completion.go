// Package completion provides text completion for agent execution.
//
// Defines a Provider interface and an OpenAI implementation. The interface
// allows swapping completion backends (or stubbing them in tests) without
// changing agent code.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Role constants for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message sent to the completion API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options controls a single completion call.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Completion is the result of a completion call.
type Completion struct {
	Text       string
	TokensUsed int
}

// Provider generates text completions from an ordered message sequence.
type Provider interface {
	Complete(ctx context.Context, messages []Message, opts Options) (Completion, error)
}

// OpenAIProvider generates completions using the OpenAI chat API.
type OpenAIProvider struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// NewOpenAIProvider creates a new OpenAI completion provider.
// baseURL may be overridden for OpenAI-compatible endpoints; empty means
// the public API.
func NewOpenAIProvider(apiKey, defaultModel, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAIProvider{
		apiKey:       apiKey,
		baseURL:      baseURL,
		defaultModel: defaultModel,
		httpClient:   &http.Client{},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the messages to the chat completions endpoint.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts Options) (Completion, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	reqBody, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("completion: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return Completion{}, fmt.Errorf("completion: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("completion: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("completion: read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Completion{}, fmt.Errorf("completion: unmarshal response: %w", err)
	}

	if result.Error != nil {
		return Completion{}, fmt.Errorf("completion: openai error: %s: %s", result.Error.Type, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Completion{}, fmt.Errorf("completion: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	if len(result.Choices) == 0 {
		return Completion{}, fmt.Errorf("completion: response contains no choices")
	}

	return Completion{
		Text:       result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

// StaticProvider returns a fixed reply. Used in development when no API key
// is configured, and as a stub in tests.
type StaticProvider struct {
	Text   string
	Tokens int
	Err    error
}

// Complete returns the canned reply (or error) regardless of input.
func (p *StaticProvider) Complete(_ context.Context, _ []Message, _ Options) (Completion, error) {
	if p.Err != nil {
		return Completion{}, p.Err
	}
	return Completion{Text: p.Text, TokensUsed: p.Tokens}, nil
}
