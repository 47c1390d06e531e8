package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second
)

// ErrNotConfigured is returned by Analyze when no API key was provided.
var ErrNotConfigured = errors.New("analyzer not configured: missing api key")

// OpenAIConfig configures the chat-completions analyzer.
type OpenAIConfig struct {
	APIKey  string        // required; empty means not configured
	BaseURL string        // defaults to the OpenAI API
	Model   string        // defaults to gpt-4o-mini
	Timeout time.Duration // per-request timeout, defaults to 30s
}

// OpenAIAnalyzer implements Analyzer against an OpenAI-compatible
// chat-completions endpoint.
type OpenAIAnalyzer struct {
	config OpenAIConfig
	client *http.Client
}

// chatRequest is the request payload for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response payload from the chat completions API.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIAnalyzer creates an analyzer from cfg, filling defaults for unset
// fields.
func NewOpenAIAnalyzer(cfg OpenAIConfig) *OpenAIAnalyzer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &OpenAIAnalyzer{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

const systemPrompt = `You review fundraising and newsletter content. Given a document as JSON,
respond with ONLY a JSON array of suggestion objects, each with the fields:
id, blockId, type, priority (high|medium|low), title, description, suggestion,
currentText, improvedText, reasoning. Do not wrap the array in markdown.`

// Analyze implements the Analyzer interface. Any transport, status or parse
// problem is returned as an error; the caller decides how to degrade.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, doc Document) ([]Suggestion, error) {
	if a.config.APIKey == "" {
		return nil, ErrNotConfigured
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	payload := chatRequest{
		Model: a.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(docJSON)},
		},
		Temperature: 0.2,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call analyzer: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("analyzer error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("analyzer returned no choices")
	}

	suggestions, err := parseSuggestions(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("suggestions", len(suggestions)).Str("model", a.config.Model).Msg("analysis completed")
	return suggestions, nil
}

// parseSuggestions extracts the suggestion array from a model reply, shaving
// off a markdown code fence if the model added one despite instructions.
func parseSuggestions(content string) ([]Suggestion, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(content), &suggestions); err != nil {
		return nil, fmt.Errorf("unparsable analyzer output: %w", err)
	}
	if len(suggestions) == 0 {
		return nil, errors.New("analyzer produced no suggestions")
	}
	return suggestions, nil
}
