// Package anthropic calls the Anthropic Messages API to generate review text.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	llmhttp "github.com/kestrelci/reviewbot/internal/adapter/llm/http"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultTimeout   = 120 * time.Second
	defaultMaxTokens = 8192
	apiVersion       = "2023-06-01"

	systemPrompt = "You are a code review assistant. Analyze the code and respond in the JSON format the prompt describes."
)

// Client is an HTTP client for the Anthropic Messages API. It implements
// the review pipeline's ModelClient port.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
	retry     llmhttp.RetryConfig
}

// NewClient creates a client for the given model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   defaultBaseURL,
		maxTokens: defaultMaxTokens,
		client:    &http.Client{Timeout: defaultTimeout},
		retry:     llmhttp.DefaultRetryConfig(),
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetRetryConfig overrides the default retry behavior.
func (c *Client) SetRetryConfig(cfg llmhttp.RetryConfig) {
	c.retry = cfg
}

// Generate sends the prompt to the Messages API and returns the raw
// response text. Parsing the text into a review happens upstream.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := MessagesRequest{
		Model:     c.model,
		Messages:  []Message{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
		System:    systemPrompt,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/v1/messages"

	var bodyBytes []byte
	err = llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if reqErr != nil {
			return &llmhttp.Error{Type: llmhttp.ErrTypeUnknown, Message: reqErr.Error()}
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", apiVersion)

		resp, callErr := c.client.Do(req)
		if callErr != nil {
			return &llmhttp.Error{Type: llmhttp.ErrTypeTimeout, Message: callErr.Error()}
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return &llmhttp.Error{Type: llmhttp.ErrTypeUnknown, Message: readErr.Error()}
		}

		if resp.StatusCode >= 400 {
			return errorFromResponse(resp.StatusCode, body)
		}

		bodyBytes = body
		return nil
	}, c.retry)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var messagesResp MessagesResponse
	if err := json.Unmarshal(bodyBytes, &messagesResp); err != nil {
		return "", fmt.Errorf("anthropic: failed to parse response: %w", err)
	}

	if len(messagesResp.Content) == 0 {
		return "", fmt.Errorf("anthropic: no content in response")
	}

	var textParts []string
	for _, block := range messagesResp.Content {
		if block.Type == "text" {
			textParts = append(textParts, block.Text)
		}
	}

	return strings.Join(textParts, ""), nil
}

// errorFromResponse maps an error status to a typed error, preferring the
// message from the Anthropic error envelope when it parses.
func errorFromResponse(statusCode int, body []byte) error {
	message := fmt.Sprintf("HTTP %d", statusCode)

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	// 529 is Anthropic's overloaded status; treat it like 503.
	if statusCode == 529 {
		return &llmhttp.Error{
			Type:       llmhttp.ErrTypeServiceUnavailable,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
		}
	}

	return llmhttp.FromStatusCode(statusCode, message)
}
