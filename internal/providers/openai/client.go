package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"offersync/internal/providers"
)

const providerName = "openai"

const defaultTimeout = 60 * time.Second

const defaultModel = "gpt-4o-mini"

type Options struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
}

// Client is the secondary text provider backed by chat completions.
type Client struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}
}

func (c *Client) Name() string { return providerName }

func (c *Client) GenerateText(ctx context.Context, prompt string, opts providers.TextOptions) (string, error) {
	if c.apiKey == "" {
		return "", &providers.APIError{Provider: providerName, Status: http.StatusUnauthorized, Message: "api key not configured"}
	}
	payload := chatRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
	}
	if opts.System != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: opts.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: prompt})
	if opts.JSON {
		payload.ResponseFormat = &chatFormat{Type: "json_object"}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.organization)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("invoke openai: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", decodeError(resp)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func decodeError(resp *http.Response) error {
	apiErr := &providers.APIError{Provider: providerName, Status: resp.StatusCode}
	data, _ := io.ReadAll(resp.Body)
	var decoded errorResponse
	if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error.Message != "" {
		apiErr.Code = decoded.Error.Code
		if apiErr.Code == "" {
			apiErr.Code = decoded.Error.Type
		}
		apiErr.Message = decoded.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}

var _ providers.TextGenerator = (*Client)(nil)
