package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"offersync/internal/infra"
	"offersync/internal/providers"
)

const providerName = "gemini"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	ImageModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the Gemini generateContent endpoint for description text
// and image edits.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	imageModel string
	httpClient *http.Client
	logger     *infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	Thought    bool              `json:"thought,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	ResponseMimeType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	imageModel := opts.ImageModel
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		imageModel: imageModel,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Model returns the configured Gemini text model identifier.
func (c *Client) Model() string {
	return c.model
}

// GenerateText returns the concatenated non-thought text of the first candidate.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts providers.TextOptions) (string, error) {
	if c.apiKey == "" {
		return "", &providers.APIError{Provider: providerName, Status: http.StatusUnauthorized, Message: "api key not configured"}
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{Temperature: opts.Temperature},
	}
	if opts.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: opts.System}}}
	}
	if opts.JSON {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.model, payload, &response); err != nil {
		return "", err
	}
	if len(response.Candidates) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	c.logger.Debug().Str("model", c.model).Int("chars", len(text)).Msg("genai: generated text")
	return text, nil
}

// EditImage sends the instruction and images to the image model and returns
// the last non-thought inline image of the response. Thinking models may emit
// draft images marked as thoughts before the final one.
func (c *Client) EditImage(ctx context.Context, instruction string, images []providers.ImageInput) (*providers.ImageOutput, error) {
	if c.apiKey == "" {
		return nil, &providers.APIError{Provider: providerName, Status: http.StatusUnauthorized, Message: "api key not configured"}
	}
	if len(images) == 0 {
		return nil, errors.New("genai: at least one image is required")
	}
	parts := make([]geminiPart, 0, len(images)+1)
	parts = append(parts, geminiPart{Text: instruction})
	for _, img := range images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: img.MIME,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	payload := geminiGenerateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, c.imageModel, payload, &response); err != nil {
		return nil, err
	}
	out, err := lastInlineImage(response)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("model", c.imageModel).Int("bytes", len(out.Data)).Msg("genai: edited image")
	return out, nil
}

func lastInlineImage(response geminiGenerateContentResponse) (*providers.ImageOutput, error) {
	var last *geminiInlineData
	for _, candidate := range response.Candidates {
		for i := range candidate.Content.Parts {
			part := candidate.Content.Parts[i]
			if part.Thought || part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			last = part.InlineData
		}
	}
	if last == nil {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(last.Data)
	if err != nil {
		return nil, fmt.Errorf("decode inline data: %w", err)
	}
	mime := last.MimeType
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return &providers.ImageOutput{MIME: mime, Data: data}, nil
}

func (c *Client) invokeGemini(ctx context.Context, model string, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &providers.APIError{Provider: providerName, Status: resp.StatusCode}
		data, _ := io.ReadAll(resp.Body)
		var decoded geminiErrorResponse
		if err := json.Unmarshal(data, &decoded); err == nil && decoded.Error.Message != "" {
			apiErr.Code = decoded.Error.Status
			apiErr.Message = decoded.Error.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

var (
	_ providers.TextGenerator = (*Client)(nil)
	_ providers.ImageEditor   = (*Client)(nil)
)
