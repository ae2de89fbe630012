// Package openai wraps the OpenAI Responses API with the image_generation
// tool. Multi-turn editing works by threading the previous response id back
// into the next call; that id is the conversation handle the rest of the
// system persists.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storyboard/internal/infra"
)

// ErrNoPanel is returned when the provider answered the request but produced
// no image generation result. Callers log it apart from transport failures.
var ErrNoPanel = errors.New("openai: response contained no image generation result")

// Options controls how the client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a lightweight facade over the Responses API. Calls are blocking,
// multi-second network operations; retry is the caller's decision.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// Panel is a generated image plus the handle required to continue the
// conversation it came from.
type Panel struct {
	Data       []byte
	ResponseID string
}

type responseRequest struct {
	Model              string          `json:"model"`
	Input              []inputMessage  `json:"input"`
	Tools              []toolSelection `json:"tools"`
	PreviousResponseID string          `json:"previous_response_id,omitempty"`
}

type inputMessage struct {
	Role    string      `json:"role"`
	Content []inputPart `json:"content"`
}

type inputPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type toolSelection struct {
	Type string `json:"type"`
}

type responsePayload struct {
	ID     string       `json:"id"`
	Output []outputItem `json:"output"`
}

type outputItem struct {
	Type   string `json:"type"`
	Result string `json:"result,omitempty"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message,omitempty"`
		Type    string `json:"type,omitempty"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults. Callers may provide a nil
// HTTP client; a reusable one with a generation-sized timeout is created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai: api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	model := opts.Model
	if model == "" {
		model = "gpt-4.1"
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
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// CreatePanel sends a fresh multimodal generation request: the refinement
// prompt, the padded sketch and the content mask.
func (c *Client) CreatePanel(ctx context.Context, prompt string, sketchPNG, maskPNG []byte) (*Panel, error) {
	payload := responseRequest{
		Model: c.model,
		Input: []inputMessage{{
			Role: "user",
			Content: []inputPart{
				{Type: "input_text", Text: prompt},
				{Type: "input_image", ImageURL: dataURL(sketchPNG)},
				{Type: "input_image", ImageURL: dataURL(maskPNG)},
			},
		}},
		Tools: []toolSelection{{Type: "image_generation"}},
	}
	return c.invoke(ctx, payload)
}

// ContinuePanel requests another turn of an existing generation conversation.
// The provider rejects unknown handles with an API error.
func (c *Client) ContinuePanel(ctx context.Context, prompt, previousResponseID string) (*Panel, error) {
	payload := responseRequest{
		Model: c.model,
		Input: []inputMessage{{
			Role:    "user",
			Content: []inputPart{{Type: "input_text", Text: prompt}},
		}},
		Tools:              []toolSelection{{Type: "image_generation"}},
		PreviousResponseID: previousResponseID,
	}
	return c.invoke(ctx, payload)
}

func (c *Client) invoke(ctx context.Context, payload responseRequest) (*Panel, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("openai status %d", resp.StatusCode)
	}

	var parsed responsePayload
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}

	for _, item := range parsed.Output {
		if item.Type != "image_generation_call" || item.Result == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(item.Result)
		if err != nil {
			return nil, fmt.Errorf("decode generated image: %w", err)
		}
		c.logger.Debug().
			Str("response_id", parsed.ID).
			Str("model", c.model).
			Int("bytes", len(data)).
			Dur("elapsed", time.Since(start)).
			Msg("openai: generated panel")
		return &Panel{Data: data, ResponseID: parsed.ID}, nil
	}

	return nil, ErrNoPanel
}

func dataURL(pngBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}
