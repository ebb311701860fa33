package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultModel = "gpt-4o-mini"
	// HardTimeout bounds any single completion regardless of caller deadlines.
	HardTimeout = 60 * time.Second
)

var (
	ErrInvalidRequest = errors.New("invalid completion request")
	ErrEmptyResponse  = errors.New("completion returned no text")
)

type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", ErrInvalidRequest)
	}
	if r.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive", ErrInvalidRequest)
	}
	if r.Temperature < 0 || r.Temperature > 1 {
		return fmt.Errorf("%w: temperature %.2f outside [0, 1]", ErrInvalidRequest, r.Temperature)
	}
	return nil
}

// Client speaks the OpenAI-compatible chat completions wire.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = strings.TrimSpace(model)
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      defaultModel,
		httpClient: &http.Client{Timeout: HardTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete returns the first choice's text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, HardTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiErrorBody
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("textgen returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("textgen returned status %d", resp.StatusCode)
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(payload.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
