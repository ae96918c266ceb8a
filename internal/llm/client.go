package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultModel      = "gemini-1.5-pro-latest"
	DefaultAPIVersion = "v1beta"
)

var ErrNoAPIKey = errors.New("GEMINI_API_KEY not set")

// Generator produces text from a prompt, either whole or as a stream.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (Stream, error)
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client wraps the Gemini API client from google.golang.org/genai.
type Client struct {
	model   string
	timeout time.Duration
	models  *genai.Models
	initErr error
}

// NewClient builds the Gemini client. A missing key or a failed setup is
// reported by every call instead of here so the servers can still start.
func NewClient(cfg Config) *Client {
	c := &Client{model: cfg.Model, timeout: cfg.Timeout}
	if c.model == "" {
		c.model = DefaultModel
	}
	if cfg.APIKey == "" {
		c.initErr = ErrNoAPIKey
		return c
	}

	// Streams are bounded by the request context, not a client timeout.
	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: DefaultAPIVersion,
		},
	})
	if err != nil {
		c.initErr = fmt.Errorf("init gemini client: %w", err)
		return c
	}
	c.models = gc.Models
	return c
}

// Generate returns the complete reply for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.initErr != nil {
		return "", c.initErr
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if err := blocked(resp); err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// Stream starts a streamed generation. The caller must Close it.
func (c *Client) Stream(ctx context.Context, prompt string) (Stream, error) {
	if c.initErr != nil {
		return nil, c.initErr
	}
	return newResponseStream(c.models.GenerateContentStream(ctx, c.model, genai.Text(prompt), nil)), nil
}

func blocked(resp *genai.GenerateContentResponse) error {
	if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	return nil
}
