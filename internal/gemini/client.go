// Package gemini is a minimal client for the Gemini generateContent
// endpoint. It returns raw generated text; parsing belongs to callers.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/metrics"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultModel    = "gemini-1.5-flash"
	DefaultTimeout  = 60 * time.Second
)

// GenerationConfig holds sampling parameters
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// InsightGeneration favours deterministic output for the daily analysis
var InsightGeneration = GenerationConfig{Temperature: 0.3, TopK: 1, TopP: 1, MaxOutputTokens: 2048}

// CreativeGeneration is used for chat replies and project drafts
var CreativeGeneration = GenerationConfig{Temperature: 0.7, TopK: 1, TopP: 1, MaxOutputTokens: 2048}

// Config holds client settings
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// Client sends prompts to the generative text endpoint
type Client struct {
	config     Config
	httpClient *http.Client
	keySource  func() string
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithKeySource reads the credential on every call instead of using
// the static Config.APIKey
func WithKeySource(fn func() string) Option {
	return func(c *Client) {
		c.keySource = fn
	}
}

// NewClient creates a client. Zero config values fall back to defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

var defaultSafety = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

func (c *Client) apiKey() string {
	if c.keySource != nil {
		return strings.TrimSpace(c.keySource())
	}
	return strings.TrimSpace(c.config.APIKey)
}

// Configured reports whether a credential is available
func (c *Client) Configured() bool {
	return c.apiKey() != ""
}

func (c *Client) url(key string) string {
	return fmt.Sprintf("%s/%s:generateContent?key=%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.Model, url.QueryEscape(key))
}

// redactKey masks the credential in transport errors, which quote the
// request URL
func redactKey(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	u, perr := url.Parse(urlErr.URL)
	if perr != nil {
		urlErr.URL = ""
		return err
	}
	if q := u.Query(); q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	urlErr.URL = u.String()
	return err
}

// Generate sends one prompt and returns the generated text unmodified.
// A missing credential fails before any network I/O.
func (c *Client) Generate(ctx context.Context, prompt string, gc GenerationConfig) (string, error) {
	return c.generate(ctx, "generate", prompt, gc, defaultSafety)
}

// GenerateFor is Generate with an operation label for metrics and logs
func (c *Client) GenerateFor(ctx context.Context, operation, prompt string, gc GenerationConfig) (string, error) {
	return c.generate(ctx, operation, prompt, gc, defaultSafety)
}

func (c *Client) generate(ctx context.Context, operation, prompt string, gc GenerationConfig, safety []safetySetting) (string, error) {
	key := c.apiKey()
	if key == "" {
		return "", &ConfigurationError{Reason: "Gemini API key is not configured; run 'devpilot config set-key'"}
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: gc,
		SafetySettings:   safety,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(key), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log := logger.WithFields(logger.F("operation", operation), logger.F("model", c.config.Model))
	log.Debug("Sending generation request", logger.F("promptSize", len(prompt)))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = redactKey(err)
		metrics.RecordAIRequest(operation, "transport_error", time.Since(start))
		log.Error("Generation request failed", logger.Err(err))
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordAIRequest(operation, "transport_error", time.Since(start))
		return "", fmt.Errorf("failed to read response: %w", redactKey(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordAIRequest(operation, "remote_error", time.Since(start))
		msg := http.StatusText(resp.StatusCode)
		var e errorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		log.Error("Generation request rejected", logger.F("status", resp.StatusCode), logger.F("message", msg))
		return "", &RemoteServiceError{StatusCode: resp.StatusCode, Message: msg}
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		metrics.RecordAIRequest(operation, "empty", time.Since(start))
		return "", &EmptyResponseError{Reason: "response body is not valid JSON"}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 ||
		result.Candidates[0].Content.Parts[0].Text == "" {
		metrics.RecordAIRequest(operation, "empty", time.Since(start))
		log.Warn("Generation returned no text")
		return "", &EmptyResponseError{Reason: "no generated text in response"}
	}

	metrics.RecordAIRequest(operation, "success", time.Since(start))
	log.Debug("Generation completed", logger.F("took", time.Since(start)))
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// Ping sends a tiny request and reports whether the credential works
func (c *Client) Ping(ctx context.Context) (bool, error) {
	_, err := c.generate(ctx, "ping", "Hello", GenerationConfig{MaxOutputTokens: 10}, nil)
	if err == nil {
		return true, nil
	}
	if IsConfigurationError(err) {
		return false, err
	}
	var empty *EmptyResponseError
	if errors.As(err, &empty) {
		// 2xx without text still proves the key is accepted
		return true, nil
	}
	return false, err
}
