// Package openai talks to any OpenAI-compatible chat completion API
// (OpenAI itself, Gemini's compatibility endpoint, a local Ollama) to
// interpret readings and analyze history.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/ports"
	"github.com/go-playground/validator/v10"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	DefaultModel         = "gpt-4o-mini"
	DefaultAnalysisModel = "gpt-4o"
)

// ErrNoAPIKey is returned by New when no key is given.
var ErrNoAPIKey = errors.New("api key is required")

var validate = validator.New()

// Client implements ports.Interpreter and ports.PatternAnalyzer.
type Client struct {
	client        *openai.Client
	model         string
	analysisModel string
	limiter       *rate.Limiter
	logger        *slog.Logger

	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithModel sets the model used for interpretations.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAnalysisModel sets the model used for pattern analysis.
func WithAnalysisModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.analysisModel = model
		}
	}
}

// WithRateLimit caps outgoing requests per minute. Zero or less disables it.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithHTTPClient overrides the HTTP client (timeouts, proxies, tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &Client{
		model:         DefaultModel,
		analysisModel: DefaultAnalysisModel,
		logger:        logging.NewNop(),
	}
	WithRateLimit(30)(c)
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	c.client = openai.NewClientWithConfig(cfg)
	c.logger.Debug("Initializing OpenAI client", "model", c.model, "base_url", cfg.BaseURL)
	return c, nil
}

// Interpret asks the model for a structured interpretation of the spread.
func (c *Client) Interpret(ctx context.Context, req ports.InterpretationRequest) (domain.Interpretation, error) {
	content, err := c.complete(ctx, c.model, interpretationPrompt(req))
	if err != nil {
		return domain.Interpretation{}, err
	}

	var interp domain.Interpretation
	if err := decode(content, &interp); err != nil {
		return domain.Interpretation{}, err
	}
	interp.Degraded = false
	return interp, nil
}

// Analyze asks the model for recurring patterns across records.
func (c *Client) Analyze(ctx context.Context, records []domain.ReadingRecord) (domain.PatternAnalysis, error) {
	prompt, err := analysisPrompt(records)
	if err != nil {
		return domain.PatternAnalysis{}, err
	}
	content, err := c.complete(ctx, c.analysisModel, prompt)
	if err != nil {
		return domain.PatternAnalysis{}, err
	}

	var analysis domain.PatternAnalysis
	if err := decode(content, &analysis); err != nil {
		return domain.PatternAnalysis{}, err
	}
	if err := validate.Struct(analysis); err != nil {
		return domain.PatternAnalysis{}, fmt.Errorf("%w: %v", domain.ErrMalformedInterpretation, err)
	}
	if analysis.FrequentRunes == nil {
		analysis.FrequentRunes = []domain.FrequentRune{}
	}
	analysis.Degraded = false
	return analysis, nil
}

func (c *Client) complete(ctx context.Context, model, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: persona},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Error("OpenAI API call failed", "model", model, "err", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrMalformedInterpretation)
	}
	c.logger.Debug("Received response", "model", model,
		"finish_reason", resp.Choices[0].FinishReason, "duration", time.Since(start))
	return resp.Choices[0].Message.Content, nil
}

// decode parses a JSON reply, tolerating a markdown code fence around it.
func decode(content string, v any) error {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedInterpretation, err)
	}
	return nil
}
