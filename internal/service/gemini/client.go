package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	applogger "FinSight/pkg/logger"
)

const (
	defaultTemperature     = float32(0.3)
	defaultMaxOutputTokens = int32(8192)
	maxAttempts            = 4
)

// ClientOption configures Client.
type ClientOption func(*Client)

// Client wraps the genai SDK behind the TextGenerator contract: callers get
// text back on every path, with failures folded into the returned string.
type Client struct {
	genai   *genai.Client
	model   string
	logger  *applogger.Logger
	metrics repository.Metrics

	// sleep, generate and uploadAnalyze are swapped out in tests to avoid
	// real backoff waits and network calls.
	sleep         func(time.Duration)
	call          func(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)
	generate      func(ctx context.Context, operation string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)
	uploadAnalyze func(ctx context.Context, data []byte, query, filename string) (string, error)

	extractor Extractor
	maxChars  int
	pollMax   time.Duration
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, apiKey, model string, opts ...ClientOption) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c := &Client{
		genai:    gc,
		model:    model,
		sleep:    time.Sleep,
		maxChars: 60000,
		pollMax:  2 * time.Minute,
	}
	c.call = c.callModel
	c.generate = c.callWithRetry
	c.uploadAnalyze = c.analyzeViaUpload

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m repository.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithExtractor sets the local text extractor used when a document upload
// fails.
func WithExtractor(e Extractor) ClientOption {
	return func(c *Client) {
		c.extractor = e
	}
}

// WithDocumentLimits sets the extracted-text budget and the upload poll
// deadline.
func WithDocumentLimits(maxChars int, pollMax time.Duration) ClientOption {
	return func(c *Client) {
		if maxChars > 0 {
			c.maxChars = maxChars
		}
		if pollMax > 0 {
			c.pollMax = pollMax
		}
	}
}

// Generate runs a single prompt through the model. Errors are returned as
// text so agent responses stay plain strings end to end.
func (c *Client) Generate(ctx context.Context, prompt string, opts *models.GenerateOptions) string {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(prompt)}},
	}

	text, err := c.generate(ctx, "generate", contents, generationConfig(opts))
	if err != nil {
		if c.logger != nil {
			c.logger.Error("generation failed", applogger.Error(err))
		}
		return fmt.Sprintf("Error generating response: %v", err)
	}
	return text
}

// ChatCompletion replays a short history and generates a reply to the last
// user turn. Same error-as-text contract as Generate.
func (c *Client) ChatCompletion(ctx context.Context, messages []models.ChatMessage) string {
	if len(messages) == 0 {
		return "Error generating response: no messages provided"
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != "model" {
			role = "user"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}

	text, err := c.generate(ctx, "chat", contents, generationConfig(nil))
	if err != nil {
		if c.logger != nil {
			c.logger.Error("chat completion failed", applogger.Error(err))
		}
		return fmt.Sprintf("Error generating response: %v", err)
	}
	return text
}

func (c *Client) callModel(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// callWithRetry retries quota and availability failures with a fixed ladder
// of roughly 2s, 3s, 5s, 9s waits. Other errors fail immediately.
func (c *Client) callWithRetry(ctx context.Context, operation string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		start := time.Now()
		text, err := c.call(ctx, contents, cfg)
		if c.metrics != nil {
			c.metrics.ObserveGenerationLatency(operation, time.Since(start).Seconds())
		}
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return "", err
		}

		// The ladder waits after every failure, the last one included, so
		// the caller's next request is already past the backoff window.
		wait := time.Duration(1<<uint(attempt)+1) * time.Second
		if c.logger != nil {
			c.logger.Warn("model overloaded, retrying",
				applogger.Int("attempt", attempt+1),
				applogger.Duration("wait", wait),
				applogger.Error(err),
			)
		}
		if c.metrics != nil {
			c.metrics.IncRetry("gemini")
		}
		c.sleep(wait)
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", maxAttempts, lastErr)
}

// isRetryable reports whether the error is a quota or availability failure.
func isRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "Resource exhausted") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func generationConfig(opts *models.GenerateOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(defaultTemperature),
		MaxOutputTokens: defaultMaxOutputTokens,
	}
	if opts == nil {
		return cfg
	}
	if opts.Temperature != nil {
		cfg.Temperature = genai.Ptr(*opts.Temperature)
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = opts.MaxOutputTokens
	}
	if opts.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(opts.SystemInstruction)},
		}
	}
	return cfg
}
