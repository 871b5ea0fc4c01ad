// Package llm wraps an OpenAI-compatible chat completions endpoint for
// recommendation synthesis. The model is asked for a strict JSON object;
// transient failures and malformed replies are retried with backoff.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/logger"
	"github.com/kailas-cloud/dealscout/internal/metrics"
)

const providerLabel = "llm"

// Client calls a chat model and parses its JSON reply.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	maxRetries  int
	timeout     time.Duration
}

// Config holds the chat model settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Timeout     time.Duration
}

// NewClient creates an OpenAI-compatible chat client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
		maxRetries:  maxRetries,
		timeout:     timeout,
	}
}

// Complete sends system+user prompts and returns the parsed recommendation
// bundle. A reply that is not valid JSON or violates the contract counts as
// a failed attempt and is retried.
func (c *Client) Complete(ctx context.Context, system, user string) (*domain.RecommendationBundle, error) {
	log := logger.FromContext(ctx)

	var bundle *domain.RecommendationBundle

	attempt := 0
	operation := func() error {
		attempt++

		// each attempt gets its own deadline; the retry budget stays intact
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		resp, err := c.client.CreateChatCompletion(attemptCtx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		duration := time.Since(start)

		if err != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(providerLabel, "error").Inc()
			log.Warn("llm request failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			metrics.ProviderRequestsTotal.WithLabelValues(providerLabel, "error").Inc()
			return fmt.Errorf("empty chat completion response")
		}

		metrics.ProviderRequestsTotal.WithLabelValues(providerLabel, "success").Inc()
		metrics.ProviderRequestDuration.WithLabelValues(providerLabel).Observe(duration.Seconds())

		parsed, err := ParseBundle(resp.Choices[0].Message.Content)
		if err != nil {
			log.Warn("llm reply violates contract",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}

		bundle = parsed
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAnalysisFailed, err)
	}

	return bundle, nil
}

// ParseBundle extracts and validates the recommendation JSON from a model
// reply. Code fences and surrounding prose are tolerated.
func ParseBundle(content string) (*domain.RecommendationBundle, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var bundle domain.RecommendationBundle
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}

	if err := validateBundle(&bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func validateBundle(b *domain.RecommendationBundle) error {
	if len(b.TopRecommendations) == 0 {
		return fmt.Errorf("top_3_recommendations is empty")
	}
	if len(b.TopRecommendations) > 3 {
		b.TopRecommendations = b.TopRecommendations[:3]
	}
	for i := range b.TopRecommendations {
		r := &b.TopRecommendations[i]
		if r.ProductID == "" {
			return fmt.Errorf("recommendation %d has no product_id", i)
		}
		if !r.Category.Valid() {
			r.Category = domain.CategoryBestOverall
		}
		if r.Rank == 0 {
			r.Rank = i + 1
		}
	}
	return nil
}

// extractJSON returns the outermost {...} block of the content.
// Models occasionally wrap the object in markdown fences or prose.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
