package gateway

import (
	"context"
	"strings"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// client implements interfaces.Gateway
type client struct {
	llmClient gollem.LLMClient
	guard     *guard
}

var _ interfaces.Gateway = &client{}

// Option is a functional option for client configuration
type Option func(*client)

// WithGuard replaces the default circuit breaker and rate limit settings
func WithGuard(cfg GuardConfig) Option {
	return func(c *client) {
		c.guard = newGuard(cfg)
	}
}

// New creates a new Gateway backed by the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (interfaces.Gateway, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient: llmClient,
		guard:     newGuard(DefaultGuardConfig()),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Embed converts texts into embedding vectors, one per input, in order
func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	v, err := c.guard.Do(ctx, func() (any, error) {
		return c.llmClient.GenerateEmbedding(ctx, model.EmbeddingDimension, texts)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embeddings")
	}

	embeddings := v.([][]float64)
	if len(embeddings) != len(texts) {
		return nil, goerr.New("embedding count does not match input count",
			goerr.V("want", len(texts)),
			goerr.V("got", len(embeddings)))
	}

	// Convert float64 to float32
	results := make([][]float32, len(embeddings))
	for i, embedding := range embeddings {
		vec := make([]float32, len(embedding))
		for j, value := range embedding {
			vec[j] = float32(value)
		}
		results[i] = vec
	}

	return results, nil
}

// generateJSON runs a single JSON-schema session and returns the raw
// response text for the caller to parse
func (c *client) generateJSON(ctx context.Context, systemPrompt string, schema *gollem.Parameter, userPrompt string) (string, error) {
	v, err := c.guard.Do(ctx, func() (any, error) {
		session, err := c.llmClient.NewSession(ctx,
			gollem.WithSessionContentType(gollem.ContentTypeJSON),
			gollem.WithSessionResponseSchema(schema),
			gollem.WithSessionSystemPrompt(systemPrompt),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create LLM session")
		}

		return session.GenerateContent(ctx, gollem.Text(userPrompt))
	})
	if err != nil {
		return "", err
	}

	resp := v.(*gollem.Response)
	if len(resp.Texts) == 0 {
		return "", goerr.New("LLM returned no content")
	}

	return resp.Texts[0], nil
}

// generateText runs a single plain-text session and returns the trimmed
// response
func (c *client) generateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	v, err := c.guard.Do(ctx, func() (any, error) {
		session, err := c.llmClient.NewSession(ctx,
			gollem.WithSessionSystemPrompt(systemPrompt),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create LLM session")
		}

		return session.GenerateContent(ctx, gollem.Text(userPrompt))
	})
	if err != nil {
		return "", err
	}

	resp := v.(*gollem.Response)
	if len(resp.Texts) == 0 {
		return "", goerr.New("LLM returned no content")
	}

	return strings.TrimSpace(resp.Texts[0]), nil
}
