package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/urfave/cli/v3"
)

// Gateway holds CLI flags for the LLM provider behind the gateway
type Gateway struct {
	provider       string
	geminiProject  string
	geminiLocation string
	openaiAPIKey   string
}

// Flags returns CLI flags for LLM provider configuration
func (g *Gateway) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "LLM provider (gemini or openai)",
			Value:       "gemini",
			Category:    "LLM",
			Sources:     cli.EnvVars("MNEMOSYNE_LLM_PROVIDER"),
			Destination: &g.provider,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "LLM",
			Sources:     cli.EnvVars("MNEMOSYNE_GEMINI_PROJECT"),
			Destination: &g.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Category:    "LLM",
			Sources:     cli.EnvVars("MNEMOSYNE_GEMINI_LOCATION"),
			Destination: &g.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Category:    "LLM",
			Sources:     cli.EnvVars("MNEMOSYNE_OPENAI_API_KEY"),
			Destination: &g.openaiAPIKey,
		},
	}
}

// LogAttrs returns log attributes for the LLM provider configuration. The
// API key never appears in logs.
func (g *Gateway) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("provider", g.provider),
		slog.String("gemini_project", g.geminiProject),
		slog.String("gemini_location", g.geminiLocation),
	}
}

// Configure creates an LLM client for the configured provider
func (g *Gateway) Configure(ctx context.Context) (gollem.LLMClient, error) {
	switch g.provider {
	case "gemini":
		if g.geminiProject == "" {
			return nil, goerr.New("gemini-project is required when using the gemini provider")
		}
		client, err := gemini.New(ctx, g.geminiProject, g.geminiLocation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		return client, nil

	case "openai":
		if g.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required when using the openai provider")
		}
		client, err := openai.New(ctx, g.openaiAPIKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}
		return client, nil

	default:
		return nil, goerr.New("invalid LLM provider", goerr.V("provider", g.provider))
	}
}
