// Package generate turns a phase and a user instruction into generated text
// through a language model provider.
package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rogers-f/phasebook/internal/domain"
)

// Generator produces text for a prompt context.
type Generator interface {
	Generate(ctx context.Context, pc domain.PromptContext) (string, error)
}

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
}

// LLMGenerator sends the rendered prompt to a langchaingo model.
type LLMGenerator struct {
	Model llms.Model
	Name  string
}

// New builds a generator for the configured provider. A missing API key is
// reported as ErrMissingCredential.
func New(ctx context.Context, cfg ProviderConfig) (*LLMGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ErrMissingCredential
	}

	var (
		model llms.Model
		err   error
	)
	switch domain.Provider(cfg.Name) {
	case domain.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
		}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case domain.ProviderGoogleAI:
		opts := []googleai.Option{
			googleai.WithAPIKey(cfg.APIKey),
		}
		if cfg.Model != "" {
			opts = append(opts, googleai.WithDefaultModel(cfg.Model))
		}
		model, err = googleai.New(ctx, opts...)
	default:
		return nil, domain.NewEngineError(domain.ErrUnknownProvider.Code, fmt.Sprintf("unknown provider %q", cfg.Name))
	}
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrServiceUnavailable.Code, "init provider "+cfg.Name, err)
	}

	return &LLMGenerator{Model: model, Name: cfg.Name}, nil
}

// Generate renders the prompt and returns the first choice's text.
func (g *LLMGenerator) Generate(ctx context.Context, pc domain.PromptContext) (string, error) {
	if strings.TrimSpace(pc.UserInstruction) == "" {
		return "", domain.ErrEmptyInstruction
	}

	prompt, err := BuildPrompt(pc)
	if err != nil {
		return "", domain.WrapEngineError(domain.ErrServiceUnavailable.Code, "render prompt", err)
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	resp, err := g.Model.GenerateContent(ctx, messages)
	if err != nil {
		return "", domain.WrapEngineError(domain.ErrServiceUnavailable.Code, "Failed to get response from AI", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", domain.NewEngineError(domain.ErrServiceUnavailable.Code, "Failed to get response from AI: empty response")
	}
	return resp.Choices[0].Content, nil
}

// Unavailable is a Generator that always fails with err. It stands in when
// no provider could be configured so the rest of the workflow stays usable.
type Unavailable struct {
	Err error
}

func (u Unavailable) Generate(_ context.Context, pc domain.PromptContext) (string, error) {
	if strings.TrimSpace(pc.UserInstruction) == "" {
		return "", domain.ErrEmptyInstruction
	}
	return "", u.Err
}
