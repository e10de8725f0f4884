package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/logger"
)

// LangChainProvider sends prompts through a langchaingo model.
type LangChainProvider struct {
	model       llms.Model
	timeout     time.Duration
	temperature float64
	maxTokens   int
	logger      logger.Logger
}

// NewLangChainProvider builds the model selected by cfg.Provider.
func NewLangChainProvider(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (*LangChainProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "anthropic":
		model, err = anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
	case "googleai", "":
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}

	return NewWithModel(model, cfg, log), nil
}

// NewWithModel wraps an already constructed model.
func NewWithModel(model llms.Model, cfg config.LLMConfig, log logger.Logger) *LangChainProvider {
	return &LangChainProvider{
		model:       model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger: log.With(map[string]interface{}{
			"component": "llm",
			"provider":  cfg.Provider,
			"model":     cfg.Model,
		}),
	}
}

func (p *LangChainProvider) Complete(ctx context.Context, request *Request) (*Response, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	temperature := request.Temperature
	if temperature == 0 {
		temperature = p.temperature
	}
	maxTokens := request.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	start := time.Now()
	content, err := llms.GenerateFromSinglePrompt(ctx, p.model, request.Prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		p.logger.WithError(err).Warn("completion failed", map[string]interface{}{
			"elapsed": time.Since(start).String(),
		})
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrCompletionFailed)
	}

	p.logger.Debug("completion received", map[string]interface{}{
		"elapsed": time.Since(start).String(),
		"chars":   len(content),
	})
	return &Response{Content: content}, nil
}
