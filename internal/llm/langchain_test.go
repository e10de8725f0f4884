package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/avvvet/deliverybuddy/internal/config"
	"github.com/avvvet/deliverybuddy/internal/logger"
)

type fakeModel struct {
	reply   string
	err     error
	prompt  string
	options llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, o := range options {
		o(&f.options)
	}
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		if text, ok := messages[0].Parts[0].(llms.TextContent); ok {
			f.prompt = text.Text
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

var testLLMConfig = config.LLMConfig{
	Provider:    "googleai",
	Model:       "gemini-1.5-flash",
	Timeout:     time.Second,
	Temperature: 0.7,
	MaxTokens:   400,
}

func TestLangChainProvider_Complete(t *testing.T) {
	model := &fakeModel{reply: "  Qual o seu endereço?  "}
	p := NewWithModel(model, testLLMConfig, logger.NewTestLogger(t))

	resp, err := p.Complete(context.Background(), &Request{Prompt: "prompt"})

	require.NoError(t, err)
	assert.Equal(t, "Qual o seu endereço?", resp.Content)
	assert.Equal(t, "prompt", model.prompt)
	assert.Equal(t, 0.7, model.options.Temperature)
	assert.Equal(t, 400, model.options.MaxTokens)
}

func TestLangChainProvider_RequestOverrides(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	p := NewWithModel(model, testLLMConfig, logger.NewNoOpLogger())

	_, err := p.Complete(context.Background(), &Request{Prompt: "p", MaxTokens: 80, Temperature: 0.9})

	require.NoError(t, err)
	assert.Equal(t, 0.9, model.options.Temperature)
	assert.Equal(t, 80, model.options.MaxTokens)
}

func TestLangChainProvider_Errors(t *testing.T) {
	p := NewWithModel(&fakeModel{err: errors.New("quota exceeded")}, testLLMConfig, logger.NewNoOpLogger())
	_, err := p.Complete(context.Background(), &Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrCompletionFailed)

	p = NewWithModel(&fakeModel{reply: "   "}, testLLMConfig, logger.NewNoOpLogger())
	_, err = p.Complete(context.Background(), &Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestNewLangChainProvider_RequiresKey(t *testing.T) {
	_, err := NewLangChainProvider(context.Background(), testLLMConfig, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Complete(context.Background(), &Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
