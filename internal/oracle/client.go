package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Ошибки оракула.
var (
	// ErrNoAPIKey — не задан API-ключ.
	ErrNoAPIKey = errors.New("anthropic api key is not set")

	// ErrEmptyCompletion — модель вернула ответ без текстовых блоков.
	ErrEmptyCompletion = errors.New("empty completion")
)

// Дефолты клиента.
const (
	DefaultModel     = string(anthropic.ModelClaudeSonnet4_20250514)
	DefaultMaxTokens = 4096
	DefaultTimeout   = 60 * time.Second
)

// Config — конфигурация клиента оракула.
type Config struct {
	// APIKey — ключ Anthropic API. Пустой — берётся ANTHROPIC_API_KEY.
	APIKey string

	// Model — идентификатор модели.
	Model string

	// MaxTokens — лимит токенов ответа.
	MaxTokens int64

	// Timeout — таймаут одного вызова.
	Timeout time.Duration
}

// Client — клиент Anthropic API.
type Client struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
}

// NewClient создаёт клиента с дефолтами для незаполненных полей.
func NewClient(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		inner:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		timeout:   timeout,
	}, nil
}

// Complete выполняет единичный запрос completion и возвращает
// конкатенацию текстовых блоков ответа.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	resp, err := c.inner.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyCompletion
	}

	return b.String(), nil
}
