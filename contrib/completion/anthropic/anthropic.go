package anthropic

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/sweetpotato0/ragline/completion"
	"github.com/sweetpotato0/ragline/message"
)

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Anthropic configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:       "claude-3-5-haiku-20241022",
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// Model implements completion.Model for the Anthropic Messages API.
type Model struct {
	config *Config
	client anthropicsdk.Client
}

// New creates an Anthropic completion model.
func New(config *Config) *Model {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "claude-3-5-haiku-20241022"
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &Model{
		config: config,
		client: anthropicsdk.NewClient(opts...),
	}
}

// Complete implements completion.Model.
func (m *Model) Complete(ctx context.Context, messages []*message.Message) (string, error) {
	var systemPrompts []string
	conversation := make([]anthropicsdk.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
		case message.RoleAssistant:
			conversation = append(conversation,
				anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content)))
		default:
			conversation = append(conversation,
				anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content)))
		}
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(m.config.Model),
		Messages:  conversation,
		MaxTokens: m.config.MaxTokens,
	}
	if len(systemPrompts) > 0 {
		params.System = []anthropicsdk.TextBlockParam{
			{Text: strings.Join(systemPrompts, "\n")},
		}
	}
	if m.config.Temperature > 0 {
		params.Temperature = param.NewOpt(m.config.Temperature)
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var text strings.Builder
	for _, content := range resp.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic completion: empty response")
	}
	return text.String(), nil
}

var _ completion.Model = (*Model)(nil)
