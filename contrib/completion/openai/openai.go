package openai

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/sweetpotato0/ragline/completion"
	"github.com/sweetpotato0/ragline/message"
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default OpenAI configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// Model implements completion.Model for OpenAI chat completions.
type Model struct {
	config *Config
	client openaisdk.Client
}

// New creates an OpenAI completion model.
func New(config *Config) *Model {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &Model{
		config: config,
		client: openaisdk.NewClient(opts...),
	}
}

// Complete implements completion.Model.
func (m *Model) Complete(ctx context.Context, messages []*message.Message) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(m.config.Model),
		Messages: make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			params.Messages = append(params.Messages, openaisdk.SystemMessage(msg.Content))
		case message.RoleAssistant:
			params.Messages = append(params.Messages, openaisdk.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openaisdk.UserMessage(msg.Content))
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ completion.Model = (*Model)(nil)
