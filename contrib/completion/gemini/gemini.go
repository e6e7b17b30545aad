package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sweetpotato0/ragline/completion"
	"github.com/sweetpotato0/ragline/config"
	"github.com/sweetpotato0/ragline/message"
)

// Config holds Gemini provider configuration.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// DefaultConfig returns default Gemini configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:       "gemini-1.5-flash",
		Temperature: 0.2,
	}
}

// Model implements completion.Model for the Gemini API.
type Model struct {
	config *Config
	client *genai.Client
}

func validate(cfg *Config) error {
	return config.NewValidator().
		RequireNonEmpty("api_key", cfg.APIKey).
		RequireNonEmpty("model", cfg.Model).
		Err()
}

// New creates a Gemini completion model.
func New(ctx context.Context, config *Config) (*Model, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}
	if err := validate(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Model{config: config, client: client}, nil
}

// Complete implements completion.Model.
func (m *Model) Complete(ctx context.Context, messages []*message.Message) (string, error) {
	model := m.client.GenerativeModel(m.config.Model)
	if m.config.Temperature > 0 {
		model.SetTemperature(m.config.Temperature)
	}

	var systemPrompts []string
	var history []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
		case message.RoleAssistant:
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}
	if len(systemPrompts) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(systemPrompts, "\n"))},
		}
	}
	if len(history) == 0 {
		return "", fmt.Errorf("gemini completion: no user messages")
	}

	last := history[len(history)-1]
	session := model.StartChat()
	session.History = history[:len(history)-1]

	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini completion: empty response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

// Close releases the underlying API client.
func (m *Model) Close() error {
	return m.client.Close()
}

var _ completion.Model = (*Model)(nil)
