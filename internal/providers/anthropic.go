package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"llmsweep/pkg/sweeptypes"
)

// anthropicVersion is the Messages API version header value.
const anthropicVersion = "2023-06-01"

// anthropicDefaultMaxTokens applies when the experiment sets no ceiling; the API requires one.
const anthropicDefaultMaxTokens = 4096

func newAnthropicAdapter() Adapter {
	return Adapter{
		Name:           "anthropic",
		KeyEnv:         "ANTHROPIC_API_KEY",
		BaseURLEnv:     "ANTHROPIC_BASE_URL",
		DefaultBaseURL: "https://api.anthropic.com/v1",
		BuildURL: func(baseURL string, _ sweeptypes.ExperimentConfig) string {
			return strings.TrimSuffix(baseURL, "/") + "/messages"
		},
		BuildHeaders: func(apiKey string) map[string]string {
			headers := jsonHeaders()
			headers["x-api-key"] = apiKey
			headers["anthropic-version"] = anthropicVersion
			return headers
		},
		BuildBody: buildAnthropicBody,
		Extract:   extractAnthropicMessage,
	}
}

func buildAnthropicBody(cfg sweeptypes.ExperimentConfig, temperature float64) ([]byte, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(cfg.Prompt())),
		},
		Temperature: anthropic.Float(temperature),
	}
	if cfg.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: cfg.SystemPrompt},
		}
	}

	return json.Marshal(params)
}

// extractAnthropicMessage concatenates the text blocks of a Message reply.
func extractAnthropicMessage(raw []byte) (sweeptypes.Completion, error) {
	var message anthropic.Message
	if err := json.Unmarshal(raw, &message); err != nil {
		return sweeptypes.Completion{}, fmt.Errorf("failed to parse reply: %w", err)
	}

	completion := sweeptypes.Completion{
		FinishReason: string(message.StopReason),
	}

	var b strings.Builder
	found := false
	for _, block := range message.Content {
		if block.Type != "text" {
			continue
		}
		b.WriteString(block.Text)
		found = true
	}
	if found {
		text := b.String()
		completion.Text = &text
	}
	return completion, nil
}
