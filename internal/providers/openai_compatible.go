package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/tidwall/gjson"

	"llmsweep/pkg/sweeptypes"
)

// openAICompatible describes one backend speaking the OpenAI chat completions format.
type openAICompatible struct {
	name           string
	keyEnv         string
	baseURLEnv     string
	defaultBaseURL string
	topLogprobs    int
	extraHeaders   map[string]string
}

func newOpenAICompatibleAdapter(backend openAICompatible) Adapter {
	return Adapter{
		Name:               backend.name,
		KeyEnv:             backend.keyEnv,
		BaseURLEnv:         backend.baseURLEnv,
		DefaultBaseURL:     backend.defaultBaseURL,
		TopLogprobsDefault: backend.topLogprobs,
		BuildURL: func(baseURL string, _ sweeptypes.ExperimentConfig) string {
			return strings.TrimSuffix(baseURL, "/") + "/chat/completions"
		},
		BuildHeaders: func(apiKey string) map[string]string {
			headers := jsonHeaders()
			if apiKey != "" {
				headers["Authorization"] = "Bearer " + apiKey
			}
			for k, v := range backend.extraHeaders {
				headers[k] = v
			}
			return headers
		},
		BuildBody: func(cfg sweeptypes.ExperimentConfig, temperature float64) ([]byte, error) {
			return buildChatCompletionBody(cfg, temperature, backend.topLogprobs)
		},
		Extract: extractChatCompletion,
	}
}

// buildChatCompletionBody renders the request with openai-go params.
func buildChatCompletionBody(cfg sweeptypes.ExperimentConfig, temperature float64, defaultTopLogprobs int) ([]byte, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if cfg.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(cfg.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(cfg.Prompt()))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(cfg.Model),
		Messages:    messages,
		Temperature: openai.Float(temperature),
	}
	if cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(cfg.MaxTokens))
	}
	if cfg.Logprobs {
		params.Logprobs = openai.Bool(true)
		params.TopLogprobs = openai.Int(int64(topLogprobs(cfg, defaultTopLogprobs)))
	}

	return json.Marshal(params)
}

// extractChatCompletion reads choices[0] of a chat completion reply.
func extractChatCompletion(raw []byte) (sweeptypes.Completion, error) {
	if !gjson.ValidBytes(raw) {
		return sweeptypes.Completion{}, fmt.Errorf("reply is not valid JSON")
	}

	choice := gjson.GetBytes(raw, "choices.0")
	if !choice.Exists() {
		// Some gateways answer 200 with an error object instead of choices.
		if errResult := gjson.GetBytes(raw, "error"); errResult.Exists() {
			msg := errResult.Get("message").String()
			if msg == "" {
				msg = errResult.String()
			}
			return sweeptypes.Completion{}, fmt.Errorf("API error: %s", msg)
		}
		return sweeptypes.Completion{}, fmt.Errorf("no response choices returned")
	}

	completion := sweeptypes.Completion{
		FinishReason: choice.Get("finish_reason").String(),
	}
	if content := choice.Get("message.content"); content.Exists() && content.Type != gjson.Null {
		text := content.String()
		completion.Text = &text
	}
	if lp := choice.Get("logprobs"); lp.Exists() && lp.Type != gjson.Null {
		completion.Logprobs = json.RawMessage(lp.Raw)
	}
	return completion, nil
}
