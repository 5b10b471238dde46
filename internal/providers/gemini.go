package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"llmsweep/pkg/sweeptypes"
)

// geminiRequest is the generateContent body. The genai types carry the REST field names.
type geminiRequest struct {
	Contents         []*genai.Content        `json:"contents"`
	GenerationConfig *genai.GenerationConfig `json:"generationConfig,omitempty"`
}

func newGeminiAdapter() Adapter {
	return Adapter{
		Name:               "google",
		KeyEnv:             "GOOGLE_API_KEY",
		BaseURLEnv:         "GOOGLE_BASE_URL",
		DefaultBaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		TopLogprobsDefault: 5,
		BuildURL: func(baseURL string, cfg sweeptypes.ExperimentConfig) string {
			model := strings.TrimPrefix(cfg.Model, "models/")
			return fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(baseURL, "/"), model)
		},
		BuildHeaders: func(apiKey string) map[string]string {
			headers := jsonHeaders()
			headers["x-goog-api-key"] = apiKey
			return headers
		},
		BuildBody: buildGeminiBody,
		Extract:   extractGeminiResponse,
	}
}

// combinePrompts folds the system prompt into the user turn.
func combinePrompts(system, user string) string {
	if system == "" {
		return user
	}
	return system + "\n\n" + user
}

func buildGeminiBody(cfg sweeptypes.ExperimentConfig, temperature float64) ([]byte, error) {
	generation := &genai.GenerationConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if cfg.MaxTokens > 0 {
		generation.MaxOutputTokens = int32(cfg.MaxTokens)
	}
	if cfg.Logprobs {
		generation.ResponseLogprobs = true
		generation.Logprobs = genai.Ptr(int32(topLogprobs(cfg, 5)))
	}

	request := geminiRequest{
		Contents: []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: combinePrompts(cfg.SystemPrompt, cfg.Prompt())}},
		}},
		GenerationConfig: generation,
	}
	return json.Marshal(request)
}

func extractGeminiResponse(raw []byte) (sweeptypes.Completion, error) {
	var response genai.GenerateContentResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return sweeptypes.Completion{}, fmt.Errorf("failed to parse reply: %w", err)
	}

	if len(response.Candidates) == 0 {
		if fb := response.PromptFeedback; fb != nil && fb.BlockReason != "" {
			return sweeptypes.Completion{}, fmt.Errorf("prompt blocked: %s", fb.BlockReason)
		}
		return sweeptypes.Completion{}, fmt.Errorf("no candidates returned")
	}

	candidate := response.Candidates[0]
	completion := sweeptypes.Completion{
		FinishReason: string(candidate.FinishReason),
	}
	if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
		text := response.Text()
		completion.Text = &text
	}
	if candidate.LogprobsResult != nil {
		lp, err := json.Marshal(candidate.LogprobsResult)
		if err != nil {
			return sweeptypes.Completion{}, fmt.Errorf("failed to encode logprobs: %w", err)
		}
		completion.Logprobs = lp
	}
	return completion, nil
}
