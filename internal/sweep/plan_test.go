package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"llmsweep/internal/config"
	"llmsweep/internal/providers"
	"llmsweep/pkg/sweeptypes"
)

func TestPlanExperiment(t *testing.T) {
	registry := providers.NewRegistry(config.NewCredentials(map[string]string{
		"OPENAI_API_KEY": "sk-test",
	}))
	prompt := "Hi"

	tests := []struct {
		name      string
		cfg       sweeptypes.ExperimentConfig
		provider  string
		url       string
		calls     int
		errSubstr string
	}{
		{
			name: "local provider with range",
			cfg: sweeptypes.ExperimentConfig{
				Provider:         " Ollama ",
				Model:            "llama3",
				UserPrompt:       &prompt,
				TemperatureRange: &sweeptypes.TemperatureRange{Start: 0, End: 1, Step: 0.5},
				N:                3,
			},
			provider: "ollama",
			url:      "http://localhost:11434/v1/chat/completions",
			calls:    9,
		},
		{
			name:     "credentialed provider",
			cfg:      sweeptypes.ExperimentConfig{Provider: "openai", Model: "gpt-4o", UserPrompt: &prompt},
			provider: "openai",
			url:      "https://api.openai.com/v1/chat/completions",
			calls:    1,
		},
		{
			name:      "missing credential",
			cfg:       sweeptypes.ExperimentConfig{Provider: "google", Model: "gemini-2.0-flash", UserPrompt: &prompt},
			provider:  "google",
			calls:     1,
			errSubstr: "GOOGLE_API_KEY",
		},
		{
			name:      "unknown provider",
			cfg:       sweeptypes.ExperimentConfig{Provider: "acme", Model: "m", UserPrompt: &prompt},
			provider:  "acme",
			calls:     1,
			errSubstr: "unsupported provider",
		},
		{
			name:      "missing prompt",
			cfg:       sweeptypes.ExperimentConfig{Provider: "ollama", Model: "m"},
			provider:  "ollama",
			errSubstr: "user_prompt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlanExperiment(registry, tt.cfg)
			assert.Equal(t, tt.provider, p.Provider)
			assert.Equal(t, tt.url, p.URL)
			assert.Equal(t, tt.calls, p.Calls)
			if tt.errSubstr == "" {
				assert.Empty(t, p.Error)
			} else {
				assert.Contains(t, p.Error, tt.errSubstr)
			}
		})
	}
}
