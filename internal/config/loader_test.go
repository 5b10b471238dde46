package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExperimentFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExperiments_Single(t *testing.T) {
	path := writeExperimentFile(t, "exp.json", `{
  "provider": "openrouter",
  "model": "meta-llama/llama-3-8b-instruct",
  "system_prompt": "You are terse.",
  "user_prompt": "Name a colour.",
  "temperature_range": {"start": 0, "end": 1, "step": 0.5},
  "N": 3,
  "max_tokens": 20,
  "logprobs": true,
  "top_logprobs": 4,
  "output_file": "colours.json",
  "excel_file": "colours.xlsx",
  "export_format": "xlsx"
}`)

	configs, err := LoadExperiments(path)
	require.NoError(t, err)
	require.Len(t, configs, 1)

	cfg := configs[0]
	assert.Equal(t, "openrouter", cfg.Provider)
	assert.Equal(t, "meta-llama/llama-3-8b-instruct", cfg.Model)
	assert.Equal(t, "You are terse.", cfg.SystemPrompt)
	require.NotNil(t, cfg.UserPrompt)
	assert.Equal(t, "Name a colour.", *cfg.UserPrompt)
	require.NotNil(t, cfg.TemperatureRange)
	assert.Equal(t, 0.5, cfg.TemperatureRange.Step)
	assert.Nil(t, cfg.Temperature)
	assert.Equal(t, 3, cfg.N)
	assert.Equal(t, 20, cfg.MaxTokens)
	assert.True(t, cfg.Logprobs)
	assert.Equal(t, 4, cfg.TopLogprobs)
	assert.Equal(t, "colours.json", cfg.OutputFile)
	assert.Equal(t, "colours.xlsx", cfg.ExcelFile)
	assert.Equal(t, "xlsx", cfg.ExportFormat)
}

func TestLoadExperiments_Queue(t *testing.T) {
	path := writeExperimentFile(t, "queue.yaml", `experiments:
  - provider: ollama
    model: llama3
    prompt: "Old style prompt"
    iterations: 2
    temperature: 0.4
  - provider: lmstudio
    model: qwen
    user_prompt: ""
  - provider: openai
    model: gpt-4o
`)

	configs, err := LoadExperiments(path)
	require.NoError(t, err)
	require.Len(t, configs, 3)

	assert.Equal(t, "ollama", configs[0].Provider)
	require.NotNil(t, configs[0].UserPrompt)
	assert.Equal(t, "Old style prompt", *configs[0].UserPrompt)
	assert.Equal(t, 2, configs[0].N)
	require.NotNil(t, configs[0].Temperature)
	assert.Equal(t, 0.4, *configs[0].Temperature)

	require.NotNil(t, configs[1].UserPrompt, "an empty prompt is kept, not treated as missing")
	assert.Equal(t, "", *configs[1].UserPrompt)
	assert.Equal(t, 1, configs[1].N)

	assert.Nil(t, configs[2].UserPrompt)
}

func TestLoadExperiments_Errors(t *testing.T) {
	_, err := LoadExperiments(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadExperiments(writeExperimentFile(t, "broken.json", `{"provider": `))
	assert.Error(t, err)
}

func TestCoerceIterations(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected int
	}{
		{name: "nil", value: nil, expected: 1},
		{name: "int", value: 4, expected: 4},
		{name: "float", value: 3.0, expected: 3},
		{name: "numeric string", value: "5", expected: 5},
		{name: "garbage string", value: "many", expected: 1},
		{name: "zero", value: 0, expected: 1},
		{name: "negative", value: -2, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, coerceIterations(tt.value))
		})
	}
}
