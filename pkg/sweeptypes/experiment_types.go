// Package sweeptypes defines the shared data model for llmsweep.
// This file contains the experiment configuration consumed by the sweep engine.
package sweeptypes

import "strings"

// DefaultIterations is the repetition count used when N is absent, non-numeric or below 1.
const DefaultIterations = 1

// TemperatureRange describes an inclusive {start, end, step} temperature sweep.
type TemperatureRange struct {
	Start float64 `json:"start" yaml:"start" mapstructure:"start"`
	End   float64 `json:"end" yaml:"end" mapstructure:"end"`
	Step  float64 `json:"step" yaml:"step" mapstructure:"step"`
}

// ExperimentConfig is one declarative experiment. It is read once and never mutated.
type ExperimentConfig struct {
	Provider         string            `json:"provider" yaml:"provider"`
	Model            string            `json:"model" yaml:"model"`
	SystemPrompt     string            `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	UserPrompt       *string           `json:"user_prompt" yaml:"user_prompt"`
	Temperature      *float64          `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TemperatureRange *TemperatureRange `json:"temperature_range,omitempty" yaml:"temperature_range,omitempty"`
	N                int               `json:"N" yaml:"N"`
	MaxTokens        int               `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Logprobs         bool              `json:"logprobs,omitempty" yaml:"logprobs,omitempty"`
	TopLogprobs      int               `json:"top_logprobs,omitempty" yaml:"top_logprobs,omitempty"`
	OutputFile       string            `json:"output_file,omitempty" yaml:"output_file,omitempty"`
	ExcelFile        string            `json:"excel_file,omitempty" yaml:"excel_file,omitempty"`
	ExportFormat     string            `json:"export_format,omitempty" yaml:"export_format,omitempty"`
}

// Prompt returns the user prompt, or "" when none was supplied.
func (c ExperimentConfig) Prompt() string {
	if c.UserPrompt == nil {
		return ""
	}
	return *c.UserPrompt
}

// Iterations returns the repetition count with N <= 0 coerced to DefaultIterations.
func (c ExperimentConfig) Iterations() int {
	if c.N < 1 {
		return DefaultIterations
	}
	return c.N
}

// ProviderName returns the normalized (trimmed, lower-cased) provider name.
func (c ExperimentConfig) ProviderName() string {
	return strings.ToLower(strings.TrimSpace(c.Provider))
}

// Validate performs the pre-flight checks that must pass before any network call.
// Provider resolution and credential checks live in the provider registry.
func (c ExperimentConfig) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return &ConfigError{Field: "model", Reason: "is required"}
	}
	if c.UserPrompt == nil {
		return &ConfigError{Field: "user_prompt", Reason: "is required"}
	}
	if r := c.TemperatureRange; r != nil {
		if r.Step <= 0 {
			return &ConfigError{Field: "temperature_range.step", Reason: "must be greater than 0"}
		}
		if r.End < r.Start {
			return &ConfigError{Field: "temperature_range", Reason: "end must not be less than start"}
		}
	}
	return nil
}

// Snippet returns at most n runes of s, followed by "..." when truncated.
func Snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
