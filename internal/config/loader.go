package config

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"llmsweep/pkg/sweeptypes"
)

// experimentsKey holds the experiment list in queue-mode files.
const experimentsKey = "experiments"

// rawExperiment mirrors one experiment block as written on disk. It accepts the
// older `prompt`/`iterations` spelling next to `user_prompt`/`N`.
type rawExperiment struct {
	Provider         string                       `mapstructure:"provider"`
	Model            string                       `mapstructure:"model"`
	SystemPrompt     string                       `mapstructure:"system_prompt"`
	UserPrompt       *string                      `mapstructure:"user_prompt"`
	Prompt           *string                      `mapstructure:"prompt"`
	Temperature      *float64                     `mapstructure:"temperature"`
	TemperatureRange *sweeptypes.TemperatureRange `mapstructure:"temperature_range"`
	N                interface{}                  `mapstructure:"n"`
	Iterations       interface{}                  `mapstructure:"iterations"`
	MaxTokens        int                          `mapstructure:"max_tokens"`
	Logprobs         bool                         `mapstructure:"logprobs"`
	TopLogprobs      int                          `mapstructure:"top_logprobs"`
	OutputFile       string                       `mapstructure:"output_file"`
	ExcelFile        string                       `mapstructure:"excel_file"`
	ExportFormat     string                       `mapstructure:"export_format"`
}

// LoadExperiments reads a JSON or YAML experiment file. A file with a top-level
// `experiments` list yields every entry in order; otherwise the whole file is one experiment.
// Only parsing happens here: semantic checks run per experiment in the sweep engine.
func LoadExperiments(path string) ([]sweeptypes.ExperimentConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read experiment file %s: %w", path, err)
	}

	var raws []rawExperiment
	if v.IsSet(experimentsKey) {
		if err := v.UnmarshalKey(experimentsKey, &raws); err != nil {
			return nil, fmt.Errorf("failed to decode %q in %s: %w", experimentsKey, path, err)
		}
	} else {
		var single rawExperiment
		if err := v.Unmarshal(&single); err != nil {
			return nil, fmt.Errorf("failed to decode experiment in %s: %w", path, err)
		}
		raws = []rawExperiment{single}
	}

	configs := make([]sweeptypes.ExperimentConfig, 0, len(raws))
	for _, raw := range raws {
		configs = append(configs, raw.normalize())
	}
	return configs, nil
}

func (r rawExperiment) normalize() sweeptypes.ExperimentConfig {
	prompt := r.UserPrompt
	if prompt == nil {
		prompt = r.Prompt
	}

	n := r.N
	if n == nil {
		n = r.Iterations
	}

	return sweeptypes.ExperimentConfig{
		Provider:         r.Provider,
		Model:            r.Model,
		SystemPrompt:     r.SystemPrompt,
		UserPrompt:       prompt,
		Temperature:      r.Temperature,
		TemperatureRange: r.TemperatureRange,
		N:                coerceIterations(n),
		MaxTokens:        r.MaxTokens,
		Logprobs:         r.Logprobs,
		TopLogprobs:      r.TopLogprobs,
		OutputFile:       r.OutputFile,
		ExcelFile:        r.ExcelFile,
		ExportFormat:     r.ExportFormat,
	}
}

// coerceIterations turns a loosely typed N into a count >= 1.
func coerceIterations(value interface{}) int {
	if value == nil {
		return sweeptypes.DefaultIterations
	}
	n, err := cast.ToIntE(value)
	if err != nil || n < 1 {
		return sweeptypes.DefaultIterations
	}
	return n
}
