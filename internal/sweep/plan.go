package sweep

import (
	"llmsweep/internal/providers"
	"llmsweep/pkg/sweeptypes"
)

// Plan is the dry-run view of one experiment: what would be called, and
// whether pre-flight checks pass.
type Plan struct {
	Provider     string    `yaml:"provider"`
	Model        string    `yaml:"model"`
	URL          string    `yaml:"url,omitempty"`
	Prompt       string    `yaml:"prompt"`
	Temperatures []float64 `yaml:"temperatures,omitempty"`
	Iterations   int       `yaml:"iterations"`
	Calls        int       `yaml:"calls"`
	OutputFile   string    `yaml:"output_file,omitempty"`
	ExcelFile    string    `yaml:"excel_file,omitempty"`
	Error        string    `yaml:"error,omitempty"`
}

// PlanExperiment resolves cfg against registry without sending anything.
func PlanExperiment(registry *providers.Registry, cfg sweeptypes.ExperimentConfig) Plan {
	p := Plan{
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		Prompt:     sweeptypes.Snippet(cfg.Prompt(), 80),
		Iterations: cfg.Iterations(),
		OutputFile: cfg.OutputFile,
		ExcelFile:  cfg.ExcelFile,
	}

	if err := cfg.Validate(); err != nil {
		p.Error = err.Error()
		return p
	}
	temps, err := Temperatures(cfg)
	if err != nil {
		p.Error = err.Error()
		return p
	}
	p.Temperatures = temps
	p.Calls = len(temps) * p.Iterations

	binding, err := registry.Bind(cfg)
	if err != nil {
		p.Error = err.Error()
		return p
	}
	p.Provider = binding.Adapter.Name
	p.URL = binding.URL
	return p
}
