package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces runtime overrides, e.g. LLMSWEEP_OUTPUT_DIR.
const EnvPrefix = "LLMSWEEP"

// Setting keys shared by cobra flags and viper.
const (
	KeyOutputDir   = "output-dir"
	KeyDelay       = "delay"
	KeyCallTimeout = "call-timeout"
	KeyExporter    = "exporter"
	KeyMetricsFile = "metrics-file"
	KeyEnvFile     = "env-file"
	KeyHTTPTrace   = "http-trace"
)

// Default runtime values.
const (
	DefaultOutputDir   = "llm_outputs"
	DefaultDelay       = 500 * time.Millisecond
	DefaultCallTimeout = 120 * time.Second
)

// Settings holds the runtime knobs of a run. Experiment content lives in
// sweeptypes.ExperimentConfig instead.
type Settings struct {
	OutputDir       string
	Delay           time.Duration
	CallTimeout     time.Duration
	ExporterCommand string
	MetricsFile     string
	HTTPTrace       string
	EnvFiles        []string
}

// NewViper returns a viper instance with defaults and LLMSWEEP_* env overrides applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyOutputDir, DefaultOutputDir)
	v.SetDefault(KeyDelay, DefaultDelay)
	v.SetDefault(KeyCallTimeout, DefaultCallTimeout)
	return v
}

// SettingsFromViper reads runtime settings after flags have been bound.
func SettingsFromViper(v *viper.Viper) Settings {
	s := Settings{
		OutputDir:       v.GetString(KeyOutputDir),
		Delay:           v.GetDuration(KeyDelay),
		CallTimeout:     v.GetDuration(KeyCallTimeout),
		ExporterCommand: v.GetString(KeyExporter),
		MetricsFile:     v.GetString(KeyMetricsFile),
		HTTPTrace:       v.GetString(KeyHTTPTrace),
	}
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	if s.Delay < 0 {
		s.Delay = 0
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = DefaultCallTimeout
	}

	s.EnvFiles = DefaultEnvFiles()
	if extra := v.GetString(KeyEnvFile); extra != "" {
		s.EnvFiles = append(s.EnvFiles, extra)
	}
	return s
}
