// Package cli provides command-line interface setup for llmsweep.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"llmsweep/internal/config"
	"llmsweep/internal/logger"
)

// App represents the llmsweep CLI application
type App struct {
	viper *viper.Viper
	out   io.Writer

	logLevel string
	logFile  string
	testMode bool
}

// NewApp creates a new llmsweep CLI application
func NewApp() *App {
	return &App{
		viper: config.NewViper(),
		out:   os.Stdout,
	}
}

// SetOutput redirects command output, mainly for tests.
func (app *App) SetOutput(w io.Writer) {
	app.out = w
}

// Settings returns the runtime settings after flags and env overrides.
func (app *App) Settings() config.Settings {
	return config.SettingsFromViper(app.viper)
}

// CreateRootCommand creates and configures the root command
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "llmsweep",
		Short: "Temperature sweeps against LLM completion endpoints",
		Long: `llmsweep runs declarative experiments against LLM providers: one prompt pair,
a range of temperatures and N repetitions per temperature. Every reply (with
log-probabilities when requested) is saved to a JSON file that never overwrites
an earlier run.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return logger.Configure(app.logLevel, app.logFile, app.testMode)
		},
	}
	rootCmd.SetOut(app.out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	flags.StringVar(&app.logFile, "log-file", "", "Write logs to file instead of stderr")
	flags.BoolVar(&app.testMode, "test-mode", false, "Deterministic log output")
	flags.String(config.KeyOutputDir, config.DefaultOutputDir, "Directory result files are written to")
	flags.Duration(config.KeyDelay, config.DefaultDelay, "Pause after each successful provider call")
	flags.Duration(config.KeyCallTimeout, config.DefaultCallTimeout, "Timeout for a single provider call")
	flags.String(config.KeyExporter, "", "Exporter command; the hand-off file path is appended as its last argument")
	flags.String(config.KeyMetricsFile, "", "Write Prometheus metrics to this file after the run")
	flags.String(config.KeyEnvFile, "", "Additional .env file with provider credentials")
	flags.String(config.KeyHTTPTrace, "", "Append every provider HTTP exchange as a JSON line to this file")

	for _, key := range []string{
		config.KeyOutputDir,
		config.KeyDelay,
		config.KeyCallTimeout,
		config.KeyExporter,
		config.KeyMetricsFile,
		config.KeyEnvFile,
		config.KeyHTTPTrace,
	} {
		if err := app.viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", key, err)
			os.Exit(1)
		}
	}

	app.addSweepCommands(rootCmd)
	app.addInspectCommands(rootCmd)
	app.addVersionCommand(rootCmd)

	return rootCmd
}
