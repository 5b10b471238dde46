package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"llmsweep/internal/config"
	"llmsweep/internal/logger"
	"llmsweep/internal/metrics"
	"llmsweep/internal/providers"
	"llmsweep/internal/queue"
	"llmsweep/internal/report"
	"llmsweep/internal/sink"
	"llmsweep/internal/sweep"
	"llmsweep/pkg/sweeptypes"
)

// overrides are command-line values applied to every loaded experiment.
type overrides struct {
	provider string
	model    string
	output   string
}

func (o overrides) apply(configs []sweeptypes.ExperimentConfig) {
	for i := range configs {
		if o.provider != "" {
			configs[i].Provider = o.provider
		}
		if o.model != "" {
			configs[i].Model = o.model
		}
		if o.output != "" {
			configs[i].OutputFile = o.output
		}
	}
}

// planDocument is the YAML printed by `llmsweep plan`.
type planDocument struct {
	OutputDir   string       `yaml:"output_dir"`
	Experiments []sweep.Plan `yaml:"experiments"`
}

// addSweepCommands adds the commands that execute or preview experiments
func (app *App) addSweepCommands(rootCmd *cobra.Command) {
	var runOverrides overrides
	runCmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run the experiments in a config file",
		Long: `Run one experiment, or every entry of an "experiments" list, from a JSON or
YAML file. Experiments run one after another; an experiment that fails its
pre-flight checks is reported and the rest still run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runExperiments(cmd.Context(), args[0], runOverrides)
		},
	}
	runCmd.Flags().StringVar(&runOverrides.provider, "provider", "", "Override the provider of every experiment")
	runCmd.Flags().StringVar(&runOverrides.model, "model", "", "Override the model of every experiment")
	runCmd.Flags().StringVarP(&runOverrides.output, "output", "o", "", "Override the output file of every experiment")

	var planOverrides overrides
	planCmd := &cobra.Command{
		Use:   "plan <config>",
		Short: "Show what a config file would run, without calling any provider",
		Long: `Resolve every experiment in a config file (provider, endpoint, temperatures,
call count, credential status) and print the result as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.planExperiments(args[0], planOverrides)
		},
	}
	planCmd.Flags().StringVar(&planOverrides.provider, "provider", "", "Override the provider of every experiment")
	planCmd.Flags().StringVar(&planOverrides.model, "model", "", "Override the model of every experiment")

	rootCmd.AddCommand(runCmd, planCmd)
}

// addInspectCommands adds commands that look at results and providers
func (app *App) addInspectCommands(rootCmd *cobra.Command) {
	var (
		style string
		width int
		raw   bool
	)
	showCmd := &cobra.Command{
		Use:   "show <result.json>",
		Short: "Summarize a saved result file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.showResult(args[0], style, width, raw)
		},
	}
	showCmd.Flags().StringVar(&style, "style", "", "Glamour style (dark, light, notty, ...) [default: auto]")
	showCmd.Flags().IntVar(&width, "width", report.DefaultWidth, "Word wrap width")
	showCmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without rendering")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List supported providers and credential status",
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.listProviders()
		},
	}

	rootCmd.AddCommand(showCmd, providersCmd)
}

func (app *App) registry(settings config.Settings) (*providers.Registry, error) {
	creds, err := config.LoadCredentials(settings.EnvFiles...)
	if err != nil {
		return nil, err
	}
	return providers.NewRegistry(creds), nil
}

func (app *App) runExperiments(ctx context.Context, path string, o overrides) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	settings := app.Settings()
	configs, err := config.LoadExperiments(path)
	if err != nil {
		return err
	}
	o.apply(configs)

	registry, err := app.registry(settings)
	if err != nil {
		return err
	}
	out, err := sink.New(settings.OutputDir, sink.WithExporter(settings.ExporterCommand))
	if err != nil {
		return err
	}
	opts := []sweep.Option{
		sweep.WithDelay(settings.Delay),
		sweep.WithCallTimeout(settings.CallTimeout),
	}
	if settings.HTTPTrace != "" {
		trace, err := os.OpenFile(settings.HTTPTrace, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open HTTP trace file: %w", err)
		}
		defer trace.Close()
		opts = append(opts, sweep.WithHTTPClient(&http.Client{Transport: providers.NewDebugTransport(nil, trace)}))
	}
	engine := sweep.NewEngine(registry, opts...)

	logger.Info("Starting run", "experiments", len(configs), "output_dir", settings.OutputDir)
	summary := queue.NewRunner(engine, out).Run(ctx, configs)
	out.Wait()

	if settings.MetricsFile != "" {
		if err := metrics.WriteTextfile(settings.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics file", "path", settings.MetricsFile, "error", err)
		}
	}

	app.printSummary(summary)
	if failed := summary.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d experiments failed", failed, len(summary.Outcomes))
	}
	return nil
}

func (app *App) printSummary(summary queue.Summary) {
	w := tabwriter.NewWriter(app.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPROVIDER\tMODEL\tSTATUS\tCALLS\tRESULT")
	for _, o := range summary.Outcomes {
		detail := o.OutputPath
		if o.Err != nil {
			detail = o.Err.Error()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%s\n",
			o.Index+1, o.Provider, o.Model, o.Status, o.Calls-o.FailedCalls, o.Calls, detail)
	}
	_ = w.Flush()
}

func (app *App) planExperiments(path string, o overrides) error {
	settings := app.Settings()
	configs, err := config.LoadExperiments(path)
	if err != nil {
		return err
	}
	o.apply(configs)

	registry, err := app.registry(settings)
	if err != nil {
		return err
	}

	plans := make([]sweep.Plan, 0, len(configs))
	for _, cfg := range configs {
		plans = append(plans, sweep.PlanExperiment(registry, cfg))
	}

	enc := yaml.NewEncoder(app.out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(planDocument{OutputDir: settings.OutputDir, Experiments: plans})
}

func (app *App) showResult(path, style string, width int, raw bool) error {
	result, err := report.Load(path)
	if err != nil {
		return err
	}
	md := report.Markdown(result, path)
	if raw {
		_, err := fmt.Fprint(app.out, md)
		return err
	}

	renderer, err := report.NewRenderer(style, width)
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(app.out, rendered)
	return err
}

func (app *App) listProviders() error {
	registry, err := app.registry(app.Settings())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(app.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tCREDENTIAL\tSTATUS")
	for _, name := range registry.Names() {
		adapter, err := registry.Resolve(name)
		if err != nil {
			return err
		}
		env, status := "-", "ready"
		if adapter.RequiresKey() {
			env = adapter.KeyEnv
			if !registry.HasCredential(adapter) {
				status = "missing"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, env, status)
	}
	return w.Flush()
}
