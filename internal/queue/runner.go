// Package queue runs a list of experiments one after another.
package queue

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"llmsweep/internal/logger"
	"llmsweep/internal/metrics"
	"llmsweep/pkg/sweeptypes"
)

// Sweeper runs a single experiment.
type Sweeper interface {
	Run(ctx context.Context, cfg sweeptypes.ExperimentConfig) (*sweeptypes.ExperimentResult, error)
}

// Persister stores a finished result and returns where it went.
type Persister interface {
	Persist(result *sweeptypes.ExperimentResult, requested string) (string, error)
}

// Status of one experiment in a queue run.
type Status string

const (
	StatusCompleted Status = metrics.StatusCompleted
	StatusAborted   Status = metrics.StatusAborted
)

// promptSnippetLen is how much of the prompt progress lines show.
const promptSnippetLen = 50

// Outcome records what happened to one experiment.
type Outcome struct {
	Index       int
	Provider    string
	Model       string
	Status      Status
	OutputPath  string
	Calls       int
	FailedCalls int
	Err         error
}

// Summary is the result of a queue run, one outcome per input in order.
type Summary struct {
	Outcomes []Outcome
}

// Succeeded counts experiments whose result was persisted.
func (s Summary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// Failed counts experiments that were aborted.
func (s Summary) Failed() int {
	return len(s.Outcomes) - s.Succeeded()
}

// Runner drives the engine and sink over a list of experiments.
type Runner struct {
	engine Sweeper
	sink   Persister
	log    *log.Logger
}

// NewRunner creates a queue runner.
func NewRunner(engine Sweeper, sink Persister) *Runner {
	return &Runner{
		engine: engine,
		sink:   sink,
		log:    logger.NewStyledLogger("queue"),
	}
}

// Run executes configs sequentially. An experiment that fails pre-flight or
// cannot be persisted is logged and recorded; the next one still runs.
// Once ctx is done, the remaining experiments are recorded as aborted without
// being run or persisted.
func (r *Runner) Run(ctx context.Context, configs []sweeptypes.ExperimentConfig) Summary {
	total := len(configs)
	summary := Summary{Outcomes: make([]Outcome, 0, total)}

	for i, cfg := range configs {
		if err := ctx.Err(); err != nil {
			outcome := Outcome{
				Index:    i,
				Provider: cfg.Provider,
				Model:    cfg.Model,
				Status:   StatusAborted,
				Err:      fmt.Errorf("skipped: %w", err),
			}
			metrics.ObserveExperiment(string(outcome.Status))
			r.log.Warn(fmt.Sprintf("[%d/%d] Experiment skipped", i+1, total), "error", err)
			summary.Outcomes = append(summary.Outcomes, outcome)
			continue
		}

		r.log.Info(fmt.Sprintf("[%d/%d] Running experiment", i+1, total),
			"provider", cfg.Provider,
			"model", cfg.Model,
			"prompt", sweeptypes.Snippet(cfg.Prompt(), promptSnippetLen))

		outcome := r.runOne(ctx, i, cfg)
		metrics.ObserveExperiment(string(outcome.Status))

		if outcome.Err != nil {
			r.log.Error(fmt.Sprintf("[%d/%d] Experiment aborted", i+1, total), "error", outcome.Err)
		} else {
			r.log.Info(fmt.Sprintf("[%d/%d] Experiment completed", i+1, total),
				"path", outcome.OutputPath,
				"calls", outcome.Calls,
				"failed", outcome.FailedCalls)
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	r.log.Info("Queue finished", "total", total, "succeeded", summary.Succeeded(), "failed", summary.Failed())
	return summary
}

func (r *Runner) runOne(ctx context.Context, index int, cfg sweeptypes.ExperimentConfig) Outcome {
	outcome := Outcome{
		Index:    index,
		Provider: cfg.Provider,
		Model:    cfg.Model,
		Status:   StatusAborted,
	}

	result, err := r.engine.Run(ctx, cfg)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Calls, outcome.FailedCalls = result.CallCount()

	path, err := r.sink.Persist(result, cfg.OutputFile)
	if err != nil {
		outcome.Err = fmt.Errorf("persist result: %w", err)
		return outcome
	}

	outcome.Status = StatusCompleted
	outcome.OutputPath = path
	return outcome
}
