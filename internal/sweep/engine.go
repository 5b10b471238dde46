// Package sweep runs the temperature x repetition sweep of one experiment.
package sweep

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"llmsweep/internal/logger"
	"llmsweep/internal/metrics"
	"llmsweep/internal/providers"
	"llmsweep/pkg/sweeptypes"
)

// Defaults for the engine's pacing.
const (
	DefaultDelay       = 500 * time.Millisecond
	DefaultCallTimeout = 120 * time.Second
)

// Engine issues one provider call per (temperature, iteration) cell, strictly in
// order, and captures every call failure into the result tree.
type Engine struct {
	registry    *providers.Registry
	client      *http.Client
	delay       time.Duration
	callTimeout time.Duration
	now         func() time.Time
	log         *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithHTTPClient sets the client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithDelay sets the pause after each successful call. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.delay = d
	}
}

// WithCallTimeout bounds a single provider call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.callTimeout = d
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine backed by the given provider registry.
func NewEngine(registry *providers.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry:    registry,
		client:      &http.Client{},
		delay:       DefaultDelay,
		callTimeout: DefaultCallTimeout,
		now:         time.Now,
		log:         logger.NewStyledLogger("sweep"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.callTimeout <= 0 {
		e.callTimeout = DefaultCallTimeout
	}
	return e
}

// Run executes the full sweep for cfg. It returns an error only for pre-flight
// configuration or credential problems, before any network call. Individual call
// failures are recorded in the result and never stop the sweep.
func (e *Engine) Run(ctx context.Context, cfg sweeptypes.ExperimentConfig) (*sweeptypes.ExperimentResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	temps, err := Temperatures(cfg)
	if err != nil {
		return nil, err
	}
	binding, err := e.registry.Bind(cfg)
	if err != nil {
		return nil, err
	}

	cfg.N = cfg.Iterations()
	result := &sweeptypes.ExperimentResult{
		Config:      cfg,
		Timestamp:   e.now().UTC(),
		Experiments: make([]sweeptypes.TemperatureResult, 0, len(temps)),
	}

	e.log.Debug("Sweep planned", "provider", binding.Adapter.Name, "url", binding.URL, "temperatures", len(temps), "iterations", cfg.N)

	for _, temp := range temps {
		e.log.Info("Temperature", "provider", binding.Adapter.Name, "model", cfg.Model, "temperature", temp)

		entry := sweeptypes.TemperatureResult{
			Temperature: temp,
			Iterations:  make([]sweeptypes.CallResult, 0, cfg.N),
		}
		for i := 1; i <= cfg.N; i++ {
			res := e.call(ctx, binding, cfg, temp, i)
			entry.Iterations = append(entry.Iterations, res)
			if !res.Failed() {
				e.wait(ctx)
			}
		}
		result.Experiments = append(result.Experiments, entry)
	}

	return result, nil
}

// call performs one provider invocation and folds any failure into the result.
func (e *Engine) call(ctx context.Context, binding *providers.Binding, cfg sweeptypes.ExperimentConfig, temp float64, iteration int) sweeptypes.CallResult {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	start := time.Now()
	completion, err := binding.Call(callCtx, e.client, cfg, temp)
	elapsed := time.Since(start)
	metrics.ObserveCall(binding.Adapter.Name, binding.Model, err != nil, elapsed)

	if err != nil {
		failure := &sweeptypes.CallFailure{Message: err.Error()}
		var callErr *providers.CallError
		if errors.As(err, &callErr) {
			failure = callErr.Failure()
		}
		e.log.Error("Call failed", "temperature", temp, "iteration", iteration, "error", failure.Message)
		return sweeptypes.CallResult{Iteration: iteration, Error: failure}
	}

	logger.ProviderCall(binding.Adapter.Name, binding.Model, temp, iteration, "elapsed", elapsed, "finish_reason", completion.FinishReason)

	text := ""
	if completion.Text != nil {
		text = *completion.Text
	} else {
		e.log.Warn("No text returned", "temperature", temp, "iteration", iteration)
	}
	e.log.Info("Iteration done", "temperature", temp, "iteration", iteration, "of", cfg.N)

	return sweeptypes.CallResult{
		Iteration:    iteration,
		Text:         text,
		FinishReason: completion.FinishReason,
		Logprobs:     completion.Logprobs,
	}
}

// wait is the courtesy pause between calls. It returns early when ctx is done.
func (e *Engine) wait(ctx context.Context) {
	if e.delay <= 0 {
		return
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
