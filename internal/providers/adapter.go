package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"llmsweep/pkg/sweeptypes"
)

// maxReplyBytes caps how much of a provider reply is read.
const maxReplyBytes = 64 << 20

// Adapter is the per-provider translation of an experiment into one wire format.
type Adapter struct {
	// Name is the lower-case registry key.
	Name string
	// KeyEnv names the credential variable. Empty means no credential is required.
	KeyEnv string
	// BaseURLEnv names an optional variable overriding DefaultBaseURL.
	BaseURLEnv     string
	DefaultBaseURL string
	// TopLogprobsDefault applies when logprobs are requested without a count.
	TopLogprobsDefault int

	BuildURL     func(baseURL string, cfg sweeptypes.ExperimentConfig) string
	BuildHeaders func(apiKey string) map[string]string
	BuildBody    func(cfg sweeptypes.ExperimentConfig, temperature float64) ([]byte, error)
	Extract      func(raw []byte) (sweeptypes.Completion, error)
}

// RequiresKey reports whether the adapter needs a credential before any call.
func (a Adapter) RequiresKey() bool {
	return a.KeyEnv != ""
}

// Binding is an adapter resolved against credentials for one experiment.
type Binding struct {
	Adapter Adapter
	Model   string
	URL     string
	apiKey  string
}

// Call performs one POST for the given temperature. Every failure comes back as
// a *CallError.
func (b *Binding) Call(ctx context.Context, client *http.Client, cfg sweeptypes.ExperimentConfig, temperature float64) (sweeptypes.Completion, error) {
	body, err := b.Adapter.BuildBody(cfg, temperature)
	if err != nil {
		return sweeptypes.Completion{}, b.newCallError(0, nil, fmt.Errorf("build request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return sweeptypes.Completion{}, b.newCallError(0, nil, fmt.Errorf("build request: %w", err))
	}
	for k, v := range b.Adapter.BuildHeaders(b.apiKey) {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return sweeptypes.Completion{}, b.newCallError(0, nil, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return sweeptypes.Completion{}, b.newCallError(resp.StatusCode, nil, fmt.Errorf("read reply: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return sweeptypes.Completion{}, b.newCallError(resp.StatusCode, raw, nil)
	}

	completion, err := b.Adapter.Extract(raw)
	if err != nil {
		return sweeptypes.Completion{}, b.newCallError(resp.StatusCode, nil, err)
	}
	return completion, nil
}

func (b *Binding) newCallError(status int, body []byte, cause error) *CallError {
	return &CallError{
		Provider: b.Adapter.Name,
		Model:    b.Model,
		Status:   status,
		Body:     body,
		Cause:    cause,
	}
}

// topLogprobs returns the requested alternatives count or the provider default.
func topLogprobs(cfg sweeptypes.ExperimentConfig, def int) int {
	if cfg.TopLogprobs > 0 {
		return cfg.TopLogprobs
	}
	return def
}

func jsonHeaders() map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}
