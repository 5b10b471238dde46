package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"llmsweep/internal/config"
	"llmsweep/internal/providers"
	"llmsweep/pkg/sweeptypes"
)

// recordingServer is an OpenAI-compatible endpoint that records request order.
type recordingServer struct {
	mu       sync.Mutex
	temps    []float64
	bodies   []string
	failCall map[int]bool
}

func (s *recordingServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		s.mu.Lock()
		s.temps = append(s.temps, gjson.GetBytes(body, "temperature").Float())
		s.bodies = append(s.bodies, string(body))
		call := len(s.temps)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if s.failCall[call] {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"choices":[{"message":{"content":"reply %d"},"finish_reason":"stop","logprobs":{"content":[]}}]}`, call)
	}
}

func newTestEngine(t *testing.T, srv *httptest.Server, creds map[string]string) *Engine {
	t.Helper()
	values := map[string]string{"OLLAMA_BASE_URL": srv.URL}
	for k, v := range creds {
		values[k] = v
	}
	registry := providers.NewRegistry(config.NewCredentials(values))
	return NewEngine(registry,
		WithDelay(0),
		WithHTTPClient(srv.Client()),
		WithClock(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)
}

func ollamaConfig() sweeptypes.ExperimentConfig {
	prompt := "Hi"
	return sweeptypes.ExperimentConfig{
		Provider:         "ollama",
		Model:            "llama3",
		UserPrompt:       &prompt,
		TemperatureRange: &sweeptypes.TemperatureRange{Start: 0, End: 0.2, Step: 0.1},
		N:                2,
	}
}

func TestEngine_Run_SweepOrder(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	engine := newTestEngine(t, srv, nil)
	result, err := engine.Run(context.Background(), ollamaConfig())
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0.1, 0.1, 0.2, 0.2}, rec.temps)
	require.Len(t, result.Experiments, 3)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), result.Timestamp)

	call := 0
	for i, entry := range result.Experiments {
		assert.Equal(t, []float64{0, 0.1, 0.2}[i], entry.Temperature)
		require.Len(t, entry.Iterations, 2)
		for j, it := range entry.Iterations {
			call++
			assert.Equal(t, j+1, it.Iteration)
			assert.False(t, it.Failed())
			assert.Equal(t, fmt.Sprintf("reply %d", call), it.Text)
			assert.Equal(t, "stop", it.FinishReason)
			assert.JSONEq(t, `{"content":[]}`, string(it.Logprobs))
		}
	}

	for _, body := range rec.bodies {
		assert.Equal(t, "llama3", gjson.Get(body, "model").String())
		assert.Equal(t, "Hi", gjson.Get(body, "messages.0.content").String())
	}
}

func TestEngine_Run_CallFailuresAreRecorded(t *testing.T) {
	rec := &recordingServer{failCall: map[int]bool{2: true, 5: true}}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	engine := newTestEngine(t, srv, nil)
	result, err := engine.Run(context.Background(), ollamaConfig())
	require.NoError(t, err)

	total, failed := result.CallCount()
	assert.Equal(t, 6, total)
	assert.Equal(t, 2, failed)

	bad := result.Experiments[0].Iterations[1]
	require.True(t, bad.Failed())
	assert.Equal(t, 2, bad.Iteration)
	assert.Equal(t, 500, bad.Error.Status)
	assert.Contains(t, bad.Error.Message, "model overloaded")
	assert.Empty(t, bad.Text)

	assert.True(t, result.Experiments[2].Iterations[0].Failed())
	assert.False(t, result.Experiments[2].Iterations[1].Failed())
}

func TestEngine_Run_DefaultsToSingleRunAtZero(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	cfg := ollamaConfig()
	cfg.TemperatureRange = nil
	cfg.N = 0

	result, err := newTestEngine(t, srv, nil).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, []float64{0}, rec.temps)
	assert.Equal(t, 1, result.Config.N)
	require.Len(t, result.Experiments, 1)
	assert.Len(t, result.Experiments[0].Iterations, 1)
}

func TestEngine_Run_PreflightErrors(t *testing.T) {
	empty := ""
	tests := []struct {
		name   string
		mutate func(cfg *sweeptypes.ExperimentConfig)
		target error
	}{
		{
			name:   "unknown provider",
			mutate: func(cfg *sweeptypes.ExperimentConfig) { cfg.Provider = "nonexistent" },
			target: sweeptypes.ErrConfiguration,
		},
		{
			name:   "missing provider",
			mutate: func(cfg *sweeptypes.ExperimentConfig) { cfg.Provider = "" },
			target: sweeptypes.ErrConfiguration,
		},
		{
			name:   "missing credential",
			mutate: func(cfg *sweeptypes.ExperimentConfig) { cfg.Provider = "openai" },
			target: sweeptypes.ErrCredential,
		},
		{
			name:   "missing user prompt",
			mutate: func(cfg *sweeptypes.ExperimentConfig) { cfg.UserPrompt = nil },
			target: sweeptypes.ErrConfiguration,
		},
		{
			name: "bad range",
			mutate: func(cfg *sweeptypes.ExperimentConfig) {
				cfg.TemperatureRange = &sweeptypes.TemperatureRange{Start: 1, End: 0, Step: 0.1}
			},
			target: sweeptypes.ErrConfiguration,
		},
		{
			name: "infinite range",
			mutate: func(cfg *sweeptypes.ExperimentConfig) {
				cfg.TemperatureRange = &sweeptypes.TemperatureRange{Start: math.Inf(1), End: math.Inf(1), Step: 0.1}
			},
			target: sweeptypes.ErrConfiguration,
		},
		{
			name:   "missing model",
			mutate: func(cfg *sweeptypes.ExperimentConfig) { cfg.Model = ""; cfg.UserPrompt = &empty },
			target: sweeptypes.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingServer{}
			srv := httptest.NewServer(rec.handler(t))
			defer srv.Close()

			cfg := ollamaConfig()
			tt.mutate(&cfg)

			result, err := newTestEngine(t, srv, nil).Run(context.Background(), cfg)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.target), "unexpected error: %v", err)
			assert.Empty(t, rec.temps, "no request may be sent before pre-flight passes")
		})
	}
}

func TestEngine_Run_MissingCredentialNamesVariable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := ollamaConfig()
	cfg.Provider = "anthropic"

	_, err := newTestEngine(t, srv, nil).Run(context.Background(), cfg)
	var credErr *providers.MissingCredentialError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, "ANTHROPIC_API_KEY", credErr.EnvVar)
}

func TestEngine_Run_CancelledContextRecordsErrors(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestEngine(t, srv, nil).Run(ctx, ollamaConfig())
	require.NoError(t, err)

	total, failed := result.CallCount()
	assert.Equal(t, 6, total)
	assert.Equal(t, 6, failed)
}

func TestEngine_Wait(t *testing.T) {
	engine := &Engine{delay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		engine.wait(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after cancellation")
	}
}
