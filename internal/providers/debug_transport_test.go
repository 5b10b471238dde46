package providers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"llmsweep/internal/config"
	"llmsweep/pkg/sweeptypes"
)

func TestDebugTransport_RecordsExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"traced"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	var trace bytes.Buffer
	client := &http.Client{Transport: NewDebugTransport(srv.Client().Transport, &trace)}

	prompt := "Hi"
	cfg := sweeptypes.ExperimentConfig{Provider: "openai", Model: "gpt-4o", UserPrompt: &prompt}
	b, err := NewRegistry(config.NewCredentials(map[string]string{
		"OPENAI_API_KEY":  "sk-very-secret-key",
		"OPENAI_BASE_URL": srv.URL,
	})).Bind(cfg)
	require.NoError(t, err)

	completion, err := b.Call(context.Background(), client, cfg, 0.4)
	require.NoError(t, err)
	require.NotNil(t, completion.Text)
	assert.Equal(t, "traced", *completion.Text, "the reply body must still reach the caller")

	lines := strings.Split(strings.TrimSpace(trace.String()), "\n")
	require.Len(t, lines, 1)
	line := lines[0]

	assert.Equal(t, "POST", gjson.Get(line, "http_request.method").String())
	assert.InDelta(t, 0.4, gjson.Get(line, "http_request.body.temperature").Float(), 1e-9)
	assert.Equal(t, int64(200), gjson.Get(line, "http_response.status_code").Int())
	assert.Equal(t, "traced", gjson.Get(line, "http_response.body.choices.0.message.content").String())
	assert.True(t, gjson.Get(line, "timing.duration_ms").Exists())

	auth := gjson.Get(line, "http_request.headers.Authorization.0").String()
	assert.NotContains(t, auth, "secret")
	assert.Contains(t, auth, "***[MASKED]***")
}

func TestDebugTransport_RecordsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var trace bytes.Buffer
	client := &http.Client{Transport: NewDebugTransport(nil, &trace)}

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader("plain"))
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)

	assert.Equal(t, "plain", gjson.Get(trace.String(), "http_request.body").String())
	assert.True(t, gjson.Get(trace.String(), "http_response.error").Exists())
}

func TestSanitizeHeaders(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{name: "bearer keeps scheme prefix", header: "Authorization", value: "Bearer sk-or-v1-abcdef", expected: "Bearer sk-***[MASKED]***"},
		{name: "short authorization", header: "Authorization", value: "Bearer x", expected: "***[MASKED]***"},
		{name: "anthropic key fully masked", header: "x-api-key", value: "sk-ant-api03-abcdefghijkl", expected: "***[MASKED]***"},
		{name: "google key fully masked", header: "X-Goog-Api-Key", value: "AIzaSyLongEnoughKey", expected: "***[MASKED]***"},
		{name: "token header fully masked", header: "X-Session-Token", value: "tok_0123456789abcdef", expected: "***[MASKED]***"},
		{name: "proxy authorization fully masked", header: "Proxy-Authorization", value: "Basic dXNlcjpwYXNzd29yZA==", expected: "***[MASKED]***"},
		{name: "plain header untouched", header: "Content-Type", value: "application/json", expected: "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(tt.header, tt.value)

			got := sanitizeHeaders(h)
			assert.Equal(t, []string{tt.expected}, got[http.CanonicalHeaderKey(tt.header)])
		})
	}
}
