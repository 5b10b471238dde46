package providers

import (
	"sort"
	"strings"

	"llmsweep/internal/config"
	"llmsweep/pkg/sweeptypes"
)

// Registry maps provider names to adapters and binds them to credentials.
type Registry struct {
	adapters    map[string]Adapter
	credentials *config.Credentials
}

// BuiltinAdapters returns every adapter shipped with llmsweep.
func BuiltinAdapters() []Adapter {
	return []Adapter{
		newOpenAICompatibleAdapter(openAICompatible{
			name:           "openrouter",
			keyEnv:         "OPENROUTER_API_KEY",
			baseURLEnv:     "OPENROUTER_BASE_URL",
			defaultBaseURL: "https://openrouter.ai/api/v1",
			topLogprobs:    2,
			extraHeaders:   map[string]string{"X-Title": "llmsweep"},
		}),
		newOpenAICompatibleAdapter(openAICompatible{
			name:           "openai",
			keyEnv:         "OPENAI_API_KEY",
			baseURLEnv:     "OPENAI_BASE_URL",
			defaultBaseURL: "https://api.openai.com/v1",
			topLogprobs:    5,
		}),
		newAnthropicAdapter(),
		newGeminiAdapter(),
		newOpenAICompatibleAdapter(openAICompatible{
			name:           "ollama",
			baseURLEnv:     "OLLAMA_BASE_URL",
			defaultBaseURL: "http://localhost:11434/v1",
			topLogprobs:    5,
		}),
		newOpenAICompatibleAdapter(openAICompatible{
			name:           "lmstudio",
			baseURLEnv:     "LMSTUDIO_BASE_URL",
			defaultBaseURL: "http://localhost:1234/v1",
			topLogprobs:    5,
		}),
	}
}

// NewRegistry creates a registry holding the builtin adapters.
func NewRegistry(credentials *config.Credentials) *Registry {
	r := &Registry{
		adapters:    make(map[string]Adapter),
		credentials: credentials,
	}
	for _, a := range BuiltinAdapters() {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an adapter under its lower-cased name.
func (r *Registry) Register(a Adapter) {
	r.adapters[strings.ToLower(a.Name)] = a
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve looks up an adapter case-insensitively.
func (r *Registry) Resolve(name string) (Adapter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if a, ok := r.adapters[key]; ok && key != "" {
		return a, nil
	}
	return Adapter{}, &UnsupportedProviderError{Name: name, Supported: r.Names()}
}

// HasCredential reports whether the adapter's credential requirement is met.
func (r *Registry) HasCredential(a Adapter) bool {
	return !a.RequiresKey() || r.credentials.Get(a.KeyEnv) != ""
}

// Bind resolves the experiment's provider and checks its credential once,
// before any network call is attempted.
func (r *Registry) Bind(cfg sweeptypes.ExperimentConfig) (*Binding, error) {
	adapter, err := r.Resolve(cfg.Provider)
	if err != nil {
		return nil, err
	}

	apiKey := r.credentials.Get(adapter.KeyEnv)
	if adapter.RequiresKey() && apiKey == "" {
		return nil, &MissingCredentialError{Provider: adapter.Name, EnvVar: adapter.KeyEnv}
	}

	baseURL := r.credentials.Get(adapter.BaseURLEnv)
	if baseURL == "" {
		baseURL = adapter.DefaultBaseURL
	}

	return &Binding{
		Adapter: adapter,
		Model:   cfg.Model,
		URL:     adapter.BuildURL(baseURL, cfg),
		apiKey:  apiKey,
	}, nil
}
