package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"llmsweep/pkg/sweeptypes"
)

// UnsupportedProviderError is returned when a provider name is absent or unknown.
type UnsupportedProviderError struct {
	Name      string
	Supported []string
}

func (e *UnsupportedProviderError) Error() string {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Sprintf("provider is required (supported: %s)", strings.Join(e.Supported, ", "))
	}
	return fmt.Sprintf("unsupported provider %q (supported: %s)", e.Name, strings.Join(e.Supported, ", "))
}

// Unwrap classifies the error as a configuration error.
func (e *UnsupportedProviderError) Unwrap() error {
	return sweeptypes.ErrConfiguration
}

// MissingCredentialError is returned when a provider's secret is not set.
type MissingCredentialError struct {
	Provider string
	EnvVar   string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing API key for %s (set %s)", strings.ToUpper(e.Provider), e.EnvVar)
}

// Unwrap classifies the error as a credential error.
func (e *MissingCredentialError) Unwrap() error {
	return sweeptypes.ErrCredential
}

// CallError is a failed provider call: transport failure, non-2xx status, or an
// unusable reply. It is always absorbed into the result tree.
type CallError struct {
	Provider string
	Model    string
	Status   int
	Body     []byte
	Cause    error
}

func (e *CallError) Error() string {
	parts := []string{e.Provider}
	if e.Model != "" {
		parts = append(parts, "model="+e.Model)
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if msg := e.message(); msg != "" {
		parts = append(parts, msg)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying transport or decode error, if any.
func (e *CallError) Unwrap() error {
	return e.Cause
}

// message prefers the cause, then a provider-supplied message in the body.
func (e *CallError) message() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	if len(e.Body) == 0 {
		return ""
	}
	if gjson.ValidBytes(e.Body) {
		for _, path := range []string{"error.message", "error", "message", "detail"} {
			if r := gjson.GetBytes(e.Body, path); r.Exists() && r.Type == gjson.String {
				return r.String()
			}
		}
	}
	return sweeptypes.Snippet(strings.TrimSpace(string(e.Body)), 500)
}

// Failure converts the error into the record stored in the result file.
func (e *CallError) Failure() *sweeptypes.CallFailure {
	failure := &sweeptypes.CallFailure{
		Message: e.Error(),
		Status:  e.Status,
	}
	if len(e.Body) > 0 {
		if gjson.ValidBytes(e.Body) {
			failure.Body = json.RawMessage(e.Body)
		} else if quoted, err := json.Marshal(string(e.Body)); err == nil {
			failure.Body = quoted
		}
	}
	return failure
}
