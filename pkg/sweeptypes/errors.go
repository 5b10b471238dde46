package sweeptypes

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two pre-flight failure classes. Both abort a single
// experiment before any network activity; queue mode moves on to the next one.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrCredential    = errors.New("credential error")
)

// ConfigError reports an invalid or missing experiment field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// Unwrap lets callers match ConfigError with errors.Is(err, ErrConfiguration).
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}
