package params

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig matches every configuration error via errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError describes one problem with a parameter set. Path is the
// key path of the offending value, e.g. "reach.general.outflow[2]".
type ConfigError struct {
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Errorf builds a ConfigError for path.
func Errorf(path, format string, args ...any) *ConfigError {
	return &ConfigError{Path: path, Message: fmt.Sprintf(format, args...)}
}
