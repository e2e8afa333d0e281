package audio

import (
	"errors"
	"fmt"
)

// ErrEmptyCapture is returned when a capture window closes without a
// single frame arriving from the driver.
var ErrEmptyCapture = errors.New("no audio captured")

// ConfigError reports an invalid capture parameter. It is always
// returned before any device is opened.
type ConfigError struct {
	Param string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Param, e.Value)
}
