package binding

import (
	"errors"
	"fmt"
)

var ErrConfiguration = errors.New("binding: configuration error")

// ConfigurationError is returned when operations cannot form one bound set.
type ConfigurationError struct {
	Operation string
	Conflict  string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Conflict == "" {
		return fmt.Sprintf("binding: operation %s: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("binding: operation %s conflicts with %s: %s", e.Operation, e.Conflict, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
