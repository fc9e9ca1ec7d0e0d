package driver

import (
	"errors"
	"fmt"
)

var (
	ErrNotRegistered         = errors.New("driver: operation not registered")
	ErrDuplicateRegistration = errors.New("driver: duplicate registration")
	ErrUnsupportedEndpoint   = errors.New("driver: unsupported endpoint")
	ErrClosed                = errors.New("driver: closed")
)

// ArgumentError reports arguments that do not fit a registered operation.
type ArgumentError struct {
	Operation string
	Index     int
	Reason    string
}

func (e *ArgumentError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("driver: %s: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("driver: %s argument %d: %s", e.Operation, e.Index+1, e.Reason)
}

// StatusError is a non-2xx HTTP response that carried no fault.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("driver: http status %s", e.Status)
	}
	return fmt.Sprintf("driver: http status %s: %s", e.Status, e.Body)
}
