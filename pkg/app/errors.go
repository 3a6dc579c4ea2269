package app

import "fmt"

// StartupError is returned by providers that cannot build their component. It is the only
// error the entry point treats as fatal.
type StartupError struct {
	Component string
	Err       error
}

func NewStartupError(component string, err error) *StartupError {
	return &StartupError{Component: component, Err: err}
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("failed to start %s: %s", e.Component, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
