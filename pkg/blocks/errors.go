package blocks

import (
	"errors"
	"fmt"
)

// ConfigError reports settings a block factory cannot work with.
type ConfigError struct {
	Block string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("block %q: invalid configuration: %v", e.Block, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a *ConfigError with a formatted message.
func Configf(block, format string, args ...any) error {
	return &ConfigError{Block: block, Err: fmt.Errorf(format, args...)}
}

// Error is a failure of one Update. Short is the text shown in the bar;
// the full message is Error(). A Retryable error keeps the block running
// with its previous output instead of entering the error state.
type Error struct {
	Short     string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Short
	}
	if e.Short == "" {
		return e.Err.Error()
	}
	return e.Short + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Fail wraps err as a fatal block error with a short bar message.
func Fail(short string, err error) error {
	return &Error{Short: short, Err: err}
}

// Retry wraps err as a retryable block error.
func Retry(short string, err error) error {
	return &Error{Short: short, Err: err, Retryable: true}
}

// Retryable reports whether err asks the runtime to keep the block running.
func Retryable(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Retryable
}

// Messages returns the short and full messages displayed for err.
func Messages(err error) (short, full string) {
	var be *Error
	if errors.As(err, &be) && be.Short != "" {
		return be.Short, err.Error()
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return "config error", err.Error()
	}
	return "error", err.Error()
}
