package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrResolverRequired     = sterrors.New("mockflow: resolver function is required")
	ErrMethodRequired       = sterrors.New("mockflow: HTTP method is required")
	ErrPatternRequired      = sterrors.New("mockflow: URL pattern is required")
	ErrInvalidPattern       = sterrors.New("mockflow: invalid URL pattern")
	ErrUnhandledRequest     = sterrors.New("mockflow: request has no matching mock endpoint")
	ErrInvalidFixture       = sterrors.New("mockflow: invalid fixture")
	ErrPublisherRequired    = sterrors.New("mockflow: journal publisher is required")
	ErrTopicRequired        = sterrors.New("mockflow: journal topic is required")
	ErrSubscribeUnsupported = sterrors.New("mockflow: journal sink does not support subscriptions")
	ErrConfigRequired       = sterrors.New("mockflow: configuration is required")
	ErrLoggerRequired       = sterrors.New("mockflow: logger is required")
)

// ConfigValidationError reports every problem found while validating a Config.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("mockflow: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err, returning nil when there is nothing to report.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
