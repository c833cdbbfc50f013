package bundle

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a configuration error. Compilation is a pure
// function, so nothing here is retryable; the class determines how the
// failure is reported, not whether it is recovered.
type ErrorClass string

const (
	// ErrorClassAuthoring indicates an option value outside its declared
	// type or the closed Value set. Always fatal; never silently coerced.
	ErrorClassAuthoring ErrorClass = "authoring"

	// ErrorClassRemovedOption indicates use of an option that no longer
	// exists. Always fatal; the error names the replacement field.
	ErrorClassRemovedOption ErrorClass = "removed-option"
)

// ConfigError is a classified configuration error. A compilation that
// returns a ConfigError produces no manifest output at all, never a partial
// one.
type ConfigError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Field is the configuration field that caused the error, if known.
	Field string `json:"field,omitempty"`

	// Replacement names the field that supersedes a removed option.
	Replacement string `json:"replacement,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	switch {
	case e.Class == ErrorClassRemovedOption && e.Replacement != "":
		return fmt.Sprintf("[%s] option %q was removed, use %q instead", e.Class, e.Field, e.Replacement)
	case e.Field != "":
		return fmt.Sprintf("[%s] %s (field=%s)%s", e.Class, e.Message, e.Field, e.unwrapSuffix())
	default:
		return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapSuffix())
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) unwrapSuffix() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality for errors.Is.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Field == t.Field
}

// NewAuthoringError creates a fatal authoring error.
func NewAuthoringError(message string, err error) *ConfigError {
	return &ConfigError{
		Class:   ErrorClassAuthoring,
		Message: message,
		Err:     err,
	}
}

// NewRemovedOptionError creates a fatal error for a removed option, naming
// the field that replaces it.
func NewRemovedOptionError(field, replacement string) *ConfigError {
	return &ConfigError{
		Class:       ErrorClassRemovedOption,
		Message:     "option was removed",
		Field:       field,
		Replacement: replacement,
	}
}

// WithField adds field context to an error.
func (e *ConfigError) WithField(field string) *ConfigError {
	e.Field = field
	return e
}

// WithDetail adds a detail entry to the error context.
func (e *ConfigError) WithDetail(key string, value interface{}) *ConfigError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsAuthoring returns true if the error is classified as an authoring error.
func IsAuthoring(err error) bool {
	var e *ConfigError
	if errors.As(err, &e) {
		return e.Class == ErrorClassAuthoring
	}
	return false
}

// IsRemovedOption returns true if the error reports use of a removed option.
func IsRemovedOption(err error) bool {
	var e *ConfigError
	if errors.As(err, &e) {
		return e.Class == ErrorClassRemovedOption
	}
	return false
}

// Advisory is a non-fatal warning about a configuration field whose behavior
// changed or has no effect. Advisories are reported alongside a successful
// load and never block compilation.
type Advisory struct {
	// Field is the configuration field the advisory concerns.
	Field string `json:"field"`

	// Message explains the advisory.
	Message string `json:"message"`
}

// String renders the advisory for log output.
func (a Advisory) String() string {
	return fmt.Sprintf("%s: %s", a.Field, a.Message)
}
