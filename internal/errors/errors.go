package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Config errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigNotFound    ErrorCode = "CONFIG-001"
	ErrCodeConfigUnreadable  ErrorCode = "CONFIG-002"
	ErrCodeConfigInvalidTask ErrorCode = "CONFIG-003"
	ErrCodeConfigLoad        ErrorCode = "CONFIG-004"

	// Build errors (BUILD-001 to BUILD-099)
	ErrCodeBuildExitNonZero ErrorCode = "BUILD-001"
	ErrCodeBuildSpawnFailed ErrorCode = "BUILD-002"
	ErrCodeBuildLogFile     ErrorCode = "BUILD-003"

	// Publish errors (PUBLISH-001 to PUBLISH-099)
	ErrCodePublishArtifactMissing ErrorCode = "PUBLISH-001"
	ErrCodePublishUploadFailed    ErrorCode = "PUBLISH-002"
	ErrCodePublishChecksumFailed  ErrorCode = "PUBLISH-003"
	ErrCodePublishStoreConfig     ErrorCode = "PUBLISH-004"
)

// Category is the prefix of an error code, e.g. "BUILD" for "BUILD-001"
type Category string

const (
	CategoryConfig  Category = "CONFIG"
	CategoryBuild   Category = "BUILD"
	CategoryPublish Category = "PUBLISH"
)

// Category returns the category portion of the code
func (c ErrorCode) Category() Category {
	prefix, _, _ := strings.Cut(string(c), "-")
	return Category(prefix)
}

// DriverError represents an error with code, suggestions, and documentation
type DriverError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *DriverError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *DriverError) Unwrap() error {
	return e.Cause
}

// New creates a new DriverError
func New(code ErrorCode, message string) *DriverError {
	return &DriverError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new DriverError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *DriverError {
	return &DriverError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *DriverError) WithSuggestion(suggestion string) *DriverError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *DriverError) WithSuggestions(suggestions ...string) *DriverError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// GetCode returns the code of the first DriverError in err's chain.
func GetCode(err error) (ErrorCode, bool) {
	var de *DriverError
	if stderrors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// HasCode reports whether any DriverError in err's tree carries code.
// Joined errors are searched branch by branch.
func HasCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *DriverError:
		return e.Code == code || HasCode(e.Cause, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return HasCode(e.Unwrap(), code)
	}
	return false
}

// IsCategory reports whether err carries a code in the given category.
func IsCategory(err error, category Category) bool {
	code, ok := GetCode(err)
	return ok && code.Category() == category
}

// Common error constructors for frequently used errors

// NewConfigNotFoundError reports a project file that has to exist
func NewConfigNotFoundError(path string) *DriverError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("required config file not found: %s", path)).
		WithSuggestion("Check that the workspace is checked out at the expected branch").
		WithSuggestion("Set gradle.kotlin when the project uses build.gradle.kts")
}

// NewConfigIOError wraps a read or write failure on a project file
func NewConfigIOError(path string, cause error) *DriverError {
	return Wrap(ErrCodeConfigUnreadable, fmt.Sprintf("cannot rewrite config file: %s", path), cause).
		WithSuggestion("Verify the workspace is writable by the build user")
}

// NewInvalidTaskError reports a task that cannot enter the lifecycle
func NewInvalidTaskError(details string) *DriverError {
	return New(ErrCodeConfigInvalidTask, fmt.Sprintf("invalid build task: %s", details))
}

// NewBuildExitError reports a build tool that exited with a non-zero status
func NewBuildExitError(command string, exitCode int, cause error) *DriverError {
	return Wrap(ErrCodeBuildExitNonZero, fmt.Sprintf("%s exited with code %d", command, exitCode), cause).
		WithSuggestion("Inspect gradle.log in the workspace for the failing task")
}

// NewBuildSpawnError reports a build tool that could not be started
func NewBuildSpawnError(command string, cause error) *DriverError {
	return Wrap(ErrCodeBuildSpawnFailed, fmt.Sprintf("failed to start %s", command), cause).
		WithSuggestion("Make sure the Gradle wrapper is committed and executable (chmod +x gradlew)")
}

// NewArtifactMissingError reports a build output that could not be read
func NewArtifactMissingError(path string, cause error) *DriverError {
	return Wrap(ErrCodePublishArtifactMissing, fmt.Sprintf("build artifact not readable: %s", path), cause).
		WithSuggestion("Check gradle.target matches the jar name produced in build/libs").
		WithSuggestion("Enable gradle.shadowJar if the project publishes a fat jar")
}

// NewUploadError wraps a remote store failure
func NewUploadError(key string, cause error) *DriverError {
	return Wrap(ErrCodePublishUploadFailed, fmt.Sprintf("failed to upload %s", key), cause)
}
