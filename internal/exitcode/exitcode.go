package exitcode

import (
	"os"
	"strings"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

// Exit codes reported to the orchestrator. It decides on retries from these.
const (
	// Success indicates every phase completed
	Success = 0

	// GeneralError indicates an unclassified failure
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates a missing or unwritable project file or an invalid task
	ConfigError = 3

	// BuildFailed indicates the build tool failed or could not start
	BuildFailed = 4

	// PublishFailed indicates the artifact or log could not be published
	PublishFailed = 5

	// Interrupted indicates the run was cancelled by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps an error to an exit code. Coded errors map by
// category; cobra usage errors are recognised by message.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	switch {
	case errors.IsCategory(err, errors.CategoryConfig):
		return ConfigError
	case errors.IsCategory(err, errors.CategoryBuild):
		return BuildFailed
	case errors.IsCategory(err, errors.CategoryPublish):
		return PublishFailed
	}

	errMsg := strings.ToLower(err.Error())
	for _, marker := range []string{"unknown flag", "unknown command", "required flag", "invalid argument", "accepts "} {
		if strings.Contains(errMsg, marker) {
			return UsageError
		}
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Project configuration error"
	case BuildFailed:
		return "Build failed"
	case PublishFailed:
		return "Publish failed"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
