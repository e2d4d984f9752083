package exitcode

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error returns success", nil, Success},
		{"missing build file", errors.NewConfigNotFoundError("build.gradle"), ConfigError},
		{"invalid task", errors.NewInvalidTaskError("no workspace"), ConfigError},
		{"non-zero exit", errors.NewBuildExitError("./gradlew", 1, nil), BuildFailed},
		{"wrapped spawn failure", fmt.Errorf("run: %w", errors.NewBuildSpawnError("./gradlew", nil)), BuildFailed},
		{"upload failure", errors.NewUploadError("k", stderrors.New("offline")), PublishFailed},
		{
			"build failure joined with publish failure",
			stderrors.Join(errors.NewBuildExitError("./gradlew", 1, nil), errors.NewUploadError("k", nil)),
			BuildFailed,
		},
		{"unknown flag", stderrors.New("unknown flag: --foo"), UsageError},
		{"required flag", stderrors.New(`required flag(s) "workspace" not set`), UsageError},
		{"plain error", stderrors.New("something odd"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.expected {
				t.Errorf("DetermineExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	codes := []int{Success, GeneralError, UsageError, ConfigError, BuildFailed, PublishFailed, Interrupted}
	for _, code := range codes {
		if desc := GetExitCodeDescription(code); desc == "Unknown error" {
			t.Errorf("code %d has no description", code)
		}
	}
	if GetExitCodeDescription(99) != "Unknown error" {
		t.Error("expected unknown description for 99")
	}
}
