package appdctl_err

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsExpectedUserError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("disk full"),
			want: false,
		},
		{
			name: "user error",
			err:  NewUserError("operation cancelled"),
			want: true,
		},
		{
			name: "wrapped user error",
			err:  fmt.Errorf("remove: %w", NewExpectedError(errors.New("declined"))),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsExpectedUserError(tt.err); got != tt.want {
				t.Errorf("IsExpectedUserError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", got)
	}
	if got := ExitCode(NewUserError("aborted")); got != 0 {
		t.Errorf("ExitCode(user error) = %d, want 0", got)
	}
	if got := ExitCode(errors.New("unzip failed")); got != 1 {
		t.Errorf("ExitCode(system error) = %d, want 1", got)
	}
}

func TestNewExpectedErrorNil(t *testing.T) {
	t.Parallel()
	if NewExpectedError(nil) != nil {
		t.Error("NewExpectedError(nil) should return nil")
	}
}

func TestExtractSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		output        string
		maxCandidates int
		want          string
	}{
		{
			name:          "empty output",
			output:        "",
			maxCandidates: 3,
			want:          "No output provided.",
		},
		{
			name:          "whitespace only",
			output:        "   \n\n   ",
			maxCandidates: 3,
			want:          "No output provided.",
		},
		{
			name:          "single error line",
			output:        "Error: unit not found",
			maxCandidates: 3,
			want:          "Error: unit not found",
		},
		{
			name:          "picks failure lines over noise",
			output:        "Extracting archive\nunzip: cannot find zipfile directory\nDone",
			maxCandidates: 3,
			want:          "unzip: cannot find zipfile directory",
		},
		{
			name:          "caps candidates",
			output:        "error one\nerror two\nerror three",
			maxCandidates: 2,
			want:          "error one - error two",
		},
		{
			name:          "no failure keywords falls back to first line",
			output:        "all good\nnothing to see",
			maxCandidates: 3,
			want:          "all good",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractSummary(tt.output, tt.maxCandidates)
			if got != tt.want {
				t.Errorf("ExtractSummary() = %q, want %q", got, tt.want)
			}
			if tt.output == "" && !strings.Contains(got, "No output") {
				t.Error("empty output should report no output")
			}
		})
	}
}
