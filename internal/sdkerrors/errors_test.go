package sdkerrors

import (
	"errors"
	"testing"
)

func TestNewToolErrorClassification(t *testing.T) {
	cases := []struct {
		cause error
		want  ToolErrorKind
	}{
		{errors.New("request timed out"), ToolErrorTimeout},
		{errors.New("connection refused"), ToolErrorNetwork},
		{errors.New("429 too many requests"), ToolErrorRateLimit},
		{errors.New("permission denied"), ToolErrorPermission},
		{errors.New("missing required field"), ToolErrorInvalidInput},
		{errors.New("something blew up"), ToolErrorExecution},
	}

	for _, c := range cases {
		got := NewToolError("write", c.cause)
		if got.Kind != c.want {
			t.Errorf("classify(%q) = %s, want %s", c.cause, got.Kind, c.want)
		}
	}
}

func TestToolErrorKindIsRetryable(t *testing.T) {
	retryable := []ToolErrorKind{ToolErrorTimeout, ToolErrorNetwork, ToolErrorRateLimit}
	for _, k := range retryable {
		if !k.IsRetryable() {
			t.Errorf("%s should be retryable", k)
		}
	}
	notRetryable := []ToolErrorKind{ToolErrorNotFound, ToolErrorInvalidInput, ToolErrorPermission, ToolErrorExecution, ToolErrorUnknown}
	for _, k := range notRetryable {
		if k.IsRetryable() {
			t.Errorf("%s should not be retryable", k)
		}
	}
}

func TestGetToolErrorUnwraps(t *testing.T) {
	cause := errors.New("rate limit hit")
	toolErr := NewToolError("search", cause)
	wrapped := &ConnectionError{Message: "relaying", Cause: toolErr}

	got, ok := GetToolError(wrapped)
	if !ok {
		t.Fatal("expected GetToolError to find the wrapped ToolError")
	}
	if got.ToolName != "search" {
		t.Errorf("ToolName = %q, want %q", got.ToolName, "search")
	}
	if !IsToolRetryable(wrapped) {
		t.Error("expected wrapped rate-limit ToolError to be retryable")
	}
}

func TestProcessErrorMessage(t *testing.T) {
	err := &ProcessError{Message: "crashed", ExitCode: 1, Stderr: "boom"}
	want := "process error (exit code 1): crashed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
