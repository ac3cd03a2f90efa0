// Package sdkerrors defines the SDK's error taxonomy: one tagged type per
// failure kind named in the spec, each satisfying the standard error
// interface and unwrapping to its underlying cause via errors.As/errors.Is.
package sdkerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for conditions that have no additional structured fields.
var (
	// ErrTransportClosed indicates an operation was attempted on a transport
	// that has already been closed.
	ErrTransportClosed = errors.New("transport closed")

	// ErrNotConnected indicates a write or read was attempted before Connect
	// succeeded.
	ErrNotConnected = errors.New("transport not connected")

	// ErrMaxIterations indicates the direct-provider loop hit its iteration
	// cap without the model signaling end_turn.
	ErrMaxIterations = errors.New("direct-provider loop: iteration cap reached")
)

// CliNotFoundError reports that the Agent CLI binary could not be located by
// any of the resolution steps in §4.1 (caller-supplied path, PATH search,
// well-known install locations).
type CliNotFoundError struct {
	// Hint is a human-readable installation suggestion.
	Hint string
}

func (e *CliNotFoundError) Error() string {
	if e.Hint != "" {
		return "agent CLI not found: " + e.Hint
	}
	return "agent CLI not found"
}

// NewCliNotFoundError builds the default CliNotFoundError with an
// installation hint, mirroring the original crate's cli_not_found().
func NewCliNotFoundError() *CliNotFoundError {
	return &CliNotFoundError{
		Hint: "install with: npm install -g @anthropic-ai/claude-code\n" +
			"if already installed locally, try: export PATH=\"$HOME/node_modules/.bin:$PATH\"\n" +
			"or pass an explicit CLI path via transport.Config.CliPath",
	}
}

// ConnectionError reports a failure establishing or maintaining the
// subprocess connection (distinct from a non-zero process exit, which is
// ProcessError).
type ConnectionError struct {
	Message string
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection error: %s: %v", e.Message, e.Cause)
	}
	return "connection error: " + e.Message
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// ProcessError reports that the Agent CLI process exited with a non-zero
// code. Stderr holds the child's stderr text when a caller fills it in; the
// subprocess transport leaves it empty and logs stderr lines at debug level
// instead.
type ProcessError struct {
	Message  string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process error (exit code %d): %s", e.ExitCode, e.Message)
}

// JsonDecodeError wraps a JSON unmarshal failure encountered while decoding
// a line of CLI output.
type JsonDecodeError struct {
	Cause error
}

func (e *JsonDecodeError) Error() string { return "json decode error: " + e.Cause.Error() }
func (e *JsonDecodeError) Unwrap() error { return e.Cause }

// MessageParseError reports that a well-formed JSON value did not match any
// variant of the Message discriminated union (§3). Data carries the
// original value for diagnostics.
type MessageParseError struct {
	Message string
	Data    any
}

func (e *MessageParseError) Error() string { return "message parse error: " + e.Message }

// TransportError reports a failure in the transport layer not otherwise
// covered by ConnectionError or ProcessError (e.g. a write after close).
type TransportError struct {
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport error: %s: %v", e.Message, e.Cause)
	}
	return "transport error: " + e.Message
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ControlProtocolError reports a fatal violation of the control envelope
// protocol, such as a protocol-version mismatch on init_response. A
// response for a request id with no pending slot is dropped silently and is
// not an error; a control envelope whose fields fail to decode is reported
// as the underlying encoding/json error, not as this type.
type ControlProtocolError struct {
	Message string
}

func (e *ControlProtocolError) Error() string { return "control protocol error: " + e.Message }

// HookError reports a failure invoking a registered hook callback. Per
// spec §7 these are logged and do not propagate to the caller; the type
// exists so the hook manager and its tests can report failures uniformly.
type HookError struct {
	Event   string
	Message string
	Cause   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook error (%s): %s", e.Event, e.Message)
}

func (e *HookError) Unwrap() error { return e.Cause }

// ToolError reports a failure executing an in-process tool (C7) or the
// memory tool (C11). Classification mirrors the teacher's
// internal/agent.ToolError: a Kind is inferred from the underlying cause so
// callers can decide whether to retry.
type ToolError struct {
	ToolName string
	Kind     ToolErrorKind
	Message  string
	Cause    error
}

func (e *ToolError) Error() string {
	if e.ToolName != "" {
		return fmt.Sprintf("tool error [%s] %s: %s", e.Kind, e.ToolName, e.Message)
	}
	return fmt.Sprintf("tool error [%s]: %s", e.Kind, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// WithKind sets the error kind and returns the receiver for chaining.
func (e *ToolError) WithKind(k ToolErrorKind) *ToolError {
	e.Kind = k
	return e
}

// ToolErrorKind categorizes a ToolError for retry decisions.
type ToolErrorKind string

const (
	ToolErrorNotFound     ToolErrorKind = "not_found"
	ToolErrorInvalidInput ToolErrorKind = "invalid_input"
	ToolErrorTimeout      ToolErrorKind = "timeout"
	ToolErrorNetwork      ToolErrorKind = "network"
	ToolErrorPermission   ToolErrorKind = "permission"
	ToolErrorRateLimit    ToolErrorKind = "rate_limit"
	ToolErrorExecution    ToolErrorKind = "execution"
	ToolErrorUnknown      ToolErrorKind = "unknown"
)

// IsRetryable reports whether this kind suggests retrying may succeed.
func (k ToolErrorKind) IsRetryable() bool {
	switch k {
	case ToolErrorTimeout, ToolErrorNetwork, ToolErrorRateLimit:
		return true
	default:
		return false
	}
}

// NewToolError builds a ToolError with its kind inferred from cause's text,
// mirroring classifyToolError in the teacher's internal/agent/errors.go.
func NewToolError(toolName string, cause error) *ToolError {
	e := &ToolError{ToolName: toolName, Cause: cause, Kind: ToolErrorUnknown}
	if cause != nil {
		e.Message = cause.Error()
		e.Kind = classifyToolError(cause)
	}
	return e
}

func classifyToolError(err error) ToolErrorKind {
	if err == nil {
		return ToolErrorUnknown
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "timeout"), strings.Contains(s, "timed out"),
		strings.Contains(s, "deadline exceeded"):
		return ToolErrorTimeout
	case strings.Contains(s, "connection"), strings.Contains(s, "network"),
		strings.Contains(s, "refused"), strings.Contains(s, "unreachable"):
		return ToolErrorNetwork
	case strings.Contains(s, "rate limit"), strings.Contains(s, "429"),
		strings.Contains(s, "too many requests"):
		return ToolErrorRateLimit
	case strings.Contains(s, "permission"), strings.Contains(s, "forbidden"),
		strings.Contains(s, "unauthorized"):
		return ToolErrorPermission
	case strings.Contains(s, "invalid"), strings.Contains(s, "validation"),
		strings.Contains(s, "required"), strings.Contains(s, "missing"):
		return ToolErrorInvalidInput
	default:
		return ToolErrorExecution
	}
}

// IoError wraps a stdlib I/O failure (stdin/stdout/file operations).
type IoError struct {
	Cause error
}

func (e *IoError) Error() string { return "io error: " + e.Cause.Error() }
func (e *IoError) Unwrap() error { return e.Cause }

// TimeoutError reports that a bounded wait (per-line read, close) expired.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string { return "timeout: " + e.Message }

// InvalidConfigError reports a synchronous configuration failure: an
// unknown hook pattern, a malformed MCP config path, an out-of-range
// option.
type InvalidConfigError struct {
	Message string
}

func (e *InvalidConfigError) Error() string { return "invalid configuration: " + e.Message }

// As-helpers, mirroring the teacher's GetToolError/IsToolError/IsToolRetryable.

// GetToolError extracts a *ToolError from an error chain.
func GetToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsToolRetryable reports whether err is a ToolError whose kind is retryable.
func IsToolRetryable(err error) bool {
	if te, ok := GetToolError(err); ok {
		return te.Kind.IsRetryable()
	}
	return false
}
