// Package permmgr implements the permission manager (C6): deny-list,
// allow-list, and callback-based evaluation of whether a tool invocation may
// proceed, with an updated-input/updated-permissions result shape.
//
// Grounded on the original crate's src/permissions/mod.rs in full: the
// evaluation order (deny-list first, then allow-list, then callback, then
// default-allow) is preserved, including the doc-commented caution about the
// default-allow fallback.
package permmgr

import (
	"context"

	"github.com/stevensu1977/flowq-agent-sdk/internal/observability"
)

// Decision is the outcome of evaluating a tool-use permission request.
type Decision int

const (
	// DecisionAllow permits the tool call to proceed, optionally with a
	// rewritten input or an updated permission-mode string.
	DecisionAllow Decision = iota
	// DecisionDeny blocks the tool call, optionally interrupting the whole
	// turn rather than just denying this one call.
	DecisionDeny
)

// Result is returned from a permission evaluation.
type Result struct {
	Decision           Decision
	UpdatedInput       any
	UpdatedPermissions *string
	Message            string
	Interrupt          bool
}

// Allow constructs a plain allow result.
func Allow() Result { return Result{Decision: DecisionAllow} }

// AllowWithInput constructs an allow result that rewrites the tool input
// before execution.
func AllowWithInput(input any) Result {
	return Result{Decision: DecisionAllow, UpdatedInput: input}
}

// Deny constructs a deny result carrying an explanatory message.
func Deny(message string) Result {
	return Result{Decision: DecisionDeny, Message: message}
}

// DenyAndInterrupt constructs a deny result that also interrupts the turn.
func DenyAndInterrupt(message string) Result {
	return Result{Decision: DecisionDeny, Message: message, Interrupt: true}
}

// Callback is a caller-supplied function consulted when a tool name matches
// neither the deny-list nor (if configured) the allow-list.
type Callback func(ctx context.Context, toolName string, input any) (Result, error)

// Manager evaluates tool-use permission requests in a fixed order:
// deny-list, then allow-list (if configured), then callback (if
// configured), then default-allow.
//
// The default-allow fallback mirrors the original crate's behavior
// verbatim; callers that want fail-closed semantics must configure an
// AllowList or a Callback that denies by default.
type Manager struct {
	DenyList  []string
	AllowList []string
	Callback  Callback
	logger    *observability.Logger
}

// New constructs a permission manager with an empty deny/allow list and no
// callback (i.e. default-allow for every tool).
func New(logger *observability.Logger) *Manager {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Manager{logger: logger}
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// CanUseTool evaluates whether toolName may run with the given input,
// following deny-list -> allow-list -> callback -> default-allow order.
func (m *Manager) CanUseTool(ctx context.Context, toolName string, input any) (Result, error) {
	if contains(m.DenyList, toolName) {
		m.logger.Info(ctx, "tool denied by deny-list", "tool_name", toolName)
		return Deny("tool is on the deny list: " + toolName), nil
	}

	if len(m.AllowList) > 0 && !contains(m.AllowList, toolName) {
		m.logger.Info(ctx, "tool denied: not on allow-list", "tool_name", toolName)
		return Deny("tool is not on the allow list: " + toolName), nil
	}

	if m.Callback != nil {
		return m.Callback(ctx, toolName, input)
	}

	return Allow(), nil
}
