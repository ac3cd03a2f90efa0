// Package hookmgr implements the hook manager (C5): matcher-based dispatch
// of pre/post tool-use and lifecycle hooks, with decision merging and
// short-circuit on block.
//
// Grounded on the original crate's src/hooks/mod.rs in full: the pattern
// matching rules, the merge-last-non-null-wins semantics, and the
// short-circuit-on-block behavior are transliterated one-for-one.
package hookmgr

import (
	"context"
	"strings"

	"github.com/stevensu1977/flowq-agent-sdk/internal/observability"
)

// Event enumerates the lifecycle points a hook may be registered for (§3).
type Event string

const (
	EventPreToolUse       Event = "pre_tool_use"
	EventPostToolUse      Event = "post_tool_use"
	EventUserPromptSubmit Event = "user_prompt_submit"
	EventStop             Event = "stop"
	EventSubagentStop     Event = "subagent_stop"
	EventPreCompact       Event = "pre_compact"
)

// Decision is the terminal verdict a hook callback may return.
type Decision string

// Block is the only decision value with SDK-visible meaning; any other
// (empty) decision leaves the conversation to proceed normally.
const Block Decision = "block"

// Output is the result of invoking one or more hook callbacks for a given
// event. Fields are merged last-non-null-wins across callbacks (§4.4).
type Output struct {
	Decision          Decision
	SystemMessage     string
	HookSpecificOutput any
}

// merge overlays non-zero fields from other onto o, matching "the most
// recent non-null field wins".
func (o *Output) merge(other Output) {
	if other.Decision != "" {
		o.Decision = other.Decision
	}
	if other.SystemMessage != "" {
		o.SystemMessage = other.SystemMessage
	}
	if other.HookSpecificOutput != nil {
		o.HookSpecificOutput = other.HookSpecificOutput
	}
}

// Callback is a caller-supplied async function invoked at a hook point. It
// may observe, annotate, or block the tool use / lifecycle event it is
// attached to.
type Callback func(ctx context.Context, toolName string, input any) (Output, error)

// Matcher pairs a tool-name pattern with the callbacks to run when it
// matches. Pattern is nil (match all), "*" (wildcard), an exact tool name,
// or a pipe-separated alternation (e.g. "Write|Edit").
type Matcher struct {
	Event     Event
	Pattern   *string
	Callbacks []Callback
}

// Matches implements the exact rule set from §4.4 / §8: nil matches all,
// "*" matches all, otherwise exact match or membership in the
// pipe-separated alternation (a literal split, never glob or regex). If the
// tool name is absent (nil), only a nil pattern matches.
func Matches(pattern *string, toolName *string) bool {
	if pattern == nil {
		return true
	}
	if *pattern == "*" {
		return toolName != nil
	}
	if toolName == nil {
		return false
	}
	for _, alt := range strings.Split(*pattern, "|") {
		if alt == *toolName {
			return true
		}
	}
	return false
}

// Manager holds all registered matchers and dispatches hook invocations.
type Manager struct {
	matchers []Matcher
	logger   *observability.Logger
}

// New constructs an empty hook manager.
func New(logger *observability.Logger) *Manager {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Manager{logger: logger}
}

// Register appends a matcher to the dispatch list (§4.4 "Registration").
func (m *Manager) Register(matcher Matcher) {
	m.matchers = append(m.matchers, matcher)
}

// Invoke walks all matchers for event whose pattern matches toolName,
// awaiting each matching callback in registration order, merging outputs,
// and short-circuiting as soon as any callback returns decision=block.
func (m *Manager) Invoke(ctx context.Context, event Event, toolName *string, input any) Output {
	var out Output
	var toolNameForLog string
	if toolName != nil {
		toolNameForLog = *toolName
	}
	ctx = observability.AddToolName(ctx, toolNameForLog)

	for _, matcher := range m.matchers {
		if matcher.Event != event {
			continue
		}
		if !Matches(matcher.Pattern, toolName) {
			continue
		}
		for _, cb := range matcher.Callbacks {
			result, err := cb(ctx, toolNameForLog, input)
			if err != nil {
				m.logger.Error(ctx, "hook callback failed", "event", event, "error", err)
				continue
			}
			out.merge(result)
			if out.Decision == Block {
				return out
			}
		}
	}
	return out
}
