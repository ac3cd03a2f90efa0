// Package providers implements the direct-provider tool-use loop (C10):
// a bounded agentic loop that talks to an LLM backend directly (bypassing
// the Agent CLI entirely) and dispatches the single built-in memory tool.
//
// Grounded on src-tauri/src/chat.rs's execute_chat_request family: each
// backend (Anthropic, Bedrock, an OpenAI-compatible endpoint) runs the same
// iterate-until-end_turn loop, capped at MAX_ITERATIONS = 10, with the
// memory tool as the only tool ever offered. The three backend
// implementations are grounded on the teacher's internal/agent/providers
// package (anthropic.go, bedrock.go) and internal/providers/venice/venice.go
// for the OpenAI-compatible shape.
package providers

import (
	"context"
	"fmt"

	"github.com/stevensu1977/flowq-agent-sdk/internal/memory"
	"github.com/stevensu1977/flowq-agent-sdk/internal/observability"
	"github.com/stevensu1977/flowq-agent-sdk/internal/retry"
)

// MaxIterations bounds the tool-use loop, matching the original crate's
// MAX_ITERATIONS constant exactly.
const MaxIterations = 10

// Role is a conversation turn's speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockKind discriminates Block's tagged union.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// Block is one piece of a message's content, matching the content-block
// shape shared by Anthropic, Bedrock Converse, and the memory tool's own
// call/result pairing.
type Block struct {
	Kind BlockKind

	// Text
	Text string

	// ToolUse
	ToolUseID string
	ToolName  string
	ToolInput map[string]any

	// ToolResult
	ToolResultForID string
	ToolResultText  string
	ToolResultError bool
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content []Block
}

// StopReason discriminates why a backend's turn ended.
type StopReason string

const (
	StopEndTurn  StopReason = "end_turn"
	StopToolUse  StopReason = "tool_use"
	StopMaxTurns StopReason = "max_turns"
)

// Turn is one completed model turn.
type Turn struct {
	StopReason StopReason
	Content    []Block
}

// ToolSpec describes a tool offered to a backend. The loop only ever
// offers the memory tool, but the shape is backend-agnostic.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request is the conversation state sent to a backend on each iteration.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
	Tools     []ToolSpec
}

// Backend is implemented by each provider (Anthropic, Bedrock, an
// OpenAI-compatible endpoint). Send performs exactly one non-streaming
// model turn; the original's per-iteration synchronous call style (not
// SSE) is kept rather than the teacher's streaming Complete, since the
// loop needs a single materialized Turn per iteration to decide whether
// to continue.
type Backend interface {
	Name() string
	Send(ctx context.Context, req Request) (Turn, error)
}

// MemoryToolSpec returns the ToolSpec for the built-in memory tool,
// offered to every backend when a workspace is configured (chat.rs's
// execute_memory_command dispatch names these six commands).
func MemoryToolSpec() ToolSpec {
	return ToolSpec{
		Name:        "memory",
		Description: "View, create, edit, and manage files in a persistent memory directory.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type": "string",
					"enum": []string{"view", "create", "str_replace", "insert", "delete", "rename"},
				},
				"path":        map[string]any{"type": "string"},
				"file_text":   map[string]any{"type": "string"},
				"old_str":     map[string]any{"type": "string"},
				"new_str":     map[string]any{"type": "string"},
				"insert_line": map[string]any{"type": "integer"},
				"new_path":    map[string]any{"type": "string"},
				"view_range":  map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
			},
			"required": []string{"command"},
		},
	}
}

// Loop options.
type LoopOptions struct {
	Backend      Backend
	Memory       *memory.Tool // nil disables the memory tool entirely
	System       string
	Model        string
	MaxTokens    int
	Retry        retry.Config
	Logger       *observability.Logger
}

// LoopResult is the outcome of running Loop to completion.
type LoopResult struct {
	FinalText  string
	Messages   []Message
	Iterations int
	StopReason StopReason
}

// Loop drives the bounded tool-use conversation: it sends the user's
// prompt, and on every tool_use turn dispatches each tool call to the
// memory tool (the only tool ever declared), feeding results back until
// the backend emits end_turn or MaxIterations is reached.
func Loop(ctx context.Context, opts LoopOptions, prompt string) (LoopResult, error) {
	messages := []Message{{Role: RoleUser, Content: []Block{{Kind: BlockText, Text: prompt}}}}

	var tools []ToolSpec
	if opts.Memory != nil {
		tools = []ToolSpec{MemoryToolSpec()}
	}

	retryCfg := opts.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}

	var lastTurn Turn
	for i := 0; i < MaxIterations; i++ {
		req := Request{
			Model:     opts.Model,
			System:    opts.System,
			Messages:  messages,
			MaxTokens: opts.MaxTokens,
			Tools:     tools,
		}

		var turn Turn
		res := retry.Do(ctx, retryCfg, func() error {
			var err error
			turn, err = opts.Backend.Send(ctx, req)
			return err
		})
		if res.Err != nil {
			return LoopResult{Messages: messages, Iterations: i + 1}, res.Err
		}
		lastTurn = turn

		messages = append(messages, Message{Role: RoleAssistant, Content: turn.Content})

		if turn.StopReason != StopToolUse {
			return LoopResult{
				FinalText:  collectText(turn.Content),
				Messages:   messages,
				Iterations: i + 1,
				StopReason: turn.StopReason,
			}, nil
		}

		toolResults := make([]Block, 0, len(turn.Content))
		for _, block := range turn.Content {
			if block.Kind != BlockToolUse {
				continue
			}
			toolResults = append(toolResults, dispatchTool(opts, block))
		}
		if len(toolResults) == 0 {
			return LoopResult{
				FinalText:  collectText(turn.Content),
				Messages:   messages,
				Iterations: i + 1,
				StopReason: turn.StopReason,
			}, nil
		}
		messages = append(messages, Message{Role: RoleUser, Content: toolResults})
	}

	return LoopResult{
		FinalText:  collectText(lastTurn.Content),
		Messages:   messages,
		Iterations: MaxIterations,
		StopReason: StopMaxTurns,
	}, nil
}

func dispatchTool(opts LoopOptions, call Block) Block {
	if call.ToolName != "memory" || opts.Memory == nil {
		return Block{
			Kind:            BlockToolResult,
			ToolResultForID: call.ToolUseID,
			ToolResultText:  fmt.Sprintf("unknown tool: %s", call.ToolName),
			ToolResultError: true,
		}
	}

	cmd, err := memoryCommandFromInput(call.ToolInput)
	if err != nil {
		return Block{
			Kind:            BlockToolResult,
			ToolResultForID: call.ToolUseID,
			ToolResultText:  err.Error(),
			ToolResultError: true,
		}
	}

	res := opts.Memory.Execute(cmd)
	if !res.Success {
		return Block{
			Kind:            BlockToolResult,
			ToolResultForID: call.ToolUseID,
			ToolResultText:  res.Error,
			ToolResultError: true,
		}
	}
	return Block{
		Kind:            BlockToolResult,
		ToolResultForID: call.ToolUseID,
		ToolResultText:  res.Output,
	}
}

func collectText(blocks []Block) string {
	var text string
	for _, b := range blocks {
		if b.Kind == BlockText {
			text += b.Text
		}
	}
	return text
}
