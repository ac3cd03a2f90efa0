// Package protocol implements the message codec (C2) and control protocol
// handler (C4): decoding line-delimited JSON into the Message discriminated
// union, encoding outbound user turns, and the control envelope family that
// multiplexes request/response correlation and hook/permission events over
// the same NDJSON stream as data messages.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/stevensu1977/flowq-agent-sdk/internal/sdkerrors"
)

// MessageType discriminates the Message tagged union on its "type" field.
type MessageType string

const (
	MessageTypeUser         MessageType = "user"
	MessageTypeAssistant    MessageType = "assistant"
	MessageTypeSystem       MessageType = "system"
	MessageTypeResult       MessageType = "result"
	MessageTypeStreamEvent  MessageType = "stream_event"
)

// Message is the decoded form of one NDJSON line on the data path (§3).
// Exactly one of the variant fields is non-nil, selected by Type. This
// mirrors the JSON-RPC response/notification pattern in the teacher's
// internal/mcp/types.go (a discriminator field plus a pointer-per-variant
// struct, rather than a sum-type interface), generalized to five variants
// instead of two.
type Message struct {
	Type MessageType `json:"type"`

	User        *UserMessage        `json:"-"`
	Assistant   *AssistantMessage   `json:"-"`
	System      *SystemMessage      `json:"-"`
	Result      *ResultMessage      `json:"-"`
	StreamEvent *StreamEventMessage `json:"-"`
}

// UserMessage carries a user turn, either the caller's own send() or one
// echoed back by the Agent CLI.
type UserMessage struct {
	ParentToolUseID *string         `json:"parent_tool_use_id,omitempty"`
	Message         UserTurn        `json:"message"`
	SessionID       *string         `json:"session_id,omitempty"`
}

// UserTurn is the inner {role, content} object of a user message. Content
// is either a bare string or a list of content blocks.
type UserTurn struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ContentString returns Content decoded as a plain string, or ok=false if
// Content is a block array.
func (t UserTurn) ContentString() (string, bool) {
	var s string
	if err := json.Unmarshal(t.Content, &s); err != nil {
		return "", false
	}
	return s, true
}

// ContentBlocks returns Content decoded as a block array, or ok=false if
// Content is a bare string.
func (t UserTurn) ContentBlocks() ([]Block, bool) {
	var blocks []Block
	if err := json.Unmarshal(t.Content, &blocks); err != nil {
		return nil, false
	}
	return blocks, true
}

// AssistantMessage carries one assistant turn's content blocks.
type AssistantMessage struct {
	ParentToolUseID *string         `json:"parent_tool_use_id,omitempty"`
	Message         AssistantTurn   `json:"message"`
	SessionID       *string         `json:"session_id,omitempty"`
}

// AssistantTurn is the inner {model, content} object of an assistant message.
type AssistantTurn struct {
	Model   string  `json:"model"`
	Content []Block `json:"content"`
}

// SystemMessage carries CLI-internal lifecycle notices. Open fields beyond
// Subtype are preserved verbatim in Extra for forward compatibility.
type SystemMessage struct {
	Subtype string          `json:"subtype"`
	Extra   json.RawMessage `json:"-"`
}

// ResultMessage reports the outcome of a completed turn.
type ResultMessage struct {
	Subtype       string   `json:"subtype"`
	DurationMs    int64    `json:"duration_ms"`
	DurationAPIMs int64    `json:"duration_api_ms"`
	IsError       bool     `json:"is_error"`
	NumTurns      int      `json:"num_turns"`
	SessionID     string   `json:"session_id"`
	TotalCostUSD  *float64 `json:"total_cost_usd,omitempty"`
	Usage         any      `json:"usage,omitempty"`
	Result        *string  `json:"result,omitempty"`
}

// StreamEventMessage carries a raw partial-message event when the CLI is run
// with --include-partial-messages.
type StreamEventMessage struct {
	UUID            string          `json:"uuid"`
	SessionID       string          `json:"session_id"`
	Event           json.RawMessage `json:"event"`
	ParentToolUseID *string         `json:"parent_tool_use_id,omitempty"`
}

// BlockType discriminates the Block tagged union on its "type" field.
type BlockType string

const (
	BlockTypeText      BlockType = "text"
	BlockTypeThinking  BlockType = "thinking"
	BlockTypeToolUse   BlockType = "tool_use"
	BlockTypeToolResult BlockType = "tool_result"
)

// Block is one content block within an assistant/user message.
type Block struct {
	Type BlockType `json:"type"`

	Text       *TextBlock       `json:"-"`
	Thinking   *ThinkingBlock   `json:"-"`
	ToolUse    *ToolUseBlock    `json:"-"`
	ToolResult *ToolResultBlock `json:"-"`
}

type TextBlock struct {
	Text string `json:"text"`
}

type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type ToolResultBlock struct {
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   *bool           `json:"is_error,omitempty"`
}

// UnmarshalJSON decodes a Message by discriminator, matching the original
// crate's serde(tag = "type") enums one variant at a time.
func (m *Message) UnmarshalJSON(data []byte) error {
	var head struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	m.Type = head.Type

	switch head.Type {
	case MessageTypeUser:
		m.User = &UserMessage{}
		return json.Unmarshal(data, m.User)
	case MessageTypeAssistant:
		m.Assistant = &AssistantMessage{}
		return json.Unmarshal(data, m.Assistant)
	case MessageTypeSystem:
		m.System = &SystemMessage{Extra: data}
		return json.Unmarshal(data, m.System)
	case MessageTypeResult:
		m.Result = &ResultMessage{}
		return json.Unmarshal(data, m.Result)
	case MessageTypeStreamEvent:
		m.StreamEvent = &StreamEventMessage{}
		return json.Unmarshal(data, m.StreamEvent)
	default:
		return fmt.Errorf("unknown message type %q", head.Type)
	}
}

// MarshalJSON encodes a Message back to its discriminated JSON form.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case MessageTypeUser:
		return marshalTagged(m.Type, m.User)
	case MessageTypeAssistant:
		return marshalTagged(m.Type, m.Assistant)
	case MessageTypeSystem:
		return marshalTagged(m.Type, m.System)
	case MessageTypeResult:
		return marshalTagged(m.Type, m.Result)
	case MessageTypeStreamEvent:
		return marshalTagged(m.Type, m.StreamEvent)
	default:
		return nil, fmt.Errorf("unknown message type %q", m.Type)
	}
}

// UnmarshalJSON decodes a Block by discriminator.
func (b *Block) UnmarshalJSON(data []byte) error {
	var head struct {
		Type BlockType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.Type = head.Type

	switch head.Type {
	case BlockTypeText:
		b.Text = &TextBlock{}
		return json.Unmarshal(data, b.Text)
	case BlockTypeThinking:
		b.Thinking = &ThinkingBlock{}
		return json.Unmarshal(data, b.Thinking)
	case BlockTypeToolUse:
		b.ToolUse = &ToolUseBlock{}
		return json.Unmarshal(data, b.ToolUse)
	case BlockTypeToolResult:
		b.ToolResult = &ToolResultBlock{}
		return json.Unmarshal(data, b.ToolResult)
	default:
		return fmt.Errorf("unknown block type %q", head.Type)
	}
}

// MarshalJSON encodes a Block back to its discriminated JSON form.
func (b Block) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockTypeText:
		return marshalTagged(b.Type, b.Text)
	case BlockTypeThinking:
		return marshalTagged(b.Type, b.Thinking)
	case BlockTypeToolUse:
		return marshalTagged(b.Type, b.ToolUse)
	case BlockTypeToolResult:
		return marshalTagged(b.Type, b.ToolResult)
	default:
		return nil, fmt.Errorf("unknown block type %q", b.Type)
	}
}

// marshalTagged merges a "type" discriminator field into the JSON object
// produced by marshaling variant, without requiring every variant struct to
// carry its own Type field.
func marshalTagged[T any](tag any, variant *T) ([]byte, error) {
	body, err := json.Marshal(variant)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tagJSON, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}
	fields["type"] = tagJSON
	return json.Marshal(fields)
}

// ParseMessage decodes a raw JSON value from CLI stdout into a typed
// Message. Mirrors the original crate's parse_message: failures are
// reported as MessageParseError carrying the offending data, never a bare
// decode error, so the reader (C8) can forward them on the message channel
// without losing context.
func ParseMessage(data json.RawMessage) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		var v any
		_ = json.Unmarshal(data, &v)
		return nil, &sdkerrors.MessageParseError{
			Message: fmt.Sprintf("failed to parse message: %v", err),
			Data:    v,
		}
	}
	return &msg, nil
}

// NewUserTurn builds the outbound envelope for a plain-text user send().
func NewUserTurn(content string) ([]byte, error) {
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	env := map[string]any{
		"type": "user",
		"message": map[string]any{
			"role":    "user",
			"content": json.RawMessage(contentJSON),
		},
	}
	return json.Marshal(env)
}
