package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseMessageUserVariant(t *testing.T) {
	data := []byte(`{"type":"user","message":{"role":"user","content":"Hello, Claude!"}}`)
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != MessageTypeUser || msg.User == nil {
		t.Fatalf("expected a user message, got %+v", msg)
	}
	s, ok := msg.User.Message.ContentString()
	if !ok || s != "Hello, Claude!" {
		t.Errorf("content = %q ok=%v, want %q true", s, ok, "Hello, Claude!")
	}
}

func TestParseMessageAssistantVariantWithBlocks(t *testing.T) {
	data := []byte(`{"type":"assistant","message":{"model":"claude-test","content":[
		{"type":"text","text":"hi"},
		{"type":"tool_use","id":"tu_1","name":"memory","input":{"command":"view"}}
	]}}`)
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Assistant.Message.Content) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(msg.Assistant.Message.Content))
	}
	if msg.Assistant.Message.Content[0].Text == nil || msg.Assistant.Message.Content[0].Text.Text != "hi" {
		t.Errorf("block 0 = %+v", msg.Assistant.Message.Content[0])
	}
	if msg.Assistant.Message.Content[1].ToolUse == nil || msg.Assistant.Message.Content[1].ToolUse.Name != "memory" {
		t.Errorf("block 1 = %+v", msg.Assistant.Message.Content[1])
	}
}

func TestParseMessageResultVariant(t *testing.T) {
	data := []byte(`{"type":"result","subtype":"success","duration_ms":120,"duration_api_ms":80,"is_error":false,"num_turns":1,"session_id":"sess-1"}`)
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Result == nil || msg.Result.IsError || msg.Result.NumTurns != 1 {
		t.Errorf("result = %+v", msg.Result)
	}
}

func TestParseMessageUnknownTypeIsParseError(t *testing.T) {
	data := []byte(`{"type":"invalid_type","data":"some data"}`)
	_, err := ParseMessage(data)
	if err == nil {
		t.Fatal("expected a parse error for an unknown message type")
	}
}

func TestNewUserTurnProducesExpectedEnvelope(t *testing.T) {
	data, err := NewUserTurn("ping")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got["type"] != "user" {
		t.Errorf("type = %v, want user", got["type"])
	}
	msg, ok := got["message"].(map[string]any)
	if !ok || msg["role"] != "user" || msg["content"] != "ping" {
		t.Errorf("message = %v", got["message"])
	}
}

func TestMessageMarshalUnmarshalRoundTrip(t *testing.T) {
	orig := Message{
		Type: MessageTypeAssistant,
		Assistant: &AssistantMessage{
			Message: AssistantTurn{
				Model: "claude-test",
				Content: []Block{
					{Type: BlockTypeText, Text: &TextBlock{Text: "round trip"}},
				},
			},
		},
	}
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if decoded.Assistant == nil || decoded.Assistant.Message.Content[0].Text.Text != "round trip" {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}
