package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
)

func echoTool() *Tool {
	return &Tool{
		Name:        "echo",
		Description: "echoes its input",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"message": {"type": "string"}},
			"required": ["message"]
		}`),
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			var parsed struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(args, &parsed); err != nil {
				return Result{}, err
			}
			return Result{Content: []Content{TextContent(parsed.Message)}}, nil
		},
	}
}

func TestServerCreation(t *testing.T) {
	s := New("test-server", "1.0.0")
	if s.Name != "test-server" || s.Version != "1.0.0" {
		t.Errorf("server = %+v", s)
	}
}

func TestToolRegistration(t *testing.T) {
	s := New("test-server", "1.0.0")
	s.RegisterTool(echoTool())

	resp := s.HandleRequest(context.Background(), Request{Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	lr, ok := resp.Result.(listResult)
	if !ok || len(lr.Tools) != 1 || lr.Tools[0].Name != "echo" {
		t.Errorf("result = %+v", resp.Result)
	}
}

func TestMultipleToolsRegistration(t *testing.T) {
	s := New("test-server", "1.0.0")
	s.RegisterTools(echoTool(), &Tool{
		Name: "noop",
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			return Result{}, nil
		},
	})

	resp := s.HandleRequest(context.Background(), Request{Method: "tools/list"})
	lr := resp.Result.(listResult)
	if len(lr.Tools) != 2 {
		t.Errorf("expected 2 tools, got %d", len(lr.Tools))
	}
}

func TestToolsCallRequest(t *testing.T) {
	s := New("test-server", "1.0.0")
	s.RegisterTool(echoTool())

	params, _ := json.Marshal(callParams{Name: "echo", Arguments: json.RawMessage(`{"message":"hi"}`)})
	resp := s.HandleRequest(context.Background(), Request{Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	result, ok := resp.Result.(Result)
	if !ok || len(result.Content) != 1 || result.Content[0].Text != "hi" {
		t.Errorf("result = %+v", resp.Result)
	}
}

func TestToolsCallRejectsArgumentsFailingSchema(t *testing.T) {
	s := New("test-server", "1.0.0")
	s.RegisterTool(echoTool())

	params, _ := json.Marshal(callParams{Name: "echo", Arguments: json.RawMessage(`{}`)})
	resp := s.HandleRequest(context.Background(), Request{Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid_params error, got %+v", resp)
	}
}

func TestUnknownMethod(t *testing.T) {
	s := New("test-server", "1.0.0")
	resp := s.HandleRequest(context.Background(), Request{Method: "bogus/method"})
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method_not_found, got %+v", resp)
	}
}

func TestToolNotFound(t *testing.T) {
	s := New("test-server", "1.0.0")
	params, _ := json.Marshal(callParams{Name: "missing", Arguments: json.RawMessage(`{}`)})
	resp := s.HandleRequest(context.Background(), Request{Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.Code != CodeToolNotFound {
		t.Fatalf("expected tool_not_found, got %+v", resp)
	}
}

func TestToolsCallMissingParams(t *testing.T) {
	s := New("test-server", "1.0.0")
	resp := s.HandleRequest(context.Background(), Request{Method: "tools/call"})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("expected invalid_params for missing params, got %+v", resp)
	}
}

func TestToolsCallMissingNameIsMethodNotFound(t *testing.T) {
	s := New("test-server", "1.0.0")
	params, _ := json.Marshal(callParams{Arguments: json.RawMessage(`{}`)})
	resp := s.HandleRequest(context.Background(), Request{Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method_not_found for a call with no tool name, got %+v", resp)
	}
}

func TestToolsListUsesCamelCaseSchemaField(t *testing.T) {
	s := New("test-server", "1.0.0")
	s.RegisterTool(echoTool())

	resp := s.HandleRequest(context.Background(), Request{Method: "tools/list"})
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !json.Valid(data) {
		t.Fatal("expected valid json")
	}
	var decoded struct {
		Tools []map[string]json.RawMessage `json:"tools"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(decoded.Tools))
	}
	if _, ok := decoded.Tools[0]["inputSchema"]; !ok {
		t.Errorf("expected tools/list entry to carry inputSchema, got %v", decoded.Tools[0])
	}
}
