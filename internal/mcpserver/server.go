// Package mcpserver implements an in-process MCP server (C7): a named,
// versioned registry of tools exposed over the "tools/list" and
// "tools/call" JSON-RPC methods, with JSON Schema validation of call
// arguments.
//
// Grounded on the original crate's src/mcp/server.rs and src/mcp/tool.rs,
// read in full: the request routing, error codes, and tool/content shapes
// are transliterated one-for-one; schema validation is new (declared a
// future concern there, wired here via santhosh-tekuri/jsonschema/v5 per
// the decision recorded in the design ledger).
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSON-RPC error codes used by this server, matching the original crate.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeToolNotFound   = -32001
	CodeInternalError  = -32603
)

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// Request is a JSON-RPC request directed at this server.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response returned by HandleRequest.
type Response struct {
	Result any       `json:"result,omitempty"`
	Error  *RPCError `json:"error,omitempty"`
}

// ContentKind discriminates the variants of ToolContent.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
)

// Content is one block of a tool call's result, tagged by Type.
type Content struct {
	Type     ContentKind `json:"type"`
	Text     string      `json:"text,omitempty"`
	Data     string      `json:"data,omitempty"`
	MimeType string      `json:"mime_type,omitempty"`
}

// TextContent builds a text content block.
func TextContent(text string) Content { return Content{Type: ContentText, Text: text} }

// ImageContent builds an image content block.
func ImageContent(data, mimeType string) Content {
	return Content{Type: ContentImage, Data: data, MimeType: mimeType}
}

// Result is the outcome of invoking a tool's handler.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"is_error,omitempty"`
}

// ErrorResult wraps a message as a single-block error result.
func ErrorResult(message string) Result {
	return Result{Content: []Content{TextContent(message)}, IsError: true}
}

// Handler executes a tool call against validated arguments.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Tool is a single callable unit registered on a Server.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler

	compiledSchema *jsonschema.Schema
}

// Info is the wire representation of a tool returned by tools/list.
type Info struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

func (t *Tool) toInfo() Info {
	return Info{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
}

// compile lazily compiles the tool's JSON schema, if present.
func (t *Tool) compile() error {
	if t.compiledSchema != nil || len(t.InputSchema) == 0 {
		return nil
	}
	schema, err := jsonschema.CompileString(t.Name+".schema.json", string(t.InputSchema))
	if err != nil {
		return err
	}
	t.compiledSchema = schema
	return nil
}

// Server is a named, versioned, in-process tool registry.
type Server struct {
	Name    string
	Version string

	mu    sync.RWMutex
	tools map[string]*Tool
}

// New constructs an empty server.
func New(name, version string) *Server {
	return &Server{Name: name, Version: version, tools: make(map[string]*Tool)}
}

// RegisterTool adds (or replaces) a tool in the registry.
func (s *Server) RegisterTool(tool *Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[tool.Name] = tool
}

// RegisterTools adds multiple tools at once.
func (s *Server) RegisterTools(tools ...*Tool) {
	for _, t := range tools {
		s.RegisterTool(t)
	}
}

type listResult struct {
	Tools []Info `json:"tools"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// HandleRequest routes an incoming JSON-RPC request to tools/list or
// tools/call, returning a Response whose Error field is set on any failure.
func (s *Server) HandleRequest(ctx context.Context, req Request) Response {
	switch req.Method {
	case "tools/list":
		return s.handleToolsList()
	case "tools/call":
		return s.handleToolsCall(ctx, req.Params)
	default:
		return Response{Error: &RPCError{Code: CodeMethodNotFound, Message: "unknown method: " + req.Method}}
	}
}

func (s *Server) handleToolsList() Response {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.tools))
	for _, t := range s.tools {
		infos = append(infos, t.toInfo())
	}
	return Response{Result: listResult{Tools: infos}}
}

func (s *Server) handleToolsCall(ctx context.Context, rawParams json.RawMessage) Response {
	if len(rawParams) == 0 {
		return Response{Error: &RPCError{Code: CodeInvalidParams, Message: "missing params"}}
	}
	var params callParams
	if err := json.Unmarshal(rawParams, &params); err != nil {
		return Response{Error: &RPCError{Code: CodeInvalidParams, Message: "invalid params: " + err.Error()}}
	}
	if params.Name == "" {
		return Response{Error: &RPCError{Code: CodeMethodNotFound, Message: "missing tool name"}}
	}

	s.mu.RLock()
	tool, ok := s.tools[params.Name]
	s.mu.RUnlock()
	if !ok {
		return Response{Error: &RPCError{Code: CodeToolNotFound, Message: "tool not found: " + params.Name}}
	}

	if err := tool.compile(); err != nil {
		return Response{Error: &RPCError{Code: CodeInternalError, Message: "invalid schema for tool " + params.Name + ": " + err.Error()}}
	}
	if tool.compiledSchema != nil {
		var asAny any
		if len(params.Arguments) > 0 {
			if err := json.Unmarshal(params.Arguments, &asAny); err != nil {
				return Response{Error: &RPCError{Code: CodeInvalidParams, Message: "invalid arguments json: " + err.Error()}}
			}
		}
		if err := tool.compiledSchema.Validate(asAny); err != nil {
			return Response{Error: &RPCError{Code: CodeInvalidParams, Message: "arguments failed schema validation: " + err.Error()}}
		}
	}

	result, err := tool.Handler(ctx, params.Arguments)
	if err != nil {
		return Response{Error: &RPCError{Code: CodeInternalError, Message: "tool invocation failed: " + err.Error()}}
	}
	return Response{Result: result}
}
