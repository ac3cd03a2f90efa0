package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/stevensu1977/flowq-agent-sdk/internal/retry"
)

// AnthropicBackend drives the loop through Anthropic's Messages API using a
// single non-streaming call per iteration, matching chat.rs's send_anthropic
// (one synchronous request per loop turn, not an SSE stream) rather than the
// teacher's streaming Complete().
type AnthropicBackend struct {
	client       anthropic.Client
	defaultModel string
}

// AnthropicConfig configures an AnthropicBackend.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// NewAnthropicBackend constructs an AnthropicBackend, applying the teacher's
// own default model and validation (AnthropicProvider.NewAnthropicProvider).
func NewAnthropicBackend(cfg AnthropicConfig) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicBackend{
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

func (b *AnthropicBackend) Send(ctx context.Context, req Request) (Turn, error) {
	model := req.Model
	if model == "" {
		model = b.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	messages, err := convertMessagesAnthropic(req.Messages)
	if err != nil {
		return Turn{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertToolsAnthropic(req.Tools)
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		if !isRetryableAnthropicError(err) {
			return Turn{}, retry.Permanent(err)
		}
		return Turn{}, err
	}

	var blocks []Block
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			blocks = append(blocks, Block{Kind: BlockText, Text: variant.Text})
		case anthropic.ToolUseBlock:
			var input map[string]any
			_ = json.Unmarshal(variant.Input, &input)
			blocks = append(blocks, Block{
				Kind:      BlockToolUse,
				ToolUseID: variant.ID,
				ToolName:  variant.Name,
				ToolInput: input,
			})
		}
	}

	stop := StopEndTurn
	if string(resp.StopReason) == "tool_use" {
		stop = StopToolUse
	}

	return Turn{StopReason: stop, Content: blocks}, nil
}

func convertMessagesAnthropic(messages []Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		var content []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch block.Kind {
			case BlockText:
				content = append(content, anthropic.NewTextBlock(block.Text))
			case BlockToolResult:
				content = append(content, anthropic.NewToolResultBlock(block.ToolResultForID, block.ToolResultText, block.ToolResultError))
			case BlockToolUse:
				content = append(content, anthropic.NewToolUseBlock(block.ToolUseID, block.ToolInput, block.ToolName))
			}
		}
		if msg.Role == RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}
	return result, nil
}

// isRetryableAnthropicError matches the teacher's AnthropicProvider
// isRetryableError patterns: rate limits, 5xx, timeouts, connection errors.
func isRetryableAnthropicError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"rate_limit", "429", "too many requests",
		"500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"timeout", "deadline exceeded",
		"connection reset", "connection refused", "no such host",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func convertToolsAnthropic(tools []ToolSpec) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		raw, _ := json.Marshal(tool.InputSchema)
		var schema anthropic.ToolInputSchemaParam
		_ = json.Unmarshal(raw, &schema)

		toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		toolParam.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, toolParam)
	}
	return result
}
