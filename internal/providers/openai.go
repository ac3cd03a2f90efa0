package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stevensu1977/flowq-agent-sdk/internal/retry"
)

// OpenAIBackend drives the loop through an OpenAI-compatible chat
// completions endpoint. Unlike AnthropicBackend/BedrockBackend it does not
// negotiate block-structured content (chat.rs's send_openai flattens every
// message to a single string), and it does not participate in the same
// tool_use loop shape the other two backends do — per spec §4.7 the
// OpenAI-compatible provider issues one request and returns text, with
// image blocks replaced by a placeholder rather than attached.
type OpenAIBackend struct {
	client       *openai.Client
	defaultModel string
}

// OpenAIConfig configures an OpenAIBackend. BaseURL allows pointing the
// go-openai client at any OpenAI-compatible endpoint (Azure OpenAI,
// OpenRouter, local inference servers), mirroring the teacher's
// openai.DefaultConfig + BaseURL override pattern used throughout
// internal/providers/venice and internal/agent/providers.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// NewOpenAIBackend constructs an OpenAIBackend.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIBackend{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (b *OpenAIBackend) Name() string { return "openai" }

// Send issues a single non-streaming chat completion. Tool declarations in
// req.Tools are not forwarded to the endpoint and Send never reports
// StopToolUse, so Loop ends after one iteration with the returned text: the
// OpenAI-compatible surface here is used only for the final-text path, per
// spec §4.7's explicit carve-out.
func (b *OpenAIBackend) Send(ctx context.Context, req Request) (Turn, error) {
	model := req.Model
	if model == "" {
		model = b.defaultModel
	}

	messages := convertMessagesOpenAI(req.System, req.Messages)

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	resp, err := b.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		if !isRetryableOpenAIError(err) {
			return Turn{}, retry.Permanent(err)
		}
		return Turn{}, err
	}
	if len(resp.Choices) == 0 {
		return Turn{StopReason: StopEndTurn}, nil
	}

	text := resp.Choices[0].Message.Content
	return Turn{
		StopReason: StopEndTurn,
		Content:    []Block{{Kind: BlockText, Text: text}},
	}, nil
}

// convertMessagesOpenAI flattens the shared Text|Block[] content shape to
// one string per message, per spec §4.7: "OpenAI's request path
// additionally flattens multi-block content to a single string per message
// since the OpenAI-compatible surface here does not negotiate
// block-structured content." Tool-use and tool-result blocks are rendered
// as readable text rather than dropped, so a replayed conversation still
// carries their information; image blocks become a text placeholder.
func convertMessagesOpenAI(system string, messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: flattenContent(msg.Content),
		})
	}
	return result
}

func flattenContent(blocks []Block) string {
	var sb strings.Builder
	for i, block := range blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch block.Kind {
		case BlockText:
			sb.WriteString(block.Text)
		case BlockToolUse:
			raw, _ := json.Marshal(block.ToolInput)
			sb.WriteString("[tool_use ")
			sb.WriteString(block.ToolName)
			sb.WriteString(" ")
			sb.Write(raw)
			sb.WriteString("]")
		case BlockToolResult:
			if block.ToolResultError {
				sb.WriteString("[tool_error] ")
			}
			sb.WriteString(block.ToolResultText)
		default:
			sb.WriteString("[image omitted]")
		}
	}
	return sb.String()
}

func isRetryableOpenAIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"rate limit", "429", "too many requests",
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
