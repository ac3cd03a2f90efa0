package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/stevensu1977/flowq-agent-sdk/internal/retry"
)

// BedrockBackend drives the loop through AWS Bedrock's non-streaming
// Converse API — one call per iteration, matching chat.rs's send_bedrock
// rather than the teacher's ConverseStream.
type BedrockBackend struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// BedrockConfig configures a BedrockBackend.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Profile         string
	DefaultModel    string
}

// NewBedrockBackend constructs a BedrockBackend, mirroring the teacher's
// NewBedrockProvider credential-resolution and defaulting.
func NewBedrockBackend(ctx context.Context, cfg BedrockConfig) (*BedrockBackend, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-sonnet-20240229-v1:0"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	} else if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	return &BedrockBackend{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (b *BedrockBackend) Name() string { return "bedrock" }

func (b *BedrockBackend) Send(ctx context.Context, req Request) (Turn, error) {
	model := mapToBedrockModel(req.Model)
	if model == "" {
		model = mapToBedrockModel(b.defaultModel)
	}

	messages := convertMessagesBedrock(req.Messages)

	converseReq := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(model),
		Messages: messages,
	}
	if req.System != "" {
		converseReq.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		if maxTokens > math.MaxInt32 {
			maxTokens = math.MaxInt32
		}
		converseReq.InferenceConfig = &types.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(maxTokens)),
		}
	}
	if len(req.Tools) > 0 {
		converseReq.ToolConfig = convertToolsBedrock(req.Tools)
	}

	out, err := b.client.Converse(ctx, converseReq)
	if err != nil {
		if !isRetryableBedrockError(err) {
			return Turn{}, retry.Permanent(err)
		}
		return Turn{}, err
	}

	msgOutput, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return Turn{}, fmt.Errorf("bedrock: unexpected converse output %T", out.Output)
	}

	var blocks []Block
	for _, block := range msgOutput.Value.Content {
		switch variant := block.(type) {
		case *types.ContentBlockMemberText:
			blocks = append(blocks, Block{Kind: BlockText, Text: variant.Value})
		case *types.ContentBlockMemberToolUse:
			var input map[string]any
			if raw, err := variant.Value.Input.MarshalSmithyDocument(); err == nil {
				_ = json.Unmarshal(raw, &input)
			}
			blocks = append(blocks, Block{
				Kind:      BlockToolUse,
				ToolUseID: aws.ToString(variant.Value.ToolUseId),
				ToolName:  aws.ToString(variant.Value.Name),
				ToolInput: input,
			})
		}
	}

	stop := StopEndTurn
	if out.StopReason == types.StopReasonToolUse {
		stop = StopToolUse
	}

	return Turn{StopReason: stop, Content: blocks}, nil
}

func convertMessagesBedrock(messages []Message) []types.Message {
	result := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		var content []types.ContentBlock
		for _, block := range msg.Content {
			switch block.Kind {
			case BlockText:
				content = append(content, &types.ContentBlockMemberText{Value: block.Text})
			case BlockToolResult:
				content = append(content, &types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: aws.String(block.ToolResultForID),
						Content: []types.ToolResultContentBlock{
							&types.ToolResultContentBlockMemberText{Value: block.ToolResultText},
						},
					},
				})
			case BlockToolUse:
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(block.ToolUseID),
						Name:      aws.String(block.ToolName),
						Input:     document.NewLazyDocument(block.ToolInput),
					},
				})
			}
		}

		role := types.ConversationRoleUser
		if msg.Role == RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		result = append(result, types.Message{Role: role, Content: content})
	}
	return result
}

func convertToolsBedrock(tools []ToolSpec) *types.ToolConfiguration {
	specs := make([]types.Tool, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Name),
				Description: aws.String(tool.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(tool.InputSchema),
				},
			},
		})
	}
	return &types.ToolConfiguration{Tools: specs}
}

// mapToBedrockModel translates an Anthropic model ID into its Bedrock
// cross-region inference profile ID, recovered from chat.rs's
// map_to_bedrock_model. Already-Bedrock-formatted IDs pass through
// unchanged.
func mapToBedrockModel(model string) string {
	if model == "" {
		return ""
	}
	switch {
	case hasAnyPrefix(model, "anthropic.", "us.anthropic.", "global.anthropic."):
		return model
	}

	switch model {
	case "claude-sonnet-4-20250514":
		return "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	case "claude-opus-4-20250514":
		return "global.anthropic.claude-opus-4-5-20251101-v1:0"
	case "claude-3-5-sonnet-20241022":
		return "us.anthropic.claude-3-5-sonnet-20241022-v2:0"
	case "claude-3-5-haiku-20241022":
		return "us.anthropic.claude-3-5-haiku-20241022-v1:0"
	case "claude-3-sonnet-20240229":
		return "us.anthropic.claude-3-sonnet-20240229-v1:0"
	case "claude-3-haiku-20240307":
		return "us.anthropic.claude-3-haiku-20240307-v1:0"
	case "claude-3-opus-20240229":
		return "us.anthropic.claude-3-opus-20240229-v1:0"
	default:
		return "us.anthropic." + model + "-v1:0"
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// isRetryableBedrockError matches the teacher's isRetryableError pattern:
// AWS throttling exception names plus generic rate-limit/5xx/timeout text.
func isRetryableBedrockError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{"ThrottlingException", "TooManyRequestsException", "ServiceUnavailableException"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	lower := strings.ToLower(msg)
	for _, s := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
