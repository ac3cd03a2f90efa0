package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stevensu1977/flowq-agent-sdk/internal/config"
	"github.com/stevensu1977/flowq-agent-sdk/internal/memory"
	"github.com/stevensu1977/flowq-agent-sdk/internal/providers"
)

// buildLoopCmd creates the "loop" command, exercising the direct-provider
// tool-use loop (C10): bypass the Agent CLI entirely and talk straight to a
// model provider, with the memory tool as the loop's only tool.
func buildLoopCmd() *cobra.Command {
	var backendName string
	var workspace string

	cmd := &cobra.Command{
		Use:   "loop [prompt]",
		Short: "Run the direct-provider tool-use loop against a model API",
		Args:  cobra.ExactArgs(1),
		Example: `  # Run one prompt through Anthropic's API directly, bypassing the Agent CLI
  flowq-demo loop --backend anthropic "summarize today's notes"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdkCfg, err := loadSDKConfig()
			if err != nil {
				return err
			}
			if backendName == "" {
				backendName = sdkCfg.Providers.Default
			}
			if backendName == "" {
				backendName = "anthropic"
			}

			backend, err := buildBackend(cmd, backendName, sdkCfg)
			if err != nil {
				return err
			}

			if workspace == "" {
				workspace, err = os.Getwd()
				if err != nil {
					return err
				}
			}
			mem, err := memory.New(workspace)
			if err != nil {
				return fmt.Errorf("memory: %w", err)
			}

			result, err := providers.Loop(cmd.Context(), providers.LoopOptions{
				Backend:   backend,
				Memory:    mem,
				MaxTokens: 4096,
			}, args[0])
			if err != nil {
				return fmt.Errorf("loop: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.FinalText)
			fmt.Fprintf(cmd.OutOrStdout(), "-- iterations=%d stop_reason=%s\n", result.Iterations, result.StopReason)
			return nil
		},
	}

	cmd.Flags().StringVar(&backendName, "backend", "", "provider backend: anthropic, bedrock, or openai (default: config providers.default)")
	cmd.Flags().StringVar(&workspace, "workspace", "", "memory tool workspace root (default: current directory)")
	return cmd
}

func buildBackend(cmd *cobra.Command, name string, cfg config.Config) (providers.Backend, error) {
	switch name {
	case "anthropic":
		return providers.NewAnthropicBackend(providers.AnthropicConfig{
			APIKey:       cfg.Providers.Anthropic.APIKey,
			BaseURL:      cfg.Providers.Anthropic.BaseURL,
			DefaultModel: cfg.Providers.Anthropic.DefaultModel,
		})
	case "bedrock":
		return providers.NewBedrockBackend(cmd.Context(), providers.BedrockConfig{
			Region:          cfg.Providers.Bedrock.Region,
			AccessKeyID:     cfg.Providers.Bedrock.AccessKeyID,
			SecretAccessKey: cfg.Providers.Bedrock.SecretAccessKey,
			SessionToken:    cfg.Providers.Bedrock.SessionToken,
			Profile:         cfg.Providers.Bedrock.Profile,
			DefaultModel:    cfg.Providers.Bedrock.DefaultModel,
		})
	case "openai":
		return providers.NewOpenAIBackend(providers.OpenAIConfig{
			APIKey:       cfg.Providers.OpenAI.APIKey,
			BaseURL:      cfg.Providers.OpenAI.BaseURL,
			DefaultModel: cfg.Providers.OpenAI.DefaultModel,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}
