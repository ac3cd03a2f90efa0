package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevensu1977/flowq-agent-sdk/internal/protocol"
	"github.com/stevensu1977/flowq-agent-sdk/internal/query"
	"github.com/stevensu1977/flowq-agent-sdk/internal/transport"
)

// buildQueryCmd creates the "query" command, exercising the one-shot query
// surface (C9): spawn the Agent CLI in string mode, print every message on
// the resulting stream until it closes.
func buildQueryCmd() *cobra.Command {
	var cliPath string

	cmd := &cobra.Command{
		Use:   "query [prompt]",
		Short: "Run a single one-shot prompt against the Agent CLI",
		Args:  cobra.ExactArgs(1),
		Example: `  # Ask a single question and print the reply
  flowq-demo query "What is 2+2?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdkCfg, err := loadSDKConfig()
			if err != nil {
				return err
			}

			trCfg := transportConfigFromSDK(sdkCfg)
			if cliPath != "" {
				trCfg.CliPath = cliPath
			}

			items, err := query.Query(cmd.Context(), args[0], trCfg)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			return printQueryStream(cmd.Context(), items)
		},
	}

	cmd.Flags().StringVar(&cliPath, "cli-path", "", "override the Agent CLI binary path")
	return cmd
}

func printQueryStream(ctx context.Context, items <-chan query.Item) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-items:
			if !ok {
				return nil
			}
			if item.Err != nil {
				fmt.Println("error:", item.Err)
				continue
			}
			printMessage(item.Message)
		}
	}
}

func printMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MessageTypeAssistant:
		for _, block := range msg.Assistant.Message.Content {
			if block.Type == protocol.BlockTypeText && block.Text != nil {
				fmt.Println(block.Text.Text)
			}
		}
	case protocol.MessageTypeResult:
		r := msg.Result
		if r.Result != nil {
			fmt.Println(*r.Result)
		}
		fmt.Printf("-- turns=%d duration=%dms is_error=%v\n", r.NumTurns, r.DurationMs, r.IsError)
	default:
		fmt.Printf("[%s]\n", msg.Type)
	}
}
