package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stevensu1977/flowq-agent-sdk/internal/client"
	"github.com/stevensu1977/flowq-agent-sdk/internal/protocol"
)

// buildChatCmd creates the "chat" command, exercising the bidirectional
// client (C8): an interactive REPL reading one line of stdin per turn,
// sending it, and printing every message until a result arrives.
func buildChatCmd() *cobra.Command {
	var cliPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive bidirectional conversation with the Agent CLI",
		Example: `  # Start a chat session, reading prompts from stdin
  flowq-demo chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdkCfg, err := loadSDKConfig()
			if err != nil {
				return err
			}

			trCfg := transportConfigFromSDK(sdkCfg)
			if cliPath != "" {
				trCfg.CliPath = cliPath
			}

			c, err := client.New(cmd.Context(), client.Options{Transport: trCfg})
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer c.Close()

			return runChatREPL(cmd, c)
		},
	}

	cmd.Flags().StringVar(&cliPath, "cli-path", "", "override the Agent CLI binary path")
	return cmd
}

func runChatREPL(cmd *cobra.Command, c *client.Client) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprintln(cmd.OutOrStdout(), "Type a message and press enter ('exit' to quit).")

	for {
		fmt.Fprint(cmd.OutOrStdout(), "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "exit" || line == "quit" {
			return nil
		}
		if line == "" {
			continue
		}

		if err := c.Send(line); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		if err := drainUntilResult(c); err != nil {
			return err
		}
	}
}

func drainUntilResult(c *client.Client) error {
	for {
		msg, err, ok := c.Next()
		if !ok {
			return nil
		}
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		printMessage(msg)
		if msg.Type == protocol.MessageTypeResult {
			return nil
		}
	}
}
