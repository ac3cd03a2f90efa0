// Command flowq-demo is a manual smoke-testing entry point for the flowq
// agent SDK (A4). It exercises the three public surfaces the core exposes:
// a one-shot query (C9), a bidirectional chat session (C8), and the
// direct-provider tool-use loop (C10).
//
// Grounded on the teacher's cmd/nexus command-tree layout (commands.go
// builds one *cobra.Command per subcommand, main.go wires the root command
// and global flags); generalized down to this SDK's three operations
// rather than nexus's full gateway surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
)

var configPath string

func main() {
	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flowq-demo",
		Short:         "Manual smoke-test harness for the flowq agent SDK",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a flowq.yaml config file (optional)")

	root.AddCommand(buildQueryCmd())
	root.AddCommand(buildChatCmd())
	root.AddCommand(buildLoopCmd())

	return root
}
