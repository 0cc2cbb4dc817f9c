package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quayside-labs/deskrag/internal/cli"
	"github.com/quayside-labs/deskrag/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "deskrag",
		Short: "Deskrag CLI - ask questions over your documents",
		Long: `Deskrag CLI talks to a running deskragd server.

Environment variables:
  DESKRAG_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.EvalCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
