package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quayside-labs/deskrag/internal/cli"
	"github.com/quayside-labs/deskrag/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "deskragd",
		Short: "Deskrag daemon",
		Long:  "Deskrag daemon for serving the answer API and managing the document corpus",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
