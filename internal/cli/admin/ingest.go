package admin

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quayside-labs/deskrag/internal/config"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the corpus and exit",
		Long:  "Reads the document tree, rebuilds the corpus file and exits. A running server picks the corpus up on its next ingest or restart.",
		RunE:  runIngestOnce,
	}

	return cmd
}

func runIngestOnce(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}

	stats, err := deps.Ingest.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("Ingested %d documents into %d chunks (%d bytes read)\n",
		stats.Documents, stats.Chunks, stats.BytesRead)
	for _, source := range stats.Sources {
		fmt.Printf("  %s\n", source)
	}

	return nil
}
