package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// IngestResponse represents the ingest API response.
type IngestResponse struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	BytesRead int64    `json:"bytes_read"`
	Sources   []string `json:"sources"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the corpus",
		Long:  "Asks the server to re-read the document tree, rebuild the corpus and swap in a fresh retriever.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngest(cmd, outputJSON)
		},
	}

	return cmd
}

func runIngest(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/ingest", nil)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	var stats IngestResponse
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		return fmt.Errorf("failed to parse ingest response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Ingested %d documents into %d chunks (%d bytes read)\n",
		stats.Documents, stats.Chunks, stats.BytesRead)
	for _, source := range stats.Sources {
		fmt.Printf("  %s\n", source)
	}

	return nil
}
