package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the answer API request.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// AskCitation represents one cited span of a source document.
type AskCitation struct {
	Source string `json:"source"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// AskResponse represents the answer API response.
type AskResponse struct {
	Text       string        `json:"text"`
	Citations  []AskCitation `json:"citations"`
	Sources    []string      `json:"sources"`
	Route      string        `json:"route"`
	UsedTools  []string      `json:"used_tools"`
	RetrievedK int           `json:"retrieved_k"`
	LatencyMS  int64         `json:"latency_ms"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		question string
		k        int
	)

	cmd := &cobra.Command{
		Use:   "ask -q <question>",
		Short: "Ask a question",
		Long:  "Sends a question to the answer endpoint and prints the routed, cited answer.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, question, k, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "Question to ask (required)")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "Number of chunks to retrieve (server default when 0)")
	cmd.MarkFlagRequired("question")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, k int, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/answer", AskRequest{Question: question, K: k})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var answer AskResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(answer.Text)
	fmt.Println()
	fmt.Printf("Route: %s (%dms)\n", answer.Route, answer.LatencyMS)
	if len(answer.UsedTools) > 0 {
		fmt.Printf("Tools: %s\n", strings.Join(answer.UsedTools, ", "))
	}
	if len(answer.Sources) > 0 {
		fmt.Printf("Sources: %s\n", strings.Join(answer.Sources, ", "))
	}
	if len(answer.Citations) > 0 {
		fmt.Println("Citations:")
		for _, c := range answer.Citations {
			fmt.Printf("  %s@%d:%d\n", c.Source, c.Start, c.End)
		}
	}

	return nil
}
