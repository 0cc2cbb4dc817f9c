package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type EvalCase struct {
	Question        string   `json:"question"`
	ExpectedSources []string `json:"expected_sources,omitempty"`
	ExpectedRoute   string   `json:"expected_route,omitempty"`
}

type EvalSuite struct {
	Cases []EvalCase `json:"cases"`
	K     int        `json:"k,omitempty"`
}

type EvalCaseResult struct {
	Question        string   `json:"question"`
	Route           string   `json:"route"`
	ExpectedRoute   string   `json:"expected_route,omitempty"`
	Sources         []string `json:"sources"`
	ExpectedSources []string `json:"expected_sources,omitempty"`
	SourceHit       bool     `json:"source_hit"`
	RouteMatch      bool     `json:"route_match"`
	UsedTools       []string `json:"used_tools"`
	LatencyMS       int64    `json:"latency_ms"`
}

type EvalSummary struct {
	Total         int            `json:"total"`
	K             int            `json:"k"`
	SourceCases   int            `json:"source_cases"`
	SourceHitRate float64        `json:"source_hit_rate"`
	RouteCases    int            `json:"route_cases"`
	RouteAccuracy float64        `json:"route_accuracy"`
	MeanLatencyMS float64        `json:"mean_latency_ms"`
	Routes        map[string]int `json:"routes"`
}

type EvalOutput struct {
	Summary EvalSummary      `json:"summary"`
	Cases   []EvalCaseResult `json:"cases,omitempty"`
}

// EvalCmd creates the eval command.
func EvalCmd() *cobra.Command {
	var (
		file    string
		k       int
		out     string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "eval --file <eval.json>",
		Short: "Evaluate answer quality",
		Long: `Evaluate routing and grounding against a set of questions.

The input file can be either:
  - { "cases": [ { "question": "...", "expected_sources": [...], "expected_route": "..." } ], "k": 5 }
  - [ { "question": "...", "expected_sources": [...] } ]

A case counts as a source hit when any expected source appears in the
answer's sources. Route accuracy only considers cases with an
expected_route.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runEval(cmd, file, k, out, verbose, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Evaluation JSON file (required)")
	cmd.Flags().IntVar(&k, "k", 0, "Retrieval depth per question (overrides the suite)")
	cmd.Flags().StringVar(&out, "out", "", "Write per-case results as JSONL to this file")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print per-case results")
	cmd.MarkFlagRequired("file")

	return cmd
}

func parseEvalSuite(data []byte) (*EvalSuite, error) {
	var suite EvalSuite
	if err := json.Unmarshal(data, &suite); err != nil || len(suite.Cases) == 0 {
		var cases []EvalCase
		if err := json.Unmarshal(data, &cases); err != nil {
			return nil, fmt.Errorf("failed to parse eval file: %w", err)
		}
		suite.Cases = cases
	}

	if len(suite.Cases) == 0 {
		return nil, fmt.Errorf("no eval cases provided")
	}
	for _, c := range suite.Cases {
		if c.Question == "" {
			return nil, fmt.Errorf("eval case question is required")
		}
	}
	return &suite, nil
}

func scoreCase(c EvalCase, answer AskResponse) EvalCaseResult {
	result := EvalCaseResult{
		Question:        c.Question,
		Route:           answer.Route,
		ExpectedRoute:   c.ExpectedRoute,
		Sources:         answer.Sources,
		ExpectedSources: c.ExpectedSources,
		UsedTools:       answer.UsedTools,
		LatencyMS:       answer.LatencyMS,
	}

	found := make(map[string]struct{}, len(answer.Sources))
	for _, s := range answer.Sources {
		found[s] = struct{}{}
	}
	for _, want := range c.ExpectedSources {
		if _, ok := found[want]; ok {
			result.SourceHit = true
			break
		}
	}

	if c.ExpectedRoute != "" {
		result.RouteMatch = answer.Route == c.ExpectedRoute
	}

	return result
}

func runEval(cmd *cobra.Command, file string, k int, out string, verbose, outputJSON bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read eval file: %w", err)
	}

	suite, err := parseEvalSuite(data)
	if err != nil {
		return err
	}

	if k <= 0 {
		k = suite.K
	}

	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	var (
		sumLatency  int64
		sourceCases int
		sourceHits  int
		routeCases  int
		routeHits   int
		results     []EvalCaseResult
	)
	routes := make(map[string]int)

	for _, c := range suite.Cases {
		resp, err := api.Post("/answer", AskRequest{Question: c.Question, K: k})
		if err != nil {
			return fmt.Errorf("answer failed for question %q: %w", c.Question, err)
		}

		var answer AskResponse
		if err := json.Unmarshal(resp.Data, &answer); err != nil {
			return fmt.Errorf("failed to parse answer: %w", err)
		}

		result := scoreCase(c, answer)
		results = append(results, result)

		routes[answer.Route]++
		sumLatency += answer.LatencyMS
		if len(c.ExpectedSources) > 0 {
			sourceCases++
			if result.SourceHit {
				sourceHits++
			}
		}
		if c.ExpectedRoute != "" {
			routeCases++
			if result.RouteMatch {
				routeHits++
			}
		}
	}

	summary := EvalSummary{
		Total:         len(suite.Cases),
		K:             k,
		SourceCases:   sourceCases,
		RouteCases:    routeCases,
		MeanLatencyMS: float64(sumLatency) / float64(len(suite.Cases)),
		Routes:        routes,
	}
	if sourceCases > 0 {
		summary.SourceHitRate = float64(sourceHits) / float64(sourceCases)
	}
	if routeCases > 0 {
		summary.RouteAccuracy = float64(routeHits) / float64(routeCases)
	}

	if out != "" {
		if err := writeResultsJSONL(out, results); err != nil {
			return err
		}
	}

	if outputJSON {
		output := EvalOutput{Summary: summary}
		if verbose {
			output.Cases = results
		}
		encoded, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Printf("Eval results (%d cases, k=%d)\n", summary.Total, summary.K)
	if sourceCases > 0 {
		fmt.Printf("Source hit rate: %.4f (%d/%d)\n", summary.SourceHitRate, sourceHits, sourceCases)
	}
	if routeCases > 0 {
		fmt.Printf("Route accuracy: %.4f (%d/%d)\n", summary.RouteAccuracy, routeHits, routeCases)
	}
	fmt.Printf("Mean latency: %.1fms\n", summary.MeanLatencyMS)
	fmt.Println("Routes:")
	for route, count := range routes {
		fmt.Printf("  %s: %d\n", route, count)
	}

	if verbose {
		for _, r := range results {
			fmt.Printf("\nQuestion: %s\n", r.Question)
			fmt.Printf("Route: %s", r.Route)
			if r.ExpectedRoute != "" {
				fmt.Printf(" (expected %s)", r.ExpectedRoute)
			}
			fmt.Println()
			fmt.Printf("Sources: %v\n", r.Sources)
			if len(r.ExpectedSources) > 0 {
				fmt.Printf("Expected: %v  Hit: %v\n", r.ExpectedSources, r.SourceHit)
			}
		}
	}

	return nil
}

func writeResultsJSONL(path string, results []EvalCaseResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write results file: %w", err)
		}
	}
	return nil
}
