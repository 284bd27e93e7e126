// Command researchgw runs the research gateway: a resilience layer that
// fronts market-data fetches and LLM analysis backends with caching, retry,
// circuit breaking, ordered provider fallback, and confidence scoring.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finsight-labs/research-gateway/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:     "researchgw",
		Short:   "researchgw — resilient stock-research gateway",
		Version: version.String(),
	}

	root.AddCommand(
		newServeCmd(),
		newAnalyzeCmd(),
		newValidateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
