package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	researchgw "github.com/finsight-labs/research-gateway"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a gateway configuration file (JSON/YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := researchgw.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := researchgw.ValidateConfig(*cfg); err != nil {
				return fmt.Errorf("validation error: %w", err)
			}

			targets := append([]researchgw.ProviderTarget(nil), cfg.Providers...)
			sort.SliceStable(targets, func(i, j int) bool { return targets[i].Priority < targets[j].Priority })
			names := make([]string, 0, len(targets))
			for _, t := range targets {
				names = append(names, t.ID)
			}

			fmt.Printf("✓ Config is valid\n")
			fmt.Printf("  Providers: %s\n", strings.Join(names, " -> "))
			if cfg.History.DSN != "" {
				fmt.Printf("  History:   %s\n", cfg.History.Driver)
			}
			return nil
		},
	}
}
