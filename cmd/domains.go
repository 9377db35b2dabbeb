package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meatloaf02/KG/internal/ingest/domains"
)

func newDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List the crawl allowlist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := domains.Default()
			for _, name := range registry.Domains() {
				cfg, _ := registry.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-20s %-7s %.2f req/s\n",
					cfg.Domain, cfg.Source, cfg.Priority, cfg.RequestsPerSecond)
			}
			return nil
		},
	}
}
