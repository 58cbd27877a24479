package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show token and posting counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, rt, err := openRuntime(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.SQL == nil {
				return fmt.Errorf("backend %q keeps no persistent index", cfg.Index.Backend)
			}
			tokens, postings, err := rt.SQL.Counts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"backend":  cfg.Index.Backend,
				"kinds":    rt.Registry.Kinds(),
				"tokens":   tokens,
				"postings": postings,
			})
		},
	}
}
