package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer"
)

type indexOptions struct {
	kind      string
	namespace string
	ids       []string
	all       bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild postings for records",
		Long: `Rebuild the postings of the given records, or of every record of a kind
with --all. Without --kind, --all reindexes every configured kind.

Records listed with --id that no longer exist lose their postings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !opts.all && len(opts.ids) == 0 {
				return fmt.Errorf("either --all or at least one --id is required")
			}
			if opts.all && len(opts.ids) > 0 {
				return fmt.Errorf("--all and --id are mutually exclusive")
			}
			if opts.kind == "" && !opts.all {
				return fmt.Errorf("--kind is required with --id")
			}

			ctx := cmd.Context()
			_, rt, err := openRuntime(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			var results []*indexer.UpdateResult
			if opts.kind == "" {
				results, err = rt.Registry.UpdateAll(ctx, opts.namespace)
				if err != nil {
					return err
				}
			} else {
				col, err := rt.Registry.Lookup(opts.kind)
				if err != nil {
					return err
				}
				res, err := col.UpdateIndex(ctx, col.Engine().Scope(opts.namespace, opts.ids...))
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "Record kind to index")
	cmd.Flags().StringVar(&opts.namespace, "namespace", "", "Namespace (defaults to the collection's)")
	cmd.Flags().StringSliceVar(&opts.ids, "id", nil, "Record id to reindex (repeatable)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Reindex every record")
	return cmd
}
