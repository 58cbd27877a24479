package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/collection"
)

type searchOptions struct {
	kind      string
	namespace string
	rank      bool
	limit     int
	minRank   int
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the index of one record kind",
		Long: `Search the postings of one record kind. Query words are analyzed like
indexed text; a record matches when it carries every query token.

Examples:
  fts search --kind post "golang channels"
  fts search --kind post --rank=false --limit 0 gopher`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, rt, err := openRuntime(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Registry.Search(ctx, opts.kind, strings.Join(args, " "), collection.SearchOptions{
				Namespace: opts.namespace,
				Rank:      opts.rank,
				Limit:     opts.limit,
				MinRank:   opts.minRank,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "Record kind to search")
	cmd.Flags().StringVar(&opts.namespace, "namespace", "", "Namespace (defaults to the collection's)")
	cmd.Flags().BoolVar(&opts.rank, "rank", true, "Order by rank instead of id")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results, 0 for all")
	cmd.Flags().IntVar(&opts.minRank, "min-rank", 0, "Drop results ranked below this")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
