package cli

import (
	"context"

	"github.com/spf13/cobra"

	simdex "github.com/kailas-cloud/simdex/pkg/sdk"
)

const searchLongDesc = `Rank the stored corpus against a query file.

Passing --relevant or --irrelevant adapts the stored weights from that
feedback before ranking; both lists must then be non-empty and name
stored items. Lower scores are more similar.`

func newSearchCmd(a *app) *cobra.Command {
	var (
		topN       int
		relevant   []string
		irrelevant []string
	)
	cmd := &cobra.Command{
		Use:   "search <kind> <file>",
		Short: "Find the most similar stored items",
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().IntVarP(&topN, "top-n", "n", 0, "number of results (default: 5)")
	cmd.Flags().StringSliceVar(&relevant, "relevant", nil, "IDs judged relevant in a previous answer")
	cmd.Flags().StringSliceVar(&irrelevant, "irrelevant", nil, "IDs judged irrelevant in a previous answer")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		files, err := readFiles(args[1:])
		if err != nil {
			return err
		}
		opts := simdex.SearchOptions{TopN: topN}
		if cmd.Flags().Changed("relevant") || cmd.Flags().Changed("irrelevant") {
			opts.Feedback = &simdex.Feedback{Relevant: relevant, Irrelevant: irrelevant}
		}
		return a.run(func(ctx context.Context, c *simdex.Client) error {
			res, err := c.Search(kind).Query(ctx, files[0], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), toSearchOutput(res))
		})(cmd, args)
	}
	return cmd
}
