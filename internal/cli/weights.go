package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/simdex/internal/version"
	simdex "github.com/kailas-cloud/simdex/pkg/sdk"
)

func newWeightsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Show or reset the learned scoring weights",
	}

	show := &cobra.Command{
		Use:   "show <kind>",
		Short: "Print the current weights and revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.run(func(ctx context.Context, c *simdex.Client) error {
				w, err := c.Weights(kind).Get(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), toWeightsOutput(w))
			})(cmd, args)
		},
	}

	reset := &cobra.Command{
		Use:   "reset <kind>",
		Short: "Forget all feedback and restore the default weights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.run(func(ctx context.Context, c *simdex.Client) error {
				w, err := c.Weights(kind).Reset(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), toWeightsOutput(w))
			})(cmd, args)
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the database and descriptor services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context, c *simdex.Client) error {
				h := c.Health(ctx)
				if err := printJSON(cmd.OutOrStdout(), map[string]any{"status": h.Status, "checks": h.Checks}); err != nil {
					return err
				}
				if h.Status == "error" {
					return fmt.Errorf("unhealthy: %v", h.Checks)
				}
				return nil
			})(cmd, args)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "simdexctl "+version.String())
			return err
		},
	}
}
