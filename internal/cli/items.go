package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	simdex "github.com/kailas-cloud/simdex/pkg/sdk"
)

func newDescribeCmd(a *app) *cobra.Command {
	var withParts bool
	cmd := &cobra.Command{
		Use:   "describe <kind> <file>...",
		Short: "Compute descriptors without storing anything",
		Args:  cobra.MinimumNArgs(2),
	}
	cmd.Flags().BoolVar(&withParts, "parts", true, "print descriptor vectors")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		files, err := readFiles(args[1:])
		if err != nil {
			return err
		}
		return a.run(func(ctx context.Context, c *simdex.Client) error {
			results := c.Items(kind).Describe(ctx, files)
			return printJSON(cmd.OutOrStdout(), toBatchOutput(results, withParts))
		})(cmd, args)
	}
	return cmd
}

func newIngestCmd(a *app) *cobra.Command {
	var (
		category string
		attrs    map[string]string
	)
	cmd := &cobra.Command{
		Use:   "ingest <kind> <file>...",
		Short: "Extract and store items; an existing item with the same name is replaced",
		Args:  cobra.MinimumNArgs(2),
	}
	cmd.Flags().StringVar(&category, "category", "", "category tag for every file")
	cmd.Flags().StringToStringVar(&attrs, "attr", nil, "extra attribute key=value (repeatable)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		files, err := readFiles(args[1:])
		if err != nil {
			return err
		}
		return a.run(func(ctx context.Context, c *simdex.Client) error {
			results, err := c.Items(kind).Ingest(ctx, files, category, attrs)
			if err != nil {
				return err
			}
			out := toBatchOutput(results, false)
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if out.Failed > 0 {
				return fmt.Errorf("%d of %d files failed", out.Failed, len(results))
			}
			return nil
		})(cmd, args)
	}
	return cmd
}

func newItemsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and remove stored items",
	}
	cmd.AddCommand(
		newItemsListCmd(a),
		newItemsGetCmd(a),
		newItemsAssetCmd(a),
		newItemsDeleteCmd(a),
		newItemsPurgeCmd(a),
	)
	return cmd
}

func newItemsListCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List stored items",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&category, "category", "", "only items of this category")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		return a.run(func(ctx context.Context, c *simdex.Client) error {
			items, err := c.Items(kind).List(ctx, category)
			if err != nil {
				return err
			}
			out := make([]itemOutput, len(items))
			for i, it := range items {
				out[i] = toItemOutput(it, false)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"items": out, "total": len(out)})
		})(cmd, args)
	}
	return cmd
}

func newItemsGetCmd(a *app) *cobra.Command {
	var withParts bool
	cmd := &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().BoolVar(&withParts, "parts", false, "print descriptor vectors")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		return a.run(func(ctx context.Context, c *simdex.Client) error {
			it, err := c.Items(kind).Get(ctx, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), toItemOutput(it, withParts))
		})(cmd, args)
	}
	return cmd
}

func newItemsAssetCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "asset <kind> <id>",
		Short: "Save the original upload of an item",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default: the item id)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		dst := output
		if dst == "" {
			dst = args[1]
		}
		return a.run(func(ctx context.Context, c *simdex.Client) error {
			data, err := c.Items(kind).Asset(ctx, args[1])
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Clean(dst), data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", dst, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), dst)
			return err
		})(cmd, args)
	}
	return cmd
}

func newItemsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>...",
		Short: "Delete items and their stored uploads",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.run(func(ctx context.Context, c *simdex.Client) error {
				var errs []error
				for _, id := range args[1:] {
					if err := c.Items(kind).Delete(ctx, id); err != nil {
						errs = append(errs, fmt.Errorf("%s: %w", id, err))
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
				}
				return errors.Join(errs...)
			})(cmd, args)
		},
	}
}

func newItemsPurgeCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge <kind>",
		Short: "Delete every item of a kind",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting the whole corpus")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		if !yes {
			return fmt.Errorf("refusing to delete every %s item without --yes", kind)
		}
		return a.run(func(ctx context.Context, c *simdex.Client) error {
			n, err := c.Items(kind).DeleteAll(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": n})
		})(cmd, args)
	}
	return cmd
}
