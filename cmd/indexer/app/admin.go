package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/indexer/internal/domain/index/field"
	logpkg "github.com/kailas-cloud/indexer/internal/logger"
	indexuc "github.com/kailas-cloud/indexer/internal/usecase/index"
)

// withService builds the components and runs fn with a logger-carrying context.
func withService(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, svc *indexuc.Service) error) error {
	c, err := build(flags)
	if err != nil {
		return err
	}
	defer func() { _ = c.logger.Sync() }()
	return fn(logpkg.ContextWithLogger(cmd.Context(), c.logger), c.indexes)
}

func newIndexesCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "indexes",
		Aliases: []string{"index"},
		Short:   "Manage collections, cores and aliases",
	}
	cmd.AddCommand(
		newIndexesListCmd(flags),
		newIndexesCreateCmd(flags),
		newIndexesDeleteCmd(flags),
		newIndexesSampleCmd(flags),
		newIndexesSchemaCmd(flags),
	)
	return cmd
}

func newIndexesListCmd(flags *globalFlags) *cobra.Command {
	var includeCores bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc *indexuc.Service) error {
				indexes, err := svc.GetIndexes(ctx, includeCores)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "NAME\tTYPE\tCOLLECTIONS")
				for _, idx := range indexes {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", idx.Name(), idx.Type(), strings.Join(idx.Collections(), ","))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&includeCores, "include-cores", false, "Also list standalone cores")
	return cmd
}

func newIndexesCreateCmd(flags *globalFlags) *cobra.Command {
	var (
		fieldArgs []string
		configSet string
		uniqueKey string
		df        string
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an index with the given fields",
		Long: `Create a collection (SolrCloud) or core (standalone).

Fields are given as name:type[:flags], where flags use the letters
I (indexed), T (tokenized), S (stored) and M (multi-valued), e.g.
  --field id:string:IS --field title:text_general:ITS`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFieldSpecs(fieldArgs)
			if err != nil {
				return err
			}
			return withService(cmd, flags, func(ctx context.Context, svc *indexuc.Service) error {
				err := svc.CreateIndex(ctx, indexuc.CreateRequest{
					Name:         args[0],
					Fields:       fields,
					ConfigSet:    configSet,
					UniqueKey:    uniqueKey,
					DefaultField: df,
				})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
				return err
			})
		},
	}
	cmd.Flags().StringArrayVar(&fieldArgs, "field", nil, "Field as name:type[:flags] (repeatable)")
	cmd.Flags().StringVar(&configSet, "config-set", "", "Existing config set to use instead of generating one")
	cmd.Flags().StringVar(&uniqueKey, "unique-key", "", "Unique key field (default id)")
	cmd.Flags().StringVar(&df, "df", "", "Default search field (default: unique key)")
	return cmd
}

func newIndexesDeleteCmd(flags *globalFlags) *cobra.Command {
	var keepConfig bool
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a collection and optionally its config set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc *indexuc.Service) error {
				if err := svc.DeleteIndex(ctx, args[0], keepConfig); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&keepConfig, "keep-config", true, "Keep the config set in the coordination service")
	return cmd
}

func newIndexesSampleCmd(flags *globalFlags) *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "sample NAME",
		Short: "Print a sample of documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc *indexuc.Service) error {
				res, err := svc.SampleIndex(ctx, args[0], rows)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "Number of rows (default from index.default_sample_rows)")
	return cmd
}

func newIndexesSchemaCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schema NAME",
		Short: "Print the index schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc *indexuc.Service) error {
				res, err := svc.ListSchema(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newConfigsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "Inspect config sets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List config sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc *indexuc.Service) error {
				configs, err := svc.ListConfigs(ctx)
				if err != nil {
					return err
				}
				for _, c := range configs {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), c); err != nil {
						return err
					}
				}
				return nil
			})
		},
	})
	return cmd
}

func newAliasesCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Manage collection aliases",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, flags, func(ctx context.Context, svc *indexuc.Service) error {
				return svc.DeleteAlias(ctx, args[0])
			})
		},
	})
	return cmd
}

// parseFieldSpecs turns name:type[:flags] arguments into fields.
func parseFieldSpecs(args []string) ([]field.Field, error) {
	fields := make([]field.Field, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid field %q: want name:type[:flags]", arg)
		}
		attrs := map[string]any{
			field.AttrName: parts[0],
			field.AttrType: parts[1],
		}
		if len(parts) == 3 {
			attrs[field.AttrFlags] = parts[2]
		}
		f, err := field.FromAttributes(attrs)
		if err != nil {
			return nil, fmt.Errorf("invalid field %q: %w", arg, err)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = w.Write(raw)
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
