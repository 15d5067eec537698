// Package app provides the indexer command tree.
package app

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/indexer/internal/config"
	"github.com/kailas-cloud/indexer/internal/version"
)

type globalFlags struct {
	env        string
	configPath string
	logLevel   string
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:               "indexer",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Solr index lifecycle coordinator",
		Long: `indexer creates and removes Solr collections and cores, publishes their
config sets to the coordination service and exposes the same operations over HTTP.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&flags.env, "env", config.GetEnv(), "Environment name (selects config/<env>.yaml)")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file (overrides --env)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(&flags),
		newIndexesCmd(&flags),
		newConfigsCmd(&flags),
		newAliasesCmd(&flags),
		newVersionCmd(),
	)
	return root
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	if flags.configPath != "" {
		return config.LoadFile(flags.configPath)
	}
	return config.Load(flags.env)
}

func newVersionCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version":  version.Version,
				"commit":   version.Commit,
				"built":    version.Date,
				"go":       runtime.Version(),
				"platform": runtime.GOOS + "/" + runtime.GOARCH,
			}
			if format == "json" {
				out, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("format version info: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "indexer %s (commit %s, built %s, %s %s)\n",
				info["version"], info["commit"], info["built"], info["go"], info["platform"])
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format (json)")
	return cmd
}
