package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alvmarrod/link-graph/internal/config"
	"github.com/alvmarrod/link-graph/internal/version"
)

// defaultConfigPath is read when present and --config is not given
const defaultConfigPath = "config.json"

// NewRootCmd creates the root command. Without a subcommand it crawls.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkgraph",
		Short: "Crawl a domain breadth-first and export its link graph",
		Long: `linkgraph crawls pages of a single domain starting from a seed URL and
records which pages link to which. The result is a CSV edge list of integer
node ids, restricted to pages that were actually visited.

Settings come from flags, LINKGRAPH_* environment variables and an optional
JSON config file, in that order of precedence.`,
		Version:           version.String(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
		RunE:              runCrawl,
	}

	cmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to a JSON config file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	addCrawlFlags(cmd)

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewExportCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logrus.SetLevel(logrus.InfoLevel)

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// loadConfig binds the command's flags to their config keys and loads the
// merged configuration
func loadConfig(cmd *cobra.Command, flagKeys map[string]string) (*config.Config, error) {
	v := config.NewViper()
	if err := bindFlags(v, cmd, flagKeys); err != nil {
		return nil, err
	}

	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, flagKeys map[string]string) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// configPath returns the config file to read, or "" when the default file is absent
func configPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", err
	}
	if cmd.Flags().Changed("config") {
		return path, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	return path, nil
}
