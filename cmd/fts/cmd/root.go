// Package cmd provides the commands of the fts CLI.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fts/pkg/logger"
)

var configPath string

// NewRootCmd creates the root command of the fts CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fts",
		Short: "Weighted full-text indexing and search",
		Long: `fts maintains weighted token postings for the record kinds named in the
config file and answers prefix or exact queries against them.

Examples:
  fts migrate
  fts index --kind post --all
  fts index --kind post --id 42 --id 43
  fts search --kind post --limit 5 "golang channels"`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/development.yaml", "Path to config file")

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// openRuntime loads the config, sets up logging and builds the collections.
// Log output goes to stderr so command output stays machine readable.
func openRuntime(ctx context.Context, migrate bool) (*config.Config, *collection.Runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	rt, err := collection.Build(ctx, cfg, collection.BuildOptions{Migrate: migrate})
	if err != nil {
		return nil, nil, err
	}
	return cfg, rt, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
