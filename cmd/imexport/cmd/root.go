package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmarks/imexport/internal/chatdb"
	"github.com/pmarks/imexport/internal/config"
)

var (
	cfgFile        string
	dbPath         string
	attachmentsDir string
	verbose        bool
	cfg            *config.Config
	logger         *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "imexport",
	Short: "Export iMessage conversations from the macOS Messages database",
	Long: `imexport reads the macOS Messages database (chat.db) and exports
conversations to portable formats: CSV for a single chat, JSON for the
whole archive, and a browsable HTML page with attachments.

The database is opened read-only and is never modified.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		// Set up logging
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Flags override config.
		if dbPath != "" {
			cfg.Store.DBPath = config.ExpandPath(dbPath)
		}
		if attachmentsDir != "" {
			cfg.Store.AttachmentsDir = config.ExpandPath(attachmentsDir)
		}

		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if guidance := chatdb.Guidance(err); guidance != "" {
			fmt.Fprintf(os.Stderr, "\n%s\n", guidance)
		}
	}
	return err
}

// openStore opens the configured Messages database read-only.
func openStore() (*chatdb.Store, error) {
	return chatdb.Open(cfg.Store.DBPath, logger)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.imexport/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to chat.db (default: ~/Library/Messages/chat.db)")
	rootCmd.PersistentFlags().StringVar(&attachmentsDir, "attachments", "", "attachment root (default: ~/Library/Messages/Attachments)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
