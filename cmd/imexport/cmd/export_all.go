package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmarks/imexport/internal/config"
	"github.com/pmarks/imexport/internal/export"
)

var exportAllOutput string

var exportAllCmd = &cobra.Command{
	Use:   "export-all",
	Short: "Export every chat to a single JSON file",
	Long: `Export all chat threads with their messages and attachment metadata
to one JSON document. Chats are ordered by most recent activity,
messages within a chat chronologically.

Example:
  imexport export-all -o all_conversations.json`,
	Args: cobra.NoArgs,
	RunE: runExportAll,
}

func runExportAll(cmd *cobra.Command, args []string) error {
	output := exportAllOutput
	if output == "" {
		output = cfg.Export.JSONOutput
	}
	output = config.ExpandPath(output)

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	chats, err := s.LoadAllChats(cmd.Context())
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := export.WriteJSON(f, chats, nil); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	fmt.Printf("Exported %d chat(s) to %s\n", len(chats), output)
	return nil
}

func init() {
	rootCmd.AddCommand(exportAllCmd)
	exportAllCmd.Flags().StringVarP(&exportAllOutput, "output", "o", "",
		"output JSON file (default: imessage_all.json)")
}
