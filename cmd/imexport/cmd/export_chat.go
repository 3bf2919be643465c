package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmarks/imexport/internal/config"
	"github.com/pmarks/imexport/internal/export"
)

var (
	exportChatOutput string
	exportChatIndex  int
)

var exportChatCmd = &cobra.Command{
	Use:   "export-chat <participant>",
	Short: "Export one chat to CSV",
	Long: `Export the messages of a chat with a matching participant to a CSV
file, one row per message. If several chats match, an interactive
selector is shown; use --chat-index in scripts.

Examples:
  imexport export-chat "+1234567890" -o my_conversation.csv
  imexport export-chat john@example.com --chat-index 0`,
	Args: cobra.ExactArgs(1),
	RunE: runExportChat,
}

func runExportChat(cmd *cobra.Command, args []string) error {
	participant := args[0]
	if err := validateParticipant(participant); err != nil {
		return err
	}

	output := exportChatOutput
	if output == "" {
		output = cfg.Export.CSVOutput
	}
	output = config.ExpandPath(output)

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	candidates, err := s.FindChatsByParticipant(cmd.Context(), participant)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no chats found with participant %q", participant)
	}

	selected, err := chooseChat(candidates, exportChatIndex, promptSelect)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exporting chat: %s\n", selected.Title())

	chat, err := s.LoadChat(cmd.Context(), selected.RowID)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := export.WriteCSV(f, chat, nil); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	fmt.Printf("Chat exported to %s\n", output)
	return nil
}

func init() {
	rootCmd.AddCommand(exportChatCmd)
	exportChatCmd.Flags().StringVarP(&exportChatOutput, "output", "o", "",
		"output CSV file (default: imessage_chat.csv)")
	exportChatCmd.Flags().IntVar(&exportChatIndex, "chat-index", -1,
		"zero-based index of the chat to export when several match")
}
