package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmarks/imexport/internal/config"
	"github.com/pmarks/imexport/internal/export/html"
	"github.com/pmarks/imexport/internal/materialize"
)

var (
	exportHTMLOutput string
	exportHTMLIndex  int
)

var exportHTMLCmd = &cobra.Command{
	Use:   "export-html <participant>",
	Short: "Export one chat as a browsable HTML page",
	Long: `Export a chat as a static HTML page with a stylesheet and all
attachments copied alongside it. Images are normalized to PNG with
their EXIF orientation applied; other attachments are copied as-is.

Examples:
  imexport export-html "+1234567890" -o conversation/
  imexport export-html john@example.com --chat-index 1`,
	Args: cobra.ExactArgs(1),
	RunE: runExportHTML,
}

func runExportHTML(cmd *cobra.Command, args []string) error {
	participant := args[0]
	if err := validateParticipant(participant); err != nil {
		return err
	}

	output := exportHTMLOutput
	if output == "" {
		output = cfg.Export.HTMLOutput
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

	selected, err := chooseChat(candidates, exportHTMLIndex, promptSelect)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exporting chat: %s\n", selected.Title())

	chat, err := s.LoadChat(cmd.Context(), selected.RowID)
	if err != nil {
		return err
	}

	exporter := &html.Exporter{
		OutputDir: output,
		Materializer: &materialize.Materializer{
			AttachmentRoot: cfg.Store.AttachmentsDir,
			OutputRoot:     output,
			Log:            logger,
		},
		Log: logger,
	}
	if err := exporter.Export(cmd.Context(), chat); err != nil {
		return err
	}

	fmt.Printf("Chat exported to %s\n", output)
	return nil
}

func init() {
	rootCmd.AddCommand(exportHTMLCmd)
	exportHTMLCmd.Flags().StringVarP(&exportHTMLOutput, "output", "o", "",
		"output directory (default: imessage_html)")
	exportHTMLCmd.Flags().IntVar(&exportHTMLIndex, "chat-index", -1,
		"zero-based index of the chat to export when several match")
}
