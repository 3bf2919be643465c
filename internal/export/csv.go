// Package export writes aggregated chat threads to the tabular (CSV)
// and hierarchical (JSON) output formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pmarks/imexport/internal/appletime"
	"github.com/pmarks/imexport/internal/chatdb"
)

// csvHeader is the fixed column order of the tabular export.
var csvHeader = []string{
	"message_id", "timestamp_local_iso", "from_me", "sender_identifier",
	"text", "service", "attachment_name", "attachment_mime", "attachment_path",
}

// WriteCSV writes one row per message of the chat to w. Only the first
// attachment of a message is represented; the hierarchical export
// carries the full list. A nil loc renders timestamps in local time.
func WriteCSV(w io.Writer, chat *chatdb.Chat, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, msg := range chat.Messages {
		sender := ""
		if msg.Sender != nil {
			sender = *msg.Sender
		}

		var attName, attMIME, attPath string
		if len(msg.Attachments) > 0 {
			first := msg.Attachments[0]
			attName, attMIME, attPath = first.Name, first.MIME, first.Path
		}

		row := []string{
			strconv.FormatInt(msg.ID, 10),
			appletime.FormatISOIn(msg.Timestamp, loc),
			fromMeFlag(msg.FromMe),
			sender,
			normalizeNewlines(msg.Text),
			msg.Service,
			attName,
			attMIME,
			attPath,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for message %d: %w", msg.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func fromMeFlag(fromMe bool) string {
	if fromMe {
		return "1"
	}
	return "0"
}

// normalizeNewlines collapses CRLF line endings to LF for tabular output.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
