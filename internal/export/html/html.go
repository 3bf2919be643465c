// Package html renders a chat thread as a static browsable page:
// index.html, a stylesheet, and a materialized attachment tree.
package html

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pmarks/imexport/internal/appletime"
	"github.com/pmarks/imexport/internal/chatdb"
	"github.com/pmarks/imexport/internal/materialize"
)

//go:embed templates/chat.html styles/chat.css
var assets embed.FS

// noDateBucket groups messages that have no timestamp. It renders after
// every dated group; dated groups render in ascending date order.
const noDateBucket = "No Date"

// Exporter writes a rendered-document export of one chat.
type Exporter struct {
	// OutputDir is the export directory; it is created if absent.
	OutputDir string

	// Materializer copies attachments into OutputDir. Required.
	Materializer *materialize.Materializer

	// Loc controls timestamp rendering and date grouping. Defaults to
	// local time.
	Loc *time.Location

	// Parallelism bounds concurrent attachment materialization.
	// Defaults to 4. Output naming is deterministic regardless.
	Parallelism int

	Log *slog.Logger
}

type renderAttachment struct {
	Path string
	MIME string
	Name string
	Kind string // image, video, audio, or file
}

type renderMessage struct {
	ID          int64
	Time        string
	FromMe      bool
	Sender      string
	Text        string
	Attachments []renderAttachment
}

type dateGroup struct {
	Date     string
	Messages []renderMessage
}

type pageData struct {
	Title         string
	Participants  string
	ExportDate    string
	TotalMessages int
	Groups        []dateGroup
}

func (e *Exporter) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e *Exporter) loc() *time.Location {
	if e.Loc != nil {
		return e.Loc
	}
	return time.Local
}

// Export renders chat into OutputDir. The chat's identity fields are a
// precondition: a chat missing any of them is a validation failure, not
// something to render with defaults.
func (e *Exporter) Export(ctx context.Context, chat *chatdb.Chat) error {
	if err := chat.Validate(); err != nil {
		return err
	}

	for _, dir := range []string{e.OutputDir, filepath.Join(e.OutputDir, "styles")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := e.copyStylesheet(); err != nil {
		return err
	}

	rendered, err := e.renderMessages(ctx, chat)
	if err != nil {
		return err
	}

	data := pageData{
		Title:         chat.Title(),
		Participants:  chat.ParticipantList(),
		ExportDate:    time.Now().In(e.loc()).Format("2006-01-02 15:04:05"),
		TotalMessages: len(chat.Messages),
		Groups:        groupByDate(rendered),
	}
	return e.writePage(data)
}

func (e *Exporter) copyStylesheet() error {
	css, err := assets.ReadFile("styles/chat.css")
	if err != nil {
		return fmt.Errorf("read embedded stylesheet: %w", err)
	}
	dest := filepath.Join(e.OutputDir, "styles", "chat.css")
	if err := os.WriteFile(dest, css, 0o644); err != nil {
		return fmt.Errorf("write stylesheet: %w", err)
	}
	return nil
}

// renderMessages builds the render model, materializing attachments as
// it goes. Materialization is the slow part, so messages are processed
// concurrently; results land at their message's index, so ordering and
// naming stay deterministic. A message's failed attachment is dropped
// from the page, never fatal to the export.
func (e *Exporter) renderMessages(ctx context.Context, chat *chatdb.Chat) ([]renderMessage, error) {
	loc := e.loc()
	out := make([]renderMessage, len(chat.Messages))

	g, ctx := errgroup.WithContext(ctx)
	limit := e.Parallelism
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for i := range chat.Messages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			msg := &chat.Messages[i]

			rm := renderMessage{
				ID:     msg.ID,
				Time:   appletime.FormatISOIn(msg.Timestamp, loc),
				FromMe: msg.FromMe,
				Text:   msg.Text,
			}
			if msg.Sender != nil {
				rm.Sender = *msg.Sender
			}

			for _, att := range msg.Attachments {
				mat, err := e.Materializer.Materialize(att, msg.ID)
				if err != nil {
					e.logger().Warn("attachment not materialized",
						"message_id", msg.ID, "path", att.Path, "error", err)
					continue
				}
				if mat == nil {
					continue
				}
				rm.Attachments = append(rm.Attachments, renderAttachment{
					Path: mat.Path,
					MIME: mat.MIME,
					Name: mat.Name,
					Kind: attachmentKind(mat.MIME),
				})
			}

			out[i] = rm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func attachmentKind(mime string) string {
	switch {
	case len(mime) > 6 && mime[:6] == "image/":
		return "image"
	case len(mime) > 6 && mime[:6] == "video/":
		return "video"
	case len(mime) > 6 && mime[:6] == "audio/":
		return "audio"
	default:
		return "file"
	}
}

// groupByDate buckets rendered messages by the date portion of their
// local timestamp, dated buckets ascending and the no-date bucket last.
// Within a bucket, thread order is preserved.
func groupByDate(messages []renderMessage) []dateGroup {
	buckets := make(map[string][]renderMessage)
	for _, m := range messages {
		key := noDateBucket
		if len(m.Time) >= 10 {
			key = m.Time[:10]
		}
		buckets[key] = append(buckets[key], m)
	}

	dates := make([]string, 0, len(buckets))
	for d := range buckets {
		if d != noDateBucket {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	if _, ok := buckets[noDateBucket]; ok {
		dates = append(dates, noDateBucket)
	}

	groups := make([]dateGroup, 0, len(dates))
	for _, d := range dates {
		groups = append(groups, dateGroup{Date: d, Messages: buckets[d]})
	}
	return groups
}

func (e *Exporter) writePage(data pageData) error {
	tmpl, err := template.ParseFS(assets, "templates/chat.html")
	if err != nil {
		return fmt.Errorf("parse page template: %w", err)
	}

	f, err := os.Create(filepath.Join(e.OutputDir, "index.html"))
	if err != nil {
		return fmt.Errorf("create index.html: %w", err)
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("render page: %w", err)
	}
	return f.Close()
}
