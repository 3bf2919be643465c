package export

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pmarks/imexport/internal/chatdb"
	"github.com/pmarks/imexport/internal/testutil/storetest"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestWriteCSV(t *testing.T) {
	epoch := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	chat := &chatdb.Chat{
		RowID:        1,
		GUID:         "guid-a",
		Identifier:   "user@example.com",
		Participants: []string{"user@example.com"},
		Messages: []chatdb.Message{
			{
				ID:        1,
				Timestamp: timePtr(epoch),
				FromMe:    false,
				Sender:    strPtr("user@example.com"),
				Service:   "iMessage",
				Text:      "Hello",
				Attachments: []chatdb.Attachment{
					{Name: "file.txt", MIME: "text/plain", Path: "file.txt"},
					{Name: "second.txt", MIME: "text/plain", Path: "second.txt"},
				},
			},
			{
				ID:        2,
				Timestamp: timePtr(epoch.Add(30 * time.Second)),
				FromMe:    true,
				Service:   "iMessage",
				Text:      "line one\r\nline two",
			},
			{ID: 3, Service: "SMS", Text: "undated"},
		},
	}

	var buf strings.Builder
	if err := WriteCSV(&buf, chat, time.UTC); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	want := "message_id,timestamp_local_iso,from_me,sender_identifier,text,service,attachment_name,attachment_mime,attachment_path\n" +
		"1,2001-01-01T00:00:00+00:00,0,user@example.com,Hello,iMessage,file.txt,text/plain,file.txt\n" +
		"2,2001-01-01T00:00:30+00:00,1,,\"line one\nline two\",iMessage,,,\n" +
		"3,,0,,undated,SMS,,,\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv output mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteCSVFromStore exercises the full path from fixture database
// rows to the rendered row.
func TestWriteCSVFromStore(t *testing.T) {
	path, db := storetest.CreateDB(t)
	storetest.AddChat(t, db, 1, 1, "guid-a", "user@example.com", "user@example.com")
	storetest.Exec(t, db, `INSERT INTO message (ROWID, text, is_from_me, handle_id, service, date) VALUES (1, 'Hello', 1, 1, 'iMessage', 0)`)
	storetest.Exec(t, db, `INSERT INTO chat_message_join (chat_id, message_id) VALUES (1, 1)`)
	storetest.Exec(t, db, `INSERT INTO attachment (ROWID, filename, transfer_name, mime_type) VALUES (1, 'file.txt', 'file.txt', 'text/plain')`)
	storetest.Exec(t, db, `INSERT INTO message_attachment_join (message_id, attachment_id) VALUES (1, 1)`)

	s, err := chatdb.Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	chat, err := s.LoadChat(context.Background(), 1)
	if err != nil {
		t.Fatalf("LoadChat: %v", err)
	}

	var buf strings.Builder
	if err := WriteCSV(&buf, chat, time.UTC); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	wantRow := "1,2001-01-01T00:00:00+00:00,1,user@example.com,Hello,iMessage,file.txt,text/plain,file.txt"
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header plus one row:\n%s", len(lines), buf.String())
	}
	if lines[1] != wantRow {
		t.Errorf("row = %q, want %q", lines[1], wantRow)
	}
}

func TestWriteJSONOrdering(t *testing.T) {
	older := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	chats := []chatdb.Chat{
		{GUID: "guid-old", Identifier: "old", Participants: []string{"a"},
			Messages: []chatdb.Message{{ID: 1, Timestamp: timePtr(older)}}},
		{GUID: "guid-empty", Identifier: "empty", Participants: []string{"b"}},
		{GUID: "guid-new", Identifier: "new", Participants: []string{"c"},
			Messages: []chatdb.Message{{ID: 2, Timestamp: timePtr(newer)}}},
	}

	var buf strings.Builder
	if err := WriteJSON(&buf, chats, time.UTC); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded []struct {
		ChatGUID string `json:"chat_guid"`
	}
	if err := json.Unmarshal([]byte(buf.String()), &decoded); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	var order []string
	for _, c := range decoded {
		order = append(order, c.ChatGUID)
	}
	want := []string{"guid-new", "guid-old", "guid-empty"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("chat order mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSONShape(t *testing.T) {
	ts := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	chats := []chatdb.Chat{{
		GUID:         "guid-a",
		DisplayName:  "Family",
		Identifier:   "chat123",
		Participants: []string{"user@example.com", "+15551234567"},
		Messages: []chatdb.Message{
			{
				ID:        1,
				Timestamp: timePtr(ts),
				Sender:    strPtr("user@example.com"),
				Service:   "iMessage",
				Text:      "photo attached",
				Attachments: []chatdb.Attachment{
					{Name: "photo.jpg", MIME: "image/jpeg", Path: "a/photo.jpg"},
				},
			},
			{ID: 2, FromMe: true, Service: "iMessage", Text: "reply"},
		},
	}}

	var buf strings.Builder
	if err := WriteJSON(&buf, chats, time.UTC); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(buf.String()), &decoded); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("got %d chats, want 1", len(decoded))
	}

	c := decoded[0]
	if got := c["display_name"]; got != "Family" {
		t.Errorf("display_name = %v", got)
	}
	participants := c["participants"].([]any)
	if len(participants) != 2 {
		t.Errorf("got %d participants, want 2", len(participants))
	}

	messages := c["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	first := messages[0].(map[string]any)
	if got := first["timestamp"]; got != "2023-06-01T12:00:00+00:00" {
		t.Errorf("timestamp = %v", got)
	}
	attachments := first["attachments"].([]any)
	if len(attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(attachments))
	}
	if got := attachments[0].(map[string]any)["name"]; got != "photo.jpg" {
		t.Errorf("attachment name = %v", got)
	}

	second := messages[1].(map[string]any)
	if got := second["timestamp"]; got != nil {
		t.Errorf("undated timestamp = %v, want null", got)
	}
	if got := second["sender"]; got != nil {
		t.Errorf("self-sent sender = %v, want null", got)
	}
}
