package chatdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pmarks/imexport/internal/appletime"
	"github.com/pmarks/imexport/internal/attributed"
)

// FindChatsByParticipant returns every chat with a participant whose
// handle contains substr. Matching is case-sensitive: instr, not LIKE,
// since handles are phone numbers and emails where case is meaningful.
// Results are deduplicated by chat and annotated with the full
// participant list.
func (s *Store) FindChatsByParticipant(ctx context.Context, substr string) ([]ChatSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT c.ROWID, c.guid, c.chat_identifier, c.display_name
		FROM chat c
		JOIN chat_handle_join chj ON chj.chat_id = c.ROWID
		JOIN handle h ON h.ROWID = chj.handle_id
		WHERE instr(h.id, ?) > 0
		ORDER BY c.ROWID`, substr)
	if err != nil {
		return nil, fmt.Errorf("query chats by participant: %w", err)
	}
	defer rows.Close()

	var summaries []ChatSummary
	var ids []int64
	for rows.Next() {
		var cs ChatSummary
		var displayName sql.NullString
		if err := rows.Scan(&cs.RowID, &cs.GUID, &cs.Identifier, &displayName); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		cs.DisplayName = displayName.String
		summaries = append(summaries, cs)
		ids = append(ids, cs.RowID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat rows: %w", err)
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	participants, err := s.participantsByChat(ctx)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		summaries[i].Participants = participants[id]
	}
	return summaries, nil
}

// LoadChat hydrates one chat with all of its messages and attachments,
// ordered per the thread invariant.
func (s *Store) LoadChat(ctx context.Context, chatRowID int64) (*Chat, error) {
	chats, err := s.loadChats(ctx, &chatRowID)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, fmt.Errorf("chat %d not found", chatRowID)
	}
	return &chats[0], nil
}

// LoadAllChats hydrates every chat in the store.
func (s *Store) LoadAllChats(ctx context.Context) ([]Chat, error) {
	return s.loadChats(ctx, nil)
}

// loadChats is the shared hydration path. A nil chatRowID loads every
// chat. Participants, messages, and attachments each come from one bulk
// join grouped in memory, keeping hydration linear in row count.
func (s *Store) loadChats(ctx context.Context, chatRowID *int64) ([]Chat, error) {
	chats, index, err := s.chatHeaders(ctx, chatRowID)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return chats, nil
	}

	participants, err := s.participantsByChat(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		if p := participants[chats[i].RowID]; p != nil {
			chats[i].Participants = p
		} else {
			chats[i].Participants = []string{}
		}
	}

	attachments, err := s.attachmentsByMessage(ctx, chatRowID)
	if err != nil {
		return nil, err
	}

	if err := s.loadMessages(ctx, chatRowID, func(chatID int64, msg Message) {
		i, ok := index[chatID]
		if !ok {
			return
		}
		msg.Attachments = attachments[msg.ID]
		chats[i].Messages = append(chats[i].Messages, msg)
	}); err != nil {
		return nil, err
	}
	return chats, nil
}

// chatHeaders loads chat identity rows and returns them with an index
// from chat rowid to slice position.
func (s *Store) chatHeaders(ctx context.Context, chatRowID *int64) ([]Chat, map[int64]int, error) {
	q := `SELECT c.ROWID, c.guid, c.chat_identifier, c.display_name FROM chat c`
	var args []any
	if chatRowID != nil {
		q += ` WHERE c.ROWID = ?`
		args = append(args, *chatRowID)
	}
	q += ` ORDER BY c.ROWID`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	index := make(map[int64]int)
	for rows.Next() {
		var c Chat
		var displayName sql.NullString
		if err := rows.Scan(&c.RowID, &c.GUID, &c.Identifier, &displayName); err != nil {
			return nil, nil, fmt.Errorf("scan chat: %w", err)
		}
		c.DisplayName = displayName.String
		index[c.RowID] = len(chats)
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate chats: %w", err)
	}
	return chats, index, nil
}

// participantsByChat groups handle identifiers by chat in store order,
// deduplicating repeated handles within a chat.
func (s *Store) participantsByChat(ctx context.Context) (map[int64][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chj.chat_id, h.id
		FROM chat_handle_join chj
		JOIN handle h ON h.ROWID = chj.handle_id
		ORDER BY chj.chat_id, h.ROWID`)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	byChat := make(map[int64][]string)
	seen := make(map[int64]map[string]bool)
	for rows.Next() {
		var chatID int64
		var handle string
		if err := rows.Scan(&chatID, &handle); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if seen[chatID] == nil {
			seen[chatID] = make(map[string]bool)
		}
		if seen[chatID][handle] {
			continue
		}
		seen[chatID][handle] = true
		byChat[chatID] = append(byChat[chatID], handle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return byChat, nil
}

// attachmentsByMessage runs the message/attachment join once and groups
// the result by message id. A per-message query here would make full
// exports quadratic in the message count.
func (s *Store) attachmentsByMessage(ctx context.Context, chatRowID *int64) (map[int64][]Attachment, error) {
	q := `
		SELECT maj.message_id, a.transfer_name, a.mime_type, a.filename
		FROM message_attachment_join maj
		JOIN attachment a ON a.ROWID = maj.attachment_id`
	var args []any
	if chatRowID != nil {
		q += `
		JOIN chat_message_join cmj ON cmj.message_id = maj.message_id
		WHERE cmj.chat_id = ?`
		args = append(args, *chatRowID)
	}
	q += ` ORDER BY maj.message_id, a.ROWID`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	byMessage := make(map[int64][]Attachment)
	for rows.Next() {
		var messageID int64
		var name, mime, path sql.NullString
		if err := rows.Scan(&messageID, &name, &mime, &path); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		byMessage[messageID] = append(byMessage[messageID], Attachment{
			Name: name.String,
			MIME: mime.String,
			Path: path.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return byMessage, nil
}

// loadMessages streams message rows in thread order to fn. SQLite sorts
// NULL dates first under ORDER BY ASC, which matches the null-least
// ordering invariant.
func (s *Store) loadMessages(ctx context.Context, chatRowID *int64, fn func(chatID int64, msg Message)) error {
	q := `
		SELECT cmj.chat_id, m.ROWID, m.text, m.attributedBody, m.is_from_me,
		       h.id, m.service, m.date, m.item_type,
		       m.associated_message_guid, m.thread_originator_guid
		FROM chat_message_join cmj
		JOIN message m ON m.ROWID = cmj.message_id
		LEFT JOIN handle h ON h.ROWID = m.handle_id`
	var args []any
	if chatRowID != nil {
		q += `
		WHERE cmj.chat_id = ?`
		args = append(args, *chatRowID)
	}
	q += `
		ORDER BY m.date ASC, m.ROWID ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chatID int64
		var msg Message
		var text, sender, service, assocGUID, threadGUID sql.NullString
		var body []byte
		var fromMe, date, itemType sql.NullInt64
		if err := rows.Scan(&chatID, &msg.ID, &text, &body, &fromMe,
			&sender, &service, &date, &itemType, &assocGUID, &threadGUID); err != nil {
			return fmt.Errorf("scan message: %w", err)
		}

		msg.FromMe = fromMe.Int64 != 0
		msg.Service = service.String
		if sender.Valid {
			v := sender.String
			msg.Sender = &v
		}
		if date.Valid {
			v := date.Int64
			msg.Timestamp = appletime.ToTime(&v)
		}
		if itemType.Valid {
			v := itemType.Int64
			msg.ItemType = &v
		}
		if assocGUID.Valid {
			v := assocGUID.String
			msg.AssociatedMessageGUID = &v
		}
		if threadGUID.Valid {
			v := threadGUID.String
			msg.ThreadOriginatorGUID = &v
		}

		msg.Text = text.String
		if msg.Text == "" && len(body) > 0 {
			// Decoding the archived body is the most expensive step of
			// the pipeline; it runs only when the text column is empty.
			msg.Text = attributed.Decode(body)
			if msg.Text == "" {
				s.log.Debug("attributedBody yielded no text", "message_id", msg.ID)
			}
		}

		fn(chatID, msg)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate messages: %w", err)
	}
	return nil
}
