package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pmarks/imexport/internal/appletime"
	"github.com/pmarks/imexport/internal/chatdb"
)

// chatJSON is the hierarchical export shape for one chat.
type chatJSON struct {
	ChatGUID       string        `json:"chat_guid"`
	DisplayName    string        `json:"display_name"`
	ChatIdentifier string        `json:"chat_identifier"`
	Participants   []string      `json:"participants"`
	Messages       []messageJSON `json:"messages"`
}

type messageJSON struct {
	ID                    int64            `json:"id"`
	Timestamp             *string          `json:"timestamp"`
	FromMe                bool             `json:"from_me"`
	Sender                *string          `json:"sender"`
	Service               string           `json:"service"`
	Text                  string           `json:"text"`
	ItemType              *int64           `json:"item_type"`
	AssociatedMessageGUID *string          `json:"associated_message_guid"`
	ThreadOriginatorGUID  *string          `json:"thread_originator_guid"`
	Attachments           []attachmentJSON `json:"attachments"`
}

type attachmentJSON struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Path string `json:"path"`
}

// WriteJSON writes the hierarchical export of all chats to w. Chats are
// ordered by most recent message descending; chats without messages
// sort last. Messages within a chat keep their ascending thread order.
func WriteJSON(w io.Writer, chats []chatdb.Chat, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	order := make([]int, len(chats))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a := chats[order[i]].LastActivity()
		b := chats[order[j]].LastActivity()
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	out := make([]chatJSON, 0, len(chats))
	for _, idx := range order {
		out = append(out, toChatJSON(&chats[idx], loc))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}

func toChatJSON(c *chatdb.Chat, loc *time.Location) chatJSON {
	participants := c.Participants
	if participants == nil {
		participants = []string{}
	}

	messages := make([]messageJSON, 0, len(c.Messages))
	for _, m := range c.Messages {
		var ts *string
		if m.Timestamp != nil {
			v := appletime.FormatISOIn(m.Timestamp, loc)
			ts = &v
		}
		attachments := make([]attachmentJSON, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			attachments = append(attachments, attachmentJSON{Name: a.Name, MIME: a.MIME, Path: a.Path})
		}
		messages = append(messages, messageJSON{
			ID:                    m.ID,
			Timestamp:             ts,
			FromMe:                m.FromMe,
			Sender:                m.Sender,
			Service:               m.Service,
			Text:                  m.Text,
			ItemType:              m.ItemType,
			AssociatedMessageGUID: m.AssociatedMessageGUID,
			ThreadOriginatorGUID:  m.ThreadOriginatorGUID,
			Attachments:           attachments,
		})
	}

	return chatJSON{
		ChatGUID:       c.GUID,
		DisplayName:    c.DisplayName,
		ChatIdentifier: c.Identifier,
		Participants:   participants,
		Messages:       messages,
	}
}
