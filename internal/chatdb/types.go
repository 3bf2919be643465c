package chatdb

import (
	"fmt"
	"strings"
	"time"
)

// Chat is one conversation thread: identity, participants, and its
// messages in chronological order. Chats are immutable once built;
// exporters receive them read-only.
type Chat struct {
	RowID       int64
	GUID        string
	Identifier  string
	DisplayName string

	// Participants are handle identifiers (phone numbers or emails),
	// deduplicated, in store order.
	Participants []string

	// Messages are ordered by (timestamp, id) ascending; messages
	// without a timestamp sort first.
	Messages []Message
}

// Title returns the display name, falling back to the chat identifier
// for unnamed (usually one-on-one) chats.
func (c *Chat) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Identifier
}

// ParticipantList renders the participants comma-joined for display.
func (c *Chat) ParticipantList() string {
	return strings.Join(c.Participants, ", ")
}

// LastActivity returns the timestamp of the final message, or nil for a
// chat with no messages (which sorts as least across chats).
func (c *Chat) LastActivity() *time.Time {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1].Timestamp
}

// Validate checks the identity fields the rendered-document export
// requires. It reports every missing field, not just the first.
func (c *Chat) Validate() error {
	var missing []string
	if c.RowID <= 0 {
		missing = append(missing, "rowid")
	}
	if c.GUID == "" {
		missing = append(missing, "guid")
	}
	if c.Identifier == "" {
		missing = append(missing, "chat_identifier")
	}
	if c.Participants == nil {
		missing = append(missing, "participants")
	}
	if len(missing) > 0 {
		return fmt.Errorf("chat %d is incomplete: missing %s", c.RowID, strings.Join(missing, ", "))
	}
	return nil
}

// Message is a single message row with its attachments resolved.
type Message struct {
	ID        int64
	Timestamp *time.Time // nil when the store has no date
	FromMe    bool
	Sender    *string // nil for self-sent or unresolved handles
	Service   string

	// Text is the resolved body: the plain-text column when populated,
	// otherwise the decoded attributedBody. Empty when both are absent
	// or undecodable.
	Text string

	// ItemType together with the two GUIDs links tapbacks and edits to
	// the message they target.
	ItemType              *int64
	AssociatedMessageGUID *string
	ThreadOriginatorGUID  *string

	Attachments []Attachment
}

// Attachment is a file reference from the store. Path is relative to
// the attachment root and may not exist on disk; MIME is the store's
// declared type and may be absent or wrong.
type Attachment struct {
	Name string
	MIME string
	Path string
}

// ChatSummary is a chat without its messages, as returned by a
// participant search.
type ChatSummary struct {
	RowID        int64
	GUID         string
	Identifier   string
	DisplayName  string
	Participants []string
}

// Title returns the display name, falling back to the chat identifier.
func (c *ChatSummary) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Identifier
}

// ParticipantList renders the participants comma-joined for display.
func (c *ChatSummary) ParticipantList() string {
	return strings.Join(c.Participants, ", ")
}
