package state

import (
	"slices"
	"strings"

	"LiveBoard/internal/protocol"
)

// DefaultSelfLabel prefixes chat lines written by the local participant.
const DefaultSelfLabel = "Du"

// ChatLog is the append-only replicated chat history.
type ChatLog struct {
	selfLabel string
	entries   []string
}

func NewChatLog(selfLabel string) *ChatLog {
	if selfLabel == "" {
		selfLabel = DefaultSelfLabel
	}
	return &ChatLog{selfLabel: selfLabel}
}

// AppendLocal records a line written here and returns the chat broadcast.
// Blank text is ignored.
func (c *ChatLog) AppendLocal(self protocol.ParticipantID, text string) (protocol.Chat, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return protocol.Chat{}, false
	}
	c.entries = append(c.entries, c.selfLabel+": "+text)
	return protocol.Chat{Sender: self, Text: text}, true
}

// AppendRemote records a line broadcast by sender.
func (c *ChatLog) AppendRemote(sender protocol.ParticipantID, text string) {
	c.entries = append(c.entries, sender.String()+": "+text)
}

// ReplaceAll swaps the whole history for a catch-up snapshot.
func (c *ChatLog) ReplaceAll(entries []string) {
	c.entries = slices.Clone(entries)
}

func (c *ChatLog) Entries() []string { return slices.Clone(c.entries) }

func (c *ChatLog) Len() int { return len(c.entries) }
