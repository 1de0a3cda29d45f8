// Package history provides the size-bounded, durable chat history and
// preference store that seeds assistant context.
package history

import (
	"strings"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Bounds. Append clips content to MaxContentLen characters and evicts the
// oldest entries beyond MaxMessages; Summarize covers the most recent
// SummaryMessages turns.
const (
	MaxMessages     = 50
	MaxContentLen   = 4000
	SummaryMessages = 10
)

// ChatMessage is one stored conversation turn.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the injectable history/preference store. Consumers should depend
// on this interface rather than a concrete implementation to facilitate
// testing with the in-memory variant.
type Store interface {
	Append(role Role, content string) error
	LoadAll() ([]ChatMessage, error)
	Summarize(maxChars int) (string, error)
	Clear() error
	ReadPreferences() (map[string]string, error)
	WritePreferences(prefs map[string]string) error
	Close() error
}

// clip bounds s to max characters.
func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// summarize renders the most recent SummaryMessages turns as "Role: content"
// lines, truncated to maxChars with an ellipsis marker if exceeded.
func summarize(msgs []ChatMessage, maxChars int) string {
	start := len(msgs) - SummaryMessages
	if start < 0 {
		start = 0
	}
	lines := make([]string, 0, len(msgs)-start)
	for _, m := range msgs[start:] {
		role := "User"
		if m.Role == RoleAssistant {
			role = "Assistant"
		}
		lines = append(lines, role+": "+m.Content)
	}
	out := strings.Join(lines, "\n")
	if len([]rune(out)) > maxChars {
		out = clip(out, maxChars) + "…"
	}
	return out
}
