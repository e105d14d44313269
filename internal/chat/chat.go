// Package chat holds the client-supplied conversation history.
package chat

import (
	"strings"
	"time"
)

type Turn struct {
	IsUser    bool      `json:"isUser"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Last returns at most n trailing turns.
func Last(history []Turn, n int) []Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// Format renders turns as "Utilisateur: ..." / "Assistant: ..." lines.
func Format(history []Turn) string {
	var b strings.Builder
	for _, t := range history {
		if t.IsUser {
			b.WriteString("Utilisateur: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(strings.TrimSpace(t.Content))
		b.WriteString("\n")
	}
	return b.String()
}

// LastAssistant returns up to n most recent assistant turns, newest first.
func LastAssistant(history []Turn, n int) []Turn {
	var out []Turn
	for i := len(history) - 1; i >= 0 && len(out) < n; i-- {
		if !history[i].IsUser {
			out = append(out, history[i])
		}
	}
	return out
}
