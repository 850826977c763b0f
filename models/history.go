package models

import (
	"strings"
	"time"
)

type ConversationTurn struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// History is an append-only conversation log ordered oldest first.
type History []ConversationTurn

// Last returns a copy of the newest k turns; the receiver is left untouched.
func (h History) Last(k int) History {
	if k <= 0 || len(h) == 0 {
		return History{}
	}
	start := len(h) - k
	if start < 0 {
		start = 0
	}
	out := make(History, len(h)-start)
	copy(out, h[start:])
	return out
}

func (h History) Texts() []string {
	out := make([]string, 0, len(h))
	for _, t := range h {
		out = append(out, t.Text)
	}
	return out
}

// Transcript renders turns as "Customer: ..." / "Agent: ..." lines.
func (h History) Transcript() string {
	var sb strings.Builder
	for i, t := range h {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.Speaker())
		sb.WriteString(": ")
		sb.WriteString(t.Text)
	}
	return sb.String()
}

func (t ConversationTurn) Speaker() string {
	if t.Sender == SenderCustomer {
		return "Customer"
	}
	return "Agent"
}
