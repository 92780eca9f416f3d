package model

import "time"

// Message is a single chat message in a conversation with a match.
// Immutable once created; histories are append-only and chronological.
type Message struct {
	Text       string    `json:"text"`
	IsReceived bool      `json:"is_received"`
	Timestamp  time.Time `json:"timestamp"`
}

// Render formats the message as one prompt line, marking its direction.
// RECEIVED means the match wrote it, SENT means our agent did.
func (m Message) Render() string {
	if m.IsReceived {
		return "RECEIVED: " + m.Text
	}

	return "SENT: " + m.Text
}
