// Package models defines the data structures shared by the chat session and its renderers.
package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single entry in the conversation timeline.
// USER entries never change after creation; MODEL entries change only
// while their request is in flight.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Image     string    `json:"image,omitempty"` // data URI
	IsError   bool      `json:"isError,omitempty"`
}

// HasImage reports whether the message carries an image payload.
func (m Message) HasImage() bool {
	return m.Image != ""
}

// Snapshot is the read-only view of a session handed to renderers.
type Snapshot struct {
	Messages  []Message `json:"messages"`
	IsLoading bool      `json:"isLoading"`
}

// Last returns the newest message and false if the snapshot is empty.
func (s Snapshot) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
