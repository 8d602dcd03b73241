package model

import (
	"fmt"
	"time"

	"github.com/emersion/go-message/mail"
)

// Message represents a single email message loaded from an mbox or Maildir store.
type Message struct {
	ID     string
	Date   time.Time
	Header mail.Header
	Body   []byte
	Source string
}

// Record is one normalized chat line.
type Record struct {
	Timestamp string
	Speaker   string
	Text      string
}

// Line renders the record the way it is stored in a transcript file.
func (r Record) Line() string {
	return fmt.Sprintf("%s <%s> %s\n", r.Timestamp, r.Speaker, r.Text)
}

// Member is a conversation participant as reported by the Hangouts export.
type Member struct {
	ID   string
	Name string
}

// Conversation groups the decoded messages of one Hangouts conversation.
type Conversation struct {
	ID       string
	Members  []Member
	Messages []Record
}
