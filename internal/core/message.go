package core

import "time"

// Message is the domain model for a direct message being fanned out.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Text       string
	Image      string
	CreatedAt  time.Time
}
