package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventOnlineUsers carries the full set of online user IDs.
	EventOnlineUsers EventKind = iota
	// EventNewMessage delivers a message to its receiver.
	EventNewMessage
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind        EventKind
	OnlineUsers []string // For EventOnlineUsers
	Message     Message  // For EventNewMessage
}
