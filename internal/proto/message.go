package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeSendMessage = "sendMessage"
	InboundTypePing        = "ping"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventGetOnlineUsers = "getOnlineUsers"
	EventNewMessage     = "newMessage"
	EventMessageSent    = "messageSent"
	EventPong           = "pong"
)

// SendMessageData asks the server to send a direct message.
type SendMessageData struct {
	To    string `json:"to"`
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Message is the JSON shape of a direct message, shared by REST and realtime.
type Message struct {
	ID         string    `json:"_id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
