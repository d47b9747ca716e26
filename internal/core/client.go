package core

const clientEventBuffer = 16

// Client is one live realtime connection as seen by the core layer.
// A user may hold several clients at once (tabs, devices).
type Client struct {
	ID     string
	UserID string
	Events chan *Event
}

// NewClient constructs a client with an initialized event channel.
// Events is closed by the hub once the client is unregistered or the hub stops.
func NewClient(id, userID string) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Events: make(chan *Event, clientEventBuffer),
	}
}
