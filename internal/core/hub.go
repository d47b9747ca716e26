package core

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/metrics"
)

const deliverBuffer = 64

// Hub is the connection registry. One goroutine (Run) owns the
// user -> connections map; every other goroutine talks to it over channels.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	deliver    chan Message
	online     chan chan []string
	done       chan struct{}

	clients map[string]map[*Client]struct{}
	conns   int

	metrics *metrics.Metrics
	log     *zerolog.Logger
}

// NewHub creates a hub. m and logger may be nil.
func NewHub(m *metrics.Metrics, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan Message, deliverBuffer),
		online:     make(chan chan []string),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]struct{}),
		metrics:    m,
		log:        logger,
	}
}

// Run processes hub operations until ctx is cancelled. On return every
// remaining client's Events channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case msg := <-h.deliver:
			h.handleDeliver(msg)
		case reply := <-h.online:
			reply <- h.onlineUsers()
		}
	}
}

// Register adds a connection. If the hub has stopped, the client's Events
// channel is closed immediately so its writer exits.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Events)
	}
}

// Unregister removes a connection and closes its Events channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Deliver fans msg out to every live connection of its receiver.
func (h *Hub) Deliver(msg Message) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.deliver <- msg:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// OnlineUsers returns the sorted IDs of users with at least one connection.
func (h *Hub) OnlineUsers(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	select {
	case h.online <- reply:
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case users := <-reply:
		return users, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) handleRegister(c *Client) {
	conns, exists := h.clients[c.UserID]
	if !exists {
		conns = make(map[*Client]struct{})
		h.clients[c.UserID] = conns
	}
	if _, dup := conns[c]; dup {
		return
	}
	conns[c] = struct{}{}
	h.conns++
	h.recordGauges()

	h.log.Debug().Str("client_id", c.ID).Str("user_id", c.UserID).Int("connections", len(conns)).Msg("client registered")

	if !exists {
		h.broadcastOnline()
		return
	}
	// Presence did not change; the new connection still needs the current set.
	h.send(c, &Event{Kind: EventOnlineUsers, OnlineUsers: h.onlineUsers()})
}

func (h *Hub) handleUnregister(c *Client) {
	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.Events)
	h.conns--

	h.log.Debug().Str("client_id", c.ID).Str("user_id", c.UserID).Int("connections", len(conns)).Msg("client unregistered")

	if len(conns) == 0 {
		delete(h.clients, c.UserID)
		h.recordGauges()
		h.broadcastOnline()
		return
	}
	h.recordGauges()
}

func (h *Hub) handleDeliver(msg Message) {
	conns := h.clients[msg.ReceiverID]
	if len(conns) == 0 {
		return
	}
	event := &Event{Kind: EventNewMessage, Message: msg}
	for c := range conns {
		h.send(c, event)
	}
}

func (h *Hub) broadcastOnline() {
	event := &Event{Kind: EventOnlineUsers, OnlineUsers: h.onlineUsers()}
	for _, conns := range h.clients {
		for c := range conns {
			h.send(c, event)
		}
	}
}

func (h *Hub) send(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
		h.metrics.EventDropped()
		h.log.Warn().Str("client_id", c.ID).Str("user_id", c.UserID).Msg("client buffer full, event dropped")
	}
}

func (h *Hub) onlineUsers() []string {
	users := make([]string, 0, len(h.clients))
	for id := range h.clients {
		users = append(users, id)
	}
	slices.Sort(users)
	return users
}

func (h *Hub) recordGauges() {
	h.metrics.SetConnections(h.conns)
	h.metrics.SetOnlineUsers(len(h.clients))
}

func (h *Hub) shutdown() {
	close(h.done)
	for _, conns := range h.clients {
		for c := range conns {
			close(c.Events)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.conns = 0
	h.recordGauges()
}
