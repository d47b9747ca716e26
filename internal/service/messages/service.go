package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/metrics"
	"github.com/vovakirdan/relaychat/internal/store"
)

// Transports a message can arrive on, used as a metrics label.
const (
	TransportREST = "rest"
	TransportWS   = "ws"
)

// Common errors for message operations.
var (
	ErrEmptyMessage     = errors.New("message must have text or image")
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrSelfMessage      = errors.New("cannot send a message to yourself")
)

// Deliverer pushes a persisted message to live connections.
type Deliverer interface {
	Deliver(msg core.Message) error
}

// Service persists direct messages and fans them out.
type Service struct {
	store   store.Store
	hub     Deliverer
	metrics *metrics.Metrics
	log     *zerolog.Logger
}

// New creates a message service. m may be nil.
func New(st store.Store, hub Deliverer, m *metrics.Metrics, logger *zerolog.Logger) *Service {
	return &Service{
		store:   st,
		hub:     hub,
		metrics: m,
		log:     logger,
	}
}

// Send persists a message from senderID to receiverID and delivers it to the
// receiver's live connections. Delivery failures are logged, not returned:
// the message is already stored and will show up in the conversation.
func (s *Service) Send(ctx context.Context, transport, senderID, receiverID, text, image string) (*store.Message, error) {
	text = strings.TrimSpace(text)
	image = strings.TrimSpace(image)
	if text == "" && image == "" {
		return nil, ErrEmptyMessage
	}
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}

	if _, err := s.store.GetUserByID(ctx, receiverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, fmt.Errorf("get receiver: %w", err)
	}

	msg := &store.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	s.metrics.MessageSent(transport)

	if err := s.hub.Deliver(ToCore(msg)); err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.ID).Str("receiver_id", receiverID).Msg("failed to deliver message")
	}

	return msg, nil
}

// Conversation returns the messages exchanged between userID and otherID in
// chronological order. A positive limit keeps only the newest messages.
func (s *Service) Conversation(ctx context.Context, userID, otherID string, limit int) ([]*store.Message, error) {
	msgs, err := s.store.ListConversation(ctx, userID, otherID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return msgs, nil
}

// Sidebar returns every user except userID.
func (s *Service) Sidebar(ctx context.Context, userID string) ([]*store.User, error) {
	users, err := s.store.ListUsersExcept(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ToCore converts a stored message to the hub's domain type.
func ToCore(msg *store.Message) core.Message {
	return core.Message{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Text:       msg.Text,
		Image:      msg.Image,
		CreatedAt:  msg.CreatedAt,
	}
}
