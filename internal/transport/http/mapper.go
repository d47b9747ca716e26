package http

import (
	"encoding/json"
	"errors"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
	"github.com/vovakirdan/relaychat/internal/service/messages"
)

// parseSendMessage decodes a sendMessage frame. A malformed payload is a
// protocol error reported to the client, not a reason to drop the socket.
func parseSendMessage(inbound proto.Inbound) (proto.SendMessageData, *proto.Error) {
	var data proto.SendMessageData
	if len(inbound.Data) == 0 {
		return data, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "data is required"}
	}
	if err := json.Unmarshal(inbound.Data, &data); err != nil {
		return data, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid sendMessage payload"}
	}
	if data.To == "" {
		return data, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "to is required"}
	}
	return data, nil
}

// protoErrorFromSend maps message service errors to wire errors.
func protoErrorFromSend(err error) *proto.Error {
	switch {
	case errors.Is(err, messages.ErrEmptyMessage), errors.Is(err, messages.ErrSelfMessage):
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
	case errors.Is(err, messages.ErrReceiverNotFound):
		return &proto.Error{Code: core.ErrCodeReceiverMissing, Msg: err.Error()}
	default:
		return &proto.Error{Code: core.ErrCodeInternal, Msg: "internal error"}
	}
}

func toProtoMessage(msg core.Message) proto.Message {
	return proto.Message{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Text:       msg.Text,
		Image:      msg.Image,
		CreatedAt:  msg.CreatedAt,
	}
}

func eventFrame(event string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: event, Data: data}
}

func errorFrame(e *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: e}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventOnlineUsers:
		users := event.OnlineUsers
		if users == nil {
			users = []string{}
		}
		return eventFrame(proto.EventGetOnlineUsers, users)
	case core.EventNewMessage:
		return eventFrame(proto.EventNewMessage, toProtoMessage(event.Message))
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
