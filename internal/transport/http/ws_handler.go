package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/auth"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
	"github.com/vovakirdan/relaychat/internal/service/messages"
)

// WSOptions tunes a WSHandler.
type WSOptions struct {
	// AllowedOrigin is the single browser origin allowed to upgrade.
	AllowedOrigin string
	// ReadLimit caps a single inbound frame in bytes.
	ReadLimit int64
	// RateLimit is the number of inbound frames allowed per minute.
	RateLimit int
}

// WSHandler authenticates, upgrades and bridges connections to core.Client.
type WSHandler struct {
	hub            *core.Hub
	authService    *auth.Service
	messages       *messages.Service
	originPatterns []string
	readLimit      int64
	rateLimit      int
	log            *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, msgService *messages.Service, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:            hub,
		authService:    authService,
		messages:       msgService,
		originPatterns: originPatterns(opts.AllowedOrigin),
		readLimit:      opts.ReadLimit,
		rateLimit:      opts.RateLimit,
		log:            logger,
	}
}

// originPatterns turns an origin URL into the host pattern the upgrader matches.
func originPatterns(origin string) []string {
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return []string{origin}
	}
	return []string{u.Host}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	token := tokenFromRequest(r, true)
	if token == "" {
		writeJSONError(w, stdhttp.StatusUnauthorized, "Unauthorized - No Token Provided")
		return
	}
	user, err := h.authService.Authenticate(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			writeJSONError(w, stdhttp.StatusUnauthorized, "Unauthorized - Invalid Token")
		case errors.Is(err, auth.ErrUserNotFound):
			writeJSONError(w, stdhttp.StatusNotFound, "User not found")
		default:
			h.log.Error().Err(err).Msg("ws authenticate")
			writeJSONError(w, stdhttp.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(uuid.NewString(), user.ID)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	h.log.Debug().Str("client_id", client.ID).Str("user_id", user.ID).Msg("ws connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	_ = conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.rateLimit)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			if err := wsjson.Write(ctx, conn, errorFrame(&proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"})); err != nil {
				return err
			}
			continue
		}

		if err := wsjson.Write(ctx, conn, h.handleInbound(ctx, client, inbound)); err != nil {
			return err
		}
	}
}

// handleInbound executes one client frame and returns the direct reply.
func (h *WSHandler) handleInbound(ctx context.Context, client *core.Client, inbound proto.Inbound) proto.Outbound {
	switch inbound.Type {
	case proto.InboundTypePing:
		return eventFrame(proto.EventPong, nil)
	case proto.InboundTypeSendMessage:
		data, protoErr := parseSendMessage(inbound)
		if protoErr != nil {
			return errorFrame(protoErr)
		}
		msg, err := h.messages.Send(ctx, messages.TransportWS, client.UserID, data.To, data.Text, data.Image)
		if err != nil {
			protoErr := protoErrorFromSend(err)
			if protoErr.Code == core.ErrCodeInternal {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("ws send message")
			}
			return errorFrame(protoErr)
		}
		return eventFrame(proto.EventMessageSent, toProtoMessage(messages.ToCore(msg)))
	default:
		return errorFrame(&proto.Error{Code: core.ErrCodeUnknownType, Msg: "unknown message type"})
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Warn().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
