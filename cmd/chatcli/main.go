// Command chatcli is a terminal client for relaychat. It logs in over REST,
// then sends and receives direct messages over the realtime socket.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	applog "github.com/vovakirdan/relaychat/internal/log"
	"github.com/vovakirdan/relaychat/internal/proto"
)

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	logger := applog.New("info", "console")
	if err := run(logger); err != nil {
		logger.Error().Err(err).Msg("chatcli failed")
		os.Exit(1)
	}
}

func run(logger *zerolog.Logger) error {
	server := flag.String("server", "http://localhost:5001", "relaychat base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	to := flag.String("to", "", "default receiver user id")
	flag.Parse()

	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	token, me, err := login(ctx, *server, *email, *password)
	if err != nil {
		return err
	}

	wsURL := "ws" + strings.TrimPrefix(strings.TrimSuffix(*server, "/"), "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	fmt.Printf("Connected to %s as %s (%s)\n", wsURL, me.FullName, me.ID)
	fmt.Println("Type a message and press Enter. Use \"@<userId> text\" to pick a receiver. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn, logger)
	}()

	writeLoop(ctx, conn, *to, logger)

	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

type loginUser struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
}

// login authenticates over REST and returns the session token from the jwt cookie.
func login(ctx context.Context, server, email, password string) (string, loginUser, error) {
	var user loginUser

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", user, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(server, "/")+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", user, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return "", user, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return "", user, fmt.Errorf("login: %s: %s", resp.Status, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", user, fmt.Errorf("decode login response: %w", err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			return c.Value, user, nil
		}
	}
	return "", user, errors.New("login response did not set a session cookie")
}

func readLoop(ctx context.Context, conn *websocket.Conn, logger *zerolog.Logger) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			logger.Error().Err(err).Msg("read error")
			return
		}

		if f.Type == proto.OutboundTypeError && f.Error != nil {
			fmt.Printf("! %s: %s\n", f.Error.Code, f.Error.Msg)
			continue
		}

		switch f.Event {
		case proto.EventGetOnlineUsers:
			var users []string
			if err := json.Unmarshal(f.Data, &users); err != nil {
				logger.Warn().Err(err).Msg("unmarshal online users")
				continue
			}
			fmt.Printf("* online: %s\n", strings.Join(users, ", "))
		case proto.EventNewMessage:
			var msg proto.Message
			if err := json.Unmarshal(f.Data, &msg); err != nil {
				logger.Warn().Err(err).Msg("unmarshal message")
				continue
			}
			fmt.Printf("[%s] %s: %s%s\n", msg.CreatedAt.Format(time.Kitchen), msg.SenderID, msg.Text, imageSuffix(msg.Image))
		case proto.EventMessageSent, proto.EventPong:
		default:
			fmt.Printf("event=%s data=%s\n", f.Event, f.Data)
		}
	}
}

func imageSuffix(image string) string {
	if image == "" {
		return ""
	}
	return " [image " + image + "]"
}

func writeLoop(ctx context.Context, conn *websocket.Conn, to string, logger *zerolog.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			receiver, text := parseLine(line, to)
			if text == "" {
				continue
			}
			if receiver == "" {
				fmt.Println("! no receiver: pass -to or start the line with @<userId>")
				continue
			}
			to = receiver

			payload, err := json.Marshal(proto.SendMessageData{To: receiver, Text: text})
			if err != nil {
				logger.Error().Err(err).Msg("marshal message")
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendMessage, Data: payload}); err != nil {
				logger.Error().Err(err).Msg("send error")
				return
			}
		}
	}
}

// parseLine splits an optional leading "@receiver" from the message text.
func parseLine(line, defaultTo string) (string, string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "@") {
		return defaultTo, line
	}
	receiver, text, _ := strings.Cut(line[1:], " ")
	return receiver, strings.TrimSpace(text)
}
