package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crosspost/internal/config"
	"crosspost/internal/logging"
)

const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11

	// GUILD_MESSAGES and MESSAGE_CONTENT.
	gatewayIntents = 1<<9 | 1<<15

	reconnectDelay = 5 * time.Second
)

// Gateway maintains a websocket session with the chat platform and forwards
// message events to a handler. Connection loss triggers a fresh identify
// after a short delay; the session is not resumed.
type Gateway struct {
	url    string
	token  string
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	seq  int64
}

// NewGateway builds a gateway listener from configuration.
func NewGateway(cfg *config.Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gateway{
		url:    cfg.Discord.GatewayURL,
		token:  cfg.Discord.Token,
		logger: logging.NewComponentLogger(logger, "gateway"),
	}
}

// Run connects and dispatches events until the context is canceled. Transient
// connection failures are logged and retried; only context cancellation ends
// the loop.
func (g *Gateway) Run(ctx context.Context, handler EventHandler) error {
	for {
		if err := g.runSession(ctx, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.logger.Warn("gateway session ended", logging.Error(err))
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

func (g *Gateway) runSession(ctx context.Context, handler EventHandler) error {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, g.url, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()
	defer conn.Close()

	// Close the socket when the context ends so ReadJSON unblocks.
	sessionCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		<-sessionCtx.Done()
		conn.Close()
	}()

	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var helloData struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}
	interval := time.Duration(helloData.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		interval = 41250 * time.Millisecond
	}

	if err := g.identify(); err != nil {
		return err
	}

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go g.heartbeatLoop(interval, heartbeatDone)

	g.logger.Info("gateway connected")

	for {
		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read payload: %w", err)
		}
		if payload.S != nil {
			g.mu.Lock()
			g.seq = *payload.S
			g.mu.Unlock()
		}

		switch payload.Op {
		case opDispatch:
			g.dispatch(ctx, payload, handler)
		case opHeartbeat:
			if err := g.sendHeartbeat(); err != nil {
				return err
			}
		case opReconnect, opInvalidSession:
			return fmt.Errorf("server requested reconnect (op %d)", payload.Op)
		case opHeartbeatAck:
			// Expected; nothing to do.
		}
	}
}

func (g *Gateway) identify() error {
	payload := map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   g.token,
			"intents": gatewayIntents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "crosspost",
				"device":  "crosspost",
			},
		},
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("send identify: %w", err)
	}
	return nil
}

func (g *Gateway) sendHeartbeat() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	payload := map[string]any{"op": opHeartbeat, "d": g.seq}
	if err := g.conn.WriteJSON(payload); err != nil {
		return fmt.Errorf("send heartbeat: %w", err)
	}
	return nil
}

func (g *Gateway) heartbeatLoop(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := g.sendHeartbeat(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

type wireMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Content   string `json:"content"`
	Author    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Bot      bool   `json:"bot"`
	} `json:"author"`
	Attachments []struct {
		ID          string `json:"id"`
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		URL         string `json:"url"`
		Size        int64  `json:"size"`
	} `json:"attachments"`
}

func (g *Gateway) dispatch(ctx context.Context, payload gatewayPayload, handler EventHandler) {
	switch payload.T {
	case "MESSAGE_CREATE":
		var msg wireMessage
		if err := json.Unmarshal(payload.D, &msg); err != nil {
			g.logger.Warn("decode message create", logging.Error(err))
			return
		}
		event := SubmissionEvent{
			MessageID:  parseSnowflake(msg.ID),
			ChannelID:  parseSnowflake(msg.ChannelID),
			GuildID:    parseSnowflake(msg.GuildID),
			AuthorID:   msg.Author.ID,
			AuthorName: msg.Author.Username,
			AuthorBot:  msg.Author.Bot,
			Content:    msg.Content,
		}
		for _, att := range msg.Attachments {
			event.Attachments = append(event.Attachments, EventAttachment{
				ID:          att.ID,
				Filename:    att.Filename,
				ContentType: att.ContentType,
				URL:         att.URL,
				Size:        att.Size,
			})
		}
		handler.HandleSubmission(ctx, event)
	case "MESSAGE_DELETE":
		var msg struct {
			ID        string `json:"id"`
			ChannelID string `json:"channel_id"`
			GuildID   string `json:"guild_id"`
		}
		if err := json.Unmarshal(payload.D, &msg); err != nil {
			g.logger.Warn("decode message delete", logging.Error(err))
			return
		}
		handler.HandleDeletion(ctx, DeletionEvent{
			MessageID: parseSnowflake(msg.ID),
			ChannelID: parseSnowflake(msg.ChannelID),
			GuildID:   parseSnowflake(msg.GuildID),
		})
	}
}

func parseSnowflake(value string) int64 {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
