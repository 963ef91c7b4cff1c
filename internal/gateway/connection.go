// Package gateway implements the client side of the connection gateway: a
// single websocket per authenticated session carrying push events inbound
// and typing/command traffic outbound.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"messenger/internal/config"
	"messenger/internal/metrics"
	"messenger/pkg/auth"
	"messenger/pkg/interfaces"
	"messenger/pkg/types"
)

var _ interfaces.Gateway = (*Gateway)(nil)

// command is the outbound envelope.
type command struct {
	Command string `json:"command"`
	Payload any    `json:"payload,omitempty"`
}

// Gateway is the websocket connection manager. It owns the read and write
// pumps; all writes are serialized through a single writer goroutine.
type Gateway struct {
	cfg      *config.Config
	registry *SubscriptionRegistry
	disp     *Dispatcher

	conn      *websocket.Conn
	writeCh   chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	mu        sync.Mutex // guards conn during Dial/Close
	log       zerolog.Logger
}

// New creates a gateway that is not yet connected.
func New(cfg *config.Config, log zerolog.Logger) *Gateway {
	registry := NewSubscriptionRegistry()
	gwLog := log.With().Str("component", "gateway").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		cfg:      cfg,
		registry: registry,
		disp:     NewDispatcher(registry, cfg.EventBuffer, log),
		writeCh:  make(chan []byte, 100),
		ctx:      ctx,
		cancel:   cancel,
		log:      gwLog,
	}
}

// Dial connects to the gateway endpoint with the session's bearer token
// and starts the pumps. An expired token fails fast here instead of
// surfacing as a rejected upgrade.
func (g *Gateway) Dial(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn != nil {
		return ErrAlreadyConnected
	}
	if err := auth.CheckExpiry(g.cfg.AuthToken, time.Now()); err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+g.cfg.AuthToken)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.cfg.GatewayURL, header)
	if err != nil {
		return err
	}
	g.conn = conn

	if err := g.disp.Start(g.ctx); err != nil {
		conn.Close()
		g.conn = nil
		return err
	}

	go g.readLoop(conn)
	go g.writeLoop(conn)

	g.log.Info().Str("url", g.cfg.GatewayURL).Msg("gateway connected")
	return nil
}

// readLoop decodes push events and hands them to the dispatcher. Exits on
// the first read error; Close is safe to call from any goroutine.
func (g *Gateway) readLoop(conn *websocket.Conn) {
	defer g.Close()

	conn.SetReadDeadline(time.Now().Add(g.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(g.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-g.ctx.Done():
			default:
				g.log.Warn().Err(err).Msg("gateway read failed")
			}
			return
		}

		var evt types.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			g.log.Warn().Err(err).Msg("discarding malformed gateway frame")
			continue
		}
		if err := g.disp.Dispatch(evt); err != nil {
			g.log.Warn().Err(err).Str("event", evt.Name).Msg("dropping gateway event")
		}
	}
}

// writeLoop is the single writer for the connection. It also owns the
// ping keepalive so control and data frames never interleave.
func (g *Gateway) writeLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-g.writeCh:
			conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				g.log.Warn().Err(err).Msg("gateway write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-g.ctx.Done():
			return
		}
	}
}

// Send queues an outbound command.
func (g *Gateway) Send(name string, payload any) error {
	select {
	case <-g.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(command{Command: name, Payload: payload})
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case g.writeCh <- data:
		return nil
	case <-time.After(g.cfg.WriteTimeout):
		return ErrWriteTimeout
	case <-g.ctx.Done():
		return ErrConnectionClosed
	}
}

// SendTyping emits a typing start/stop signal for a conversation.
func (g *Gateway) SendTyping(conversationID string, isTyping bool) error {
	state := "stop"
	if isTyping {
		state = "start"
	}
	err := g.Send("typing", types.TypingEvent{
		ConversationID: conversationID,
		UserID:         g.cfg.UserID,
		IsTyping:       isTyping,
	})
	if err == nil {
		metrics.TypingSignals.WithLabelValues(state).Inc()
	}
	return err
}

// Subscribe registers a push-event handler.
func (g *Gateway) Subscribe(event string, fn interfaces.EventHandler) string {
	return g.registry.Subscribe(event, fn)
}

// Unsubscribe removes a push-event handler. Idempotent.
func (g *Gateway) Unsubscribe(event, id string) {
	g.registry.Unsubscribe(event, id)
}

// Close tears the connection down and stops dispatch. Safe to call more
// than once and from any goroutine.
func (g *Gateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		g.cancel()
		g.disp.Stop()

		g.mu.Lock()
		if g.conn != nil {
			err = g.conn.Close()
			g.conn = nil
		}
		g.mu.Unlock()

		g.log.Info().Msg("gateway closed")
	})
	return err
}
