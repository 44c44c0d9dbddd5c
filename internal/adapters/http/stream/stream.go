// Package stream pushes session notifications to WebSocket clients.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/pairrank/internal/domain/model"
	"github.com/okian/pairrank/pkg/logger"
	"github.com/okian/pairrank/pkg/metrics"
)

const writeWait = 5 * time.Second

const bufferSize = 1024

// client serializes writes to one connection.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcaster tracks connected clients and fans notifications out to them.
// It is a dispatcher sink.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
	greet   func() []model.Notification
	origins map[string]struct{}
	log     logger.Logger

	upgrader websocket.Upgrader
}

// Option applies a configuration option to the Broadcaster.
type Option func(*Broadcaster)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Broadcaster) {
		if l != nil {
			b.log = l
		}
	}
}

// WithGreeting sets the notifications sent to a client right after it
// connects, so it can render without waiting for the next transition.
func WithGreeting(f func() []model.Notification) Option {
	return func(b *Broadcaster) { b.greet = f }
}

// WithAllowedOrigins lists browser origins, such as "http://localhost:3000",
// that may connect besides the serving host itself. "*" admits any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(b *Broadcaster) {
		for _, o := range origins {
			if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
				b.origins[strings.ToLower(o)] = struct{}{}
			}
		}
	}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		clients: make(map[*websocket.Conn]*client),
		origins: make(map[string]struct{}),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  bufferSize,
		WriteBufferSize: bufferSize,
		CheckOrigin:     b.checkOrigin,
	}
	return b
}

// checkOrigin admits non-browser clients (no Origin header), same-host
// pages and the configured origins.
func (b *Broadcaster) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := b.origins["*"]; ok {
		return true
	}
	if _, ok := b.origins[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Name identifies the sink.
func (b *Broadcaster) Name() string { return "websocket" }

func (b *Broadcaster) subscribe(conn *websocket.Conn) *client {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &client{conn: conn}
	b.clients[conn] = c
	metrics.UpdateStreamSubscribers(len(b.clients))
	return c
}

func (b *Broadcaster) unsubscribe(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, conn)
	metrics.UpdateStreamSubscribers(len(b.clients))
}

// Count returns the number of connected clients.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Deliver sends n to every connected client. Write failures are logged and
// the client is dropped on its next read error.
func (b *Broadcaster) Deliver(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	b.mu.RLock()
	targets := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		targets = append(targets, c)
	}
	b.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			b.log.Warn(ctx, "failed to send notification to websocket client",
				logger.String("kind", string(n.Kind)),
				logger.Error(err),
			)
		}
	}
	return nil
}

// ServeHTTP upgrades the request and keeps the connection subscribed until
// the client goes away.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn(ctx, "failed to upgrade websocket connection", logger.Error(err))
		return
	}

	c := b.subscribe(conn)
	b.log.Info(ctx, "websocket client subscribed", logger.String("remote", r.RemoteAddr))
	defer func() {
		b.unsubscribe(conn)
		_ = conn.Close()
		b.log.Info(ctx, "websocket client unsubscribed", logger.String("remote", r.RemoteAddr))
	}()

	if b.greet != nil {
		for _, n := range b.greet() {
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			if err := c.write(data); err != nil {
				return
			}
		}
	}

	// Clients do not send anything; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.log.Warn(ctx, "websocket connection closed unexpectedly", logger.Error(err))
			}
			return
		}
	}
}
