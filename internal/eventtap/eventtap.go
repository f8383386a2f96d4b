// Package eventtap streams encoded events to websocket clients.
package eventtap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1broseidon/windowkit/internal/event"
)

// Path is the websocket endpoint.
const Path = "/events"

const (
	sendBuffer   = 256
	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
}

// Tap fans events out to every connected client. Clients that cannot keep
// up are disconnected rather than stalling the event loop.
type Tap struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]bool
	closed  bool

	server *http.Server
}

// New creates a tap with no clients.
func New(logger *slog.Logger) *Tap {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tap{logger: logger, clients: make(map[*client]bool)}
}

// Publish encodes e and queues it for every client. It never blocks, so it
// can be registered with app.Observe.
func (t *Tap) Publish(e event.Event) {
	t.mu.RLock()
	n := len(t.clients)
	t.mu.RUnlock()
	if n == 0 {
		return
	}
	data, err := event.Encode(e)
	if err != nil {
		t.logger.Warn("event tap encode failed", "kind", e.Kind(), "error", err)
		return
	}
	t.broadcast(data)
}

func (t *Tap) broadcast(data []byte) {
	// Sends happen under the read lock so Close cannot close a channel
	// mid-send.
	var slow []*client
	t.mu.RLock()
	for c := range t.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	t.mu.RUnlock()

	for _, c := range slow {
		t.logger.Warn("event tap client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
		t.removeClient(c)
	}
}

func (t *Tap) addClient(conn *websocket.Conn) (*client, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, false
	}
	c := newClient(conn)
	t.clients[c] = true
	return c, true
}

func (t *Tap) removeClient(c *client) {
	t.mu.Lock()
	if _, ok := t.clients[c]; ok {
		delete(t.clients, c)
		close(c.send)
	}
	t.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (t *Tap) ClientCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.clients)
}

// Handler serves the websocket endpoint at Path.
func (t *Tap) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, t.handleWS)
	return mux
}

func (t *Tap) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Warn("event tap upgrade failed", "error", err)
		return
	}

	c, ok := t.addClient(conn)
	if !ok {
		conn.Close()
		return
	}
	t.logger.Debug("event tap client connected", "remote", r.RemoteAddr)

	// Reads only detect disconnects; clients have nothing to say.
	go func() {
		defer func() {
			t.removeClient(c)
			t.logger.Debug("event tap client disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// checkOrigin accepts non-browser clients and pages served from loopback.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Start listens on addr and serves in the background.
func (t *Tap) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("event tap listen: %w", err)
	}
	t.server = &http.Server{Handler: t.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("event tap stopped", "error", err)
		}
	}()
	t.logger.Info("event tap listening", "addr", ln.Addr().String(), "path", Path)
	return ln.Addr(), nil
}

// Close stops the listener and disconnects every client.
func (t *Tap) Close(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	clients := t.clients
	t.clients = make(map[*client]bool)
	t.mu.Unlock()
	for c := range clients {
		close(c.send)
	}

	if t.server == nil {
		return nil
	}
	return t.server.Shutdown(ctx)
}
