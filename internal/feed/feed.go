// Package feed implements an optional live progress broadcaster for
// whole-module decompile runs: a websocket endpoint that streams one
// event per completed function to every connected client (an IDE plugin,
// a progress bar, a log tailer). Nothing in the decompiler pipeline
// requires a feed to be attached; ir_of/pseudo_of/cfg_of work the same
// with or without one listening.
//
// Grounded on the teacher's internal/network WebSocketServer/
// WebSocketBroadcast pair: an upgrader plus a client set guarded by one
// mutex, broadcasting to every live client and dropping any that error.
// Sessions here are tagged with a google/uuid value (the teacher's own
// WebSocketConn.ID is a timestamp string; a UUID gives a reconnecting
// client an unambiguous run identity across a longer-lived server).
package feed

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event is one progress notification broadcast to every connected client.
type Event struct {
	SessionID  string `json:"session_id"`
	FuncIndex  int    `json:"func_index"`
	FuncName   string `json:"func_name,omitempty"`
	Stage      string `json:"stage"` // "lifted", "optimized", "emitted", "done"
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
}

// client is one connected websocket peer.
type client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (c *client) send(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if err := c.conn.WriteJSON(v); err != nil {
		c.closed = true
		c.conn.Close()
	}
}

// Broadcaster accepts websocket connections on its Handler and fans out
// Events to every currently-connected client.
type Broadcaster struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

// New returns a Broadcaster ready to be mounted at an http.ServeMux path.
func New() *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Handler upgrades the HTTP connection and registers the client until it
// disconnects or the server shuts down.
func (b *Broadcaster) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	id := uuid.NewString()
	c := &client{conn: conn}

	b.mu.Lock()
	b.clients[id] = c
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, id)
		b.mu.Unlock()
		conn.Close()
	}()

	// Drain and discard any client-sent frames (pings, acks); the feed is
	// one-directional, but the connection must still be read to notice a
	// close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends ev to every connected client, dropping any that error.
func (b *Broadcaster) Broadcast(ev Event) {
	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		c.send(ev)
	}
}

// ClientCount reports how many clients are currently connected.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// NewSession mints a fresh UUID a caller can stamp into every Event of one
// decompile run, so a reconnecting client can tell two runs apart.
func NewSession() string { return uuid.NewString() }
