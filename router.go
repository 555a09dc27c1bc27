package main

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one live WebSocket connection. Outbound messages go through
// a buffered channel drained by writePump, so a slow reader never blocks
// a room.
type Client struct {
	conn *websocket.Conn
	send chan any
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan any, 16),
	}
}

type identity struct {
	roomCode string
	playerID string
}

// ConnectionRouter owns the bidirectional mapping between live
// connections and (room, player) identities. All sends are best-effort:
// a closed or backed-up connection drops the message rather than
// blocking or failing the caller.
type ConnectionRouter struct {
	mu       sync.RWMutex
	byClient map[*Client]identity
	byIdent  map[identity]*Client
}

func newConnectionRouter() *ConnectionRouter {
	return &ConnectionRouter{
		byClient: make(map[*Client]identity),
		byIdent:  make(map[identity]*Client),
	}
}

// register tracks a connection before it has an identity, making it a
// valid send target for error replies.
func (cr *ConnectionRouter) register(c *Client) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.byClient[c] = identity{}
}

// bind associates a connection with a (room, player) identity.
func (cr *ConnectionRouter) bind(c *Client, roomCode, playerID string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	id := identity{roomCode: roomCode, playerID: playerID}
	cr.byClient[c] = id
	cr.byIdent[id] = c
}

func (cr *ConnectionRouter) identityOf(c *Client) (identity, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	id := cr.byClient[c]

	return id, id.playerID != ""
}

// unbind clears a connection's identity but keeps the connection
// registered, for explicit leave-room.
func (cr *ConnectionRouter) unbind(c *Client) (identity, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	id, tracked := cr.byClient[c]
	if !tracked || id.playerID == "" {
		return identity{}, false
	}

	delete(cr.byIdent, id)
	cr.byClient[c] = identity{}

	return id, true
}

// release drops a connection entirely and closes its send channel.
// Closing happens under the same lock that send checks membership under,
// so a concurrent send can never hit a closed channel.
func (cr *ConnectionRouter) release(c *Client) (identity, bool) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	id, tracked := cr.byClient[c]
	if !tracked {
		return identity{}, false
	}

	delete(cr.byClient, c)
	if id.playerID != "" {
		delete(cr.byIdent, id)
	}
	close(c.send)

	return id, id.playerID != ""
}

func (cr *ConnectionRouter) clientFor(roomCode, playerID string) (*Client, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	c, ok := cr.byIdent[identity{roomCode: roomCode, playerID: playerID}]

	return c, ok
}

// send queues a message for one connection. Silently no-ops if the
// connection has been released; drops the message if the buffer is full.
func (cr *ConnectionRouter) send(c *Client, msg any) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if _, ok := cr.byClient[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// sendTo unicasts to a player's connection, if they have one.
func (cr *ConnectionRouter) sendTo(roomCode, playerID string, msg any) {
	if c, ok := cr.clientFor(roomCode, playerID); ok {
		cr.send(c, msg)
	}
}

// broadcast fans msg out to every currently connected player of a room,
// honoring an optional excluded player id. One unreachable connection
// never aborts the rest.
func (cr *ConnectionRouter) broadcast(roomCode string, playerIDs []string, msg any, exclude string) {
	for _, pid := range playerIDs {
		if pid == exclude {
			continue
		}
		cr.sendTo(roomCode, pid, msg)
	}
}

// serveWS upgrades the connection and runs its pumps. The read pump
// returns on any read error, including normal close, and its cleanup
// path is the implicit leave-room.
func serveWS(cfg *Config, d *Dispatcher) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "WS: upgrade error from %s: %v", realIP(r), err)
			return
		}

		c := newClient(conn)
		d.router.register(c)

		go c.writePump()
		c.readPump(d)
	}
}

func (c *Client) readPump(d *Dispatcher) {
	defer func() {
		d.disconnect(c)
		_ = c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			d.router.send(c, ErrorMessage{Type: "error", Message: "invalid message format"})
			continue
		}

		d.dispatch(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
