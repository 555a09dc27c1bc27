package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClient(cr *ConnectionRouter) *Client {
	c := &Client{send: make(chan any, 16)}
	cr.register(c)

	return c
}

func received(c *Client) []any {
	var out []any
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestRouterBindAndIdentity(t *testing.T) {
	cr := newConnectionRouter()
	c := fakeClient(cr)

	_, bound := cr.identityOf(c)
	assert.False(t, bound)

	cr.bind(c, "ROOM01", "p1")

	id, bound := cr.identityOf(c)
	require.True(t, bound)
	assert.Equal(t, "ROOM01", id.roomCode)
	assert.Equal(t, "p1", id.playerID)

	got, ok := cr.clientFor("ROOM01", "p1")
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestRouterUnbindKeepsConnection(t *testing.T) {
	cr := newConnectionRouter()
	c := fakeClient(cr)
	cr.bind(c, "ROOM01", "p1")

	id, ok := cr.unbind(c)
	require.True(t, ok)
	assert.Equal(t, "p1", id.playerID)

	_, bound := cr.identityOf(c)
	assert.False(t, bound)

	_, ok = cr.clientFor("ROOM01", "p1")
	assert.False(t, ok)

	// Still registered: direct sends keep working.
	cr.send(c, ErrorMessage{Type: "error", Message: "test"})
	assert.Len(t, received(c), 1)

	_, ok = cr.unbind(c)
	assert.False(t, ok)
}

func TestRouterRelease(t *testing.T) {
	cr := newConnectionRouter()
	c := fakeClient(cr)
	cr.bind(c, "ROOM01", "p1")

	id, bound := cr.release(c)
	require.True(t, bound)
	assert.Equal(t, "p1", id.playerID)

	// Released connections are no longer send targets.
	cr.send(c, ErrorMessage{Type: "error", Message: "dropped"})

	_, open := <-c.send
	assert.False(t, open, "send channel should be closed")

	_, bound = cr.release(c)
	assert.False(t, bound)
}

func TestRouterSendNeverBlocks(t *testing.T) {
	cr := newConnectionRouter()
	c := fakeClient(cr)
	cr.bind(c, "ROOM01", "p1")

	// Overfill the buffer; the extras must be dropped, not block.
	for i := 0; i < cap(c.send)+10; i++ {
		cr.send(c, EventMessage{Type: "voting-started"})
	}

	assert.Len(t, received(c), cap(c.send))
}

func TestRouterBroadcast(t *testing.T) {
	cr := newConnectionRouter()

	c1 := fakeClient(cr)
	c2 := fakeClient(cr)
	c3 := fakeClient(cr)

	cr.bind(c1, "ROOM01", "p1")
	cr.bind(c2, "ROOM01", "p2")
	cr.bind(c3, "OTHER1", "p9")

	ids := []string{"p1", "p2", "p3"} // p3 has no connection

	t.Run("reaches every bound connection in the room", func(t *testing.T) {
		cr.broadcast("ROOM01", ids, EventMessage{Type: "game-restarted"}, "")

		assert.Len(t, received(c1), 1)
		assert.Len(t, received(c2), 1)
		assert.Empty(t, received(c3))
	})

	t.Run("honors the exclusion", func(t *testing.T) {
		cr.broadcast("ROOM01", ids, EventMessage{Type: "game-restarted"}, "p1")

		assert.Empty(t, received(c1))
		assert.Len(t, received(c2), 1)
	})

	t.Run("skips released connections without failing others", func(t *testing.T) {
		cr.release(c1)

		cr.broadcast("ROOM01", ids, EventMessage{Type: "game-restarted"}, "")

		assert.Len(t, received(c2), 1)
	})
}
