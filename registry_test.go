package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentitySource(codes ...string) IdentitySource {
	codeIdx := 0
	playerIdx := 0

	return IdentitySource{
		NewRoomCode: func() string {
			code := codes[codeIdx%len(codes)]
			codeIdx++
			return code
		},
		NewPlayerID: func() string {
			playerIdx++
			return fmt.Sprintf("player-%d", playerIdx)
		},
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	sr := newSessionRegistry(testWords(), testIdentitySource("ROOM01"))

	code, s := sr.create()
	require.Equal(t, "ROOM01", code)
	require.NotNil(t, s)
	assert.Equal(t, PhaseLobby, s.phase)

	got, ok := sr.get("ROOM01")
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	sr := newSessionRegistry(testWords(), testIdentitySource("ROOM01"))
	_, s := sr.create()

	got, ok := sr.get("room01")
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = sr.get("nosuch")
	assert.False(t, ok)
}

func TestRegistryRedrawsCollidingCodes(t *testing.T) {
	sr := newSessionRegistry(testWords(), testIdentitySource("AAAAAA", "AAAAAA", "BBBBBB"))

	first, _ := sr.create()
	second, _ := sr.create()

	assert.Equal(t, "AAAAAA", first)
	assert.Equal(t, "BBBBBB", second)
	assert.Equal(t, 2, sr.roomCount())
}

func TestRegistryDestroyIfEmpty(t *testing.T) {
	sr := newSessionRegistry(testWords(), testIdentitySource("ROOM01"))
	code, s := sr.create()

	s.mu.Lock()
	s.addPlayer("p1", "alice")
	s.mu.Unlock()

	assert.False(t, sr.destroyIfEmpty(code))
	_, ok := sr.get(code)
	assert.True(t, ok)

	s.mu.Lock()
	s.removePlayer("p1")
	s.mu.Unlock()

	assert.True(t, sr.destroyIfEmpty(code))
	_, ok = sr.get(code)
	assert.False(t, ok)

	assert.False(t, sr.destroyIfEmpty(code))
}

func TestDefaultIdentitySource(t *testing.T) {
	ids := defaultIdentitySource()

	t.Run("room codes are fixed-length uppercase", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			code := ids.NewRoomCode()
			require.Len(t, code, roomCodeLength)
			for _, r := range code {
				assert.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", string(r))
			}
		}
	})

	t.Run("player ids are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			id := ids.NewPlayerID()
			require.NotEmpty(t, id)
			require.False(t, seen[id])
			seen[id] = true
		}
	})
}
