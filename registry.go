package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IdentitySource produces the opaque unique identifiers handed out for
// rooms and players. Injected so tests can pin ids.
type IdentitySource struct {
	NewRoomCode func() string
	NewPlayerID func() string
}

func defaultIdentitySource() IdentitySource {
	return IdentitySource{
		NewRoomCode: newRoomCode,
		NewPlayerID: uuid.NewString,
	}
}

const roomCodeLength = 6

// newRoomCode generates a crypto-random fixed-length room code. Codes
// are uppercase so lookups can be case-insensitive.
func newRoomCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	buf := make([]byte, roomCodeLength)
	if _, err := crand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	out := make([]byte, roomCodeLength)
	for i := range out {
		out[i] = letters[int(buf[i])%len(letters)]
	}

	return string(out)
}

// cryptoSeededRand builds a per-room pseudo-random source seeded from
// crypto/rand. Each Session gets its own, so room operations never
// contend on a shared generator.
func cryptoSeededRand() *rand.Rand {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(b[:8]),
		binary.LittleEndian.Uint64(b[8:]),
	))
}

// SessionRegistry owns the room code → Session mapping: rooms are
// created here, looked up here, and destroyed here once their last
// player is gone. Never call registry methods while holding a session
// lock; the registry takes sr.mu before s.mu.
type SessionRegistry struct {
	mu    sync.Mutex
	rooms map[string]*Session

	ids     IdentitySource
	words   []WordPair
	newRand func() *rand.Rand
}

func newSessionRegistry(words []WordPair, ids IdentitySource) *SessionRegistry {
	return &SessionRegistry{
		rooms:   make(map[string]*Session),
		ids:     ids,
		words:   words,
		newRand: cryptoSeededRand,
	}
}

// create allocates a fresh room under a unique code, re-drawing on the
// (unlikely) collision with a live room.
func (sr *SessionRegistry) create() (string, *Session) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	for {
		code := sr.ids.NewRoomCode()
		if _, exists := sr.rooms[code]; exists {
			continue
		}

		s := newSession(code, sr.words, sr.newRand())
		sr.rooms[code] = s

		return code, s
	}
}

// get looks up a room by code, case-insensitively.
func (sr *SessionRegistry) get(code string) (*Session, bool) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	s, ok := sr.rooms[strings.ToUpper(code)]

	return s, ok
}

// destroyIfEmpty removes a room once its player list is empty. Called
// after every player removal.
func (sr *SessionRegistry) destroyIfEmpty(code string) bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	s, ok := sr.rooms[strings.ToUpper(code)]
	if !ok {
		return false
	}

	s.mu.Lock()
	empty := s.empty()
	s.mu.Unlock()

	if !empty {
		return false
	}

	delete(sr.rooms, strings.ToUpper(code))

	return true
}

func (sr *SessionRegistry) roomCount() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	return len(sr.rooms)
}

// startReaper periodically closes rooms that have been idle longer than
// timeout, handing each reaped session to reap for connection teardown.
func (sr *SessionRegistry) startReaper(timeout time.Duration, reap func(*Session)) {
	go func() {
		ticker := time.NewTicker(timeout / 2)
		for range ticker.C {
			cutoff := time.Now().Add(-timeout)

			sr.mu.Lock()
			for code, s := range sr.rooms {
				s.mu.Lock()
				idle := s.lastActive.Before(cutoff)
				s.mu.Unlock()

				if idle {
					delete(sr.rooms, code)
					go reap(s)
				}
			}
			sr.mu.Unlock()
		}
	}()
}
