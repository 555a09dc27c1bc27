// Undercover (Mr. White) session engine.
//
// One Session per room. Players gather in a lobby; once the host starts
// the game, seat order is shuffled, one player secretly becomes Mr. White
// (no word), one becomes the undercover (decoy word), and the rest are
// civilians sharing the civilian word. Players take turns describing
// their word, then everyone votes; the most-voted player is eliminated.
// An eliminated Mr. White gets one shot at guessing the civilian word.
// Rounds repeat until a faction wins.

package main

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Role is a player's hidden allegiance, assigned at game start.
type Role string

const (
	RoleCivilian   Role = "civilian"
	RoleUndercover Role = "undercover"
	RoleMrWhite    Role = "mrwhite"
)

// Phase is the room's position in the game loop:
// lobby → playing ⇄ voting → (mrwhite-guess | playing) → ended → lobby.
type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhasePlaying      Phase = "playing"
	PhaseVoting       Phase = "voting"
	PhaseMrWhiteGuess Phase = "mrwhite-guess"
	PhaseEnded        Phase = "ended"
)

type Winner string

const (
	WinnerCivilians  Winner = "civilians"
	WinnerUndercover Winner = "undercover"
	WinnerMrWhite    Winner = "mrwhite"
)

// Player holds the data we store server-side.
type Player struct {
	ID        string
	Name      string
	Host      bool
	Alive     bool
	Role      Role   // empty until roles are assigned
	Word      string // empty for Mr. White
	HasPlayed bool
	VotedFor  string // empty until the player votes this round
}

// Session is the authoritative state of one room. Each room is a
// single-writer resource: every method below assumes the caller holds
// mu, and the dispatcher serializes all operations for a room under it.
// Distinct rooms are fully independent.
type Session struct {
	mu sync.Mutex

	code    string
	phase   Phase
	players []*Player // seat order; shuffled once at game start
	turn    int       // index into the alive-players-in-seat-order view
	round   int

	pair       WordPair
	eliminated string // player eliminated by the most recent tally
	winner     Winner
	guess      string // Mr. White's guess, once submitted

	words []WordPair
	rng   *rand.Rand

	createdAt  time.Time
	lastActive time.Time
}

func newSession(code string, words []WordPair, rng *rand.Rand) *Session {
	now := time.Now()

	return &Session{
		code:       code,
		phase:      PhaseLobby,
		round:      1,
		words:      words,
		rng:        rng,
		createdAt:  now,
		lastActive: now,
	}
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

func (s *Session) empty() bool {
	return len(s.players) == 0
}

func (s *Session) playerByID(id string) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}

	return nil
}

func (s *Session) playerIDs() []string {
	ids := make([]string, 0, len(s.players))
	for _, p := range s.players {
		ids = append(ids, p.ID)
	}

	return ids
}

func (s *Session) alivePlayers() []*Player {
	alive := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		if p.Alive {
			alive = append(alive, p)
		}
	}

	return alive
}

// addPlayer appends a player to the seat list. The first player ever
// added becomes host. Callers gate this by phase; joining is only
// offered in the lobby.
func (s *Session) addPlayer(id, name string) *Player {
	p := &Player{
		ID:    id,
		Name:  name,
		Host:  len(s.players) == 0,
		Alive: true,
	}
	s.players = append(s.players, p)

	return p
}

// removePlayer drops a player from the seat list, passing the host flag
// to the next remaining seat if needed. Returns whether the room is now
// empty.
func (s *Session) removePlayer(id string) bool {
	idx := -1
	for i, p := range s.players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return s.empty()
	}

	wasHost := s.players[idx].Host
	s.players = append(s.players[:idx], s.players[idx+1:]...)

	if wasHost && len(s.players) > 0 {
		s.players[0].Host = true
	}

	return s.empty()
}

func (s *Session) canStart() bool {
	return s.phase == PhaseLobby && len(s.players) >= 3
}

// start draws a word pair, shuffles the seat order for the whole game,
// deals roles, and enters the playing phase. Fails without mutating
// anything if the room isn't a lobby of at least 3 players.
func (s *Session) start() error {
	if s.phase != PhaseLobby {
		return errWrongPhase
	}
	if len(s.players) < 3 {
		return errTooFewPlayers
	}

	s.pair = s.words[s.rng.IntN(len(s.words))]

	s.rng.Shuffle(len(s.players), func(i, j int) {
		s.players[i], s.players[j] = s.players[j], s.players[i]
	})

	s.assignRoles()

	s.phase = PhasePlaying
	s.round = 1
	s.turn = 0
	s.winner = ""
	s.guess = ""
	s.eliminated = ""

	for _, p := range s.players {
		p.Alive = true
		p.HasPlayed = false
		p.VotedFor = ""
	}

	return nil
}

// assignRoles picks Mr. White and the undercover with a draw independent
// of the seat shuffle, so seat position leaks nothing about roles.
func (s *Session) assignRoles() {
	order := s.rng.Perm(len(s.players))

	s.players[order[0]].Role = RoleMrWhite
	s.players[order[0]].Word = ""

	if len(order) > 1 {
		s.players[order[1]].Role = RoleUndercover
		s.players[order[1]].Word = s.pair.Undercover
	}

	for _, i := range order[2:] {
		s.players[i].Role = RoleCivilian
		s.players[i].Word = s.pair.Civilian
	}
}

// currentPlayer returns the alive player the turn pointer designates, or
// nil if the pointer has run past the end of the alive list.
func (s *Session) currentPlayer() *Player {
	alive := s.alivePlayers()
	if s.turn >= len(alive) {
		return nil
	}

	return alive[s.turn]
}

// endTurn marks the current turn-holder as having played. When every
// alive player has played, the room moves to voting; otherwise the turn
// pointer advances to the next alive player who hasn't played yet. The
// pointer walks the alive-players view re-derived each call, so
// eliminated seats are skipped transparently.
func (s *Session) endTurn(playerID string) error {
	if s.phase != PhasePlaying {
		return errWrongPhase
	}

	current := s.currentPlayer()
	if current == nil || current.ID != playerID {
		return errNotYourTurn
	}
	current.HasPlayed = true

	alive := s.alivePlayers()

	allPlayed := true
	for _, p := range alive {
		if !p.HasPlayed {
			allPlayed = false
			break
		}
	}

	if allPlayed {
		s.phase = PhaseVoting
		for _, p := range s.players {
			p.VotedFor = ""
		}
		return nil
	}

	for s.turn++; s.turn < len(alive); s.turn++ {
		if !alive[s.turn].HasPlayed {
			break
		}
	}

	return nil
}

// tallyResult reports what a vote triggered: nothing yet, a completed
// tally, and possibly an elimination.
type tallyResult struct {
	tallied    bool
	eliminated *Player
}

// vote records a vote. When the last alive player votes, the tally runs
// immediately and the result is returned to the caller.
func (s *Session) vote(voterID, targetID string) (tallyResult, error) {
	if s.phase != PhaseVoting {
		return tallyResult{}, errWrongPhase
	}

	voter := s.playerByID(voterID)
	target := s.playerByID(targetID)
	if voter == nil || target == nil || !voter.Alive || !target.Alive || voterID == targetID {
		return tallyResult{}, errInvalidTarget
	}
	if voter.VotedFor != "" {
		return tallyResult{}, errAlreadyVoted
	}

	voter.VotedFor = targetID

	for _, p := range s.alivePlayers() {
		if p.VotedFor == "" {
			return tallyResult{}, nil
		}
	}

	return s.tally(), nil
}

// tally counts votes among alive players in seat order. A target is
// adopted only when its count strictly exceeds the running maximum, so
// an exact tie keeps the first target encountered in seat order.
func (s *Session) tally() tallyResult {
	counts := make(map[string]int)
	order := make([]string, 0, len(s.players))

	for _, p := range s.alivePlayers() {
		if p.VotedFor == "" {
			continue
		}
		if _, seen := counts[p.VotedFor]; !seen {
			order = append(order, p.VotedFor)
		}
		counts[p.VotedFor]++
	}

	max := 0
	var eliminated *Player
	for _, id := range order {
		if counts[id] > max {
			max = counts[id]
			eliminated = s.playerByID(id)
		}
	}

	if eliminated == nil {
		return tallyResult{tallied: true}
	}

	eliminated.Alive = false
	s.eliminated = eliminated.ID

	if eliminated.Role == RoleMrWhite {
		s.phase = PhaseMrWhiteGuess
		return tallyResult{tallied: true, eliminated: eliminated}
	}

	s.evaluateWin()

	return tallyResult{tallied: true, eliminated: eliminated}
}

// evaluateWin applies the win conditions in priority order, or starts
// the next round when nobody has won yet.
func (s *Session) evaluateWin() {
	var alive, civilians, undercover, mrwhite int
	for _, p := range s.players {
		if !p.Alive {
			continue
		}
		alive++
		switch p.Role {
		case RoleCivilian:
			civilians++
		case RoleUndercover:
			undercover++
		case RoleMrWhite:
			mrwhite++
		}
	}

	switch {
	case mrwhite > 0 && alive <= 2:
		s.winner = WinnerMrWhite
		s.phase = PhaseEnded
	case civilians == 0 && undercover > 0:
		s.winner = WinnerUndercover
		s.phase = PhaseEnded
	case mrwhite == 0 && undercover == 0:
		s.winner = WinnerCivilians
		s.phase = PhaseEnded
	default:
		s.nextRound()
	}
}

func (s *Session) nextRound() {
	s.round++
	s.phase = PhasePlaying
	s.turn = 0
	s.eliminated = ""

	for _, p := range s.players {
		p.HasPlayed = false
		p.VotedFor = ""
	}
}

// guessMrWhite resolves an eliminated Mr. White's last-chance guess,
// compared trimmed and case-insensitively against the civilian word.
func (s *Session) guessMrWhite(playerID, word string) error {
	if s.phase != PhaseMrWhiteGuess {
		return errWrongPhase
	}

	p := s.playerByID(playerID)
	if p == nil || p.Role != RoleMrWhite {
		return errNotMrWhite
	}

	s.guess = word

	if strings.EqualFold(strings.TrimSpace(word), strings.TrimSpace(s.pair.Civilian)) {
		s.winner = WinnerMrWhite
	} else {
		s.winner = WinnerCivilians
	}
	s.phase = PhaseEnded

	return nil
}

// restart returns the room to the lobby, preserving seats and host while
// clearing everything game-specific. Valid in any phase.
func (s *Session) restart() {
	s.phase = PhaseLobby
	s.round = 1
	s.turn = 0
	s.winner = ""
	s.guess = ""
	s.eliminated = ""
	s.pair = WordPair{}

	for _, p := range s.players {
		p.Alive = true
		p.Role = ""
		p.Word = ""
		p.HasPlayed = false
		p.VotedFor = ""
	}
}

// roleOf returns a player's assigned role and word, with a nil word for
// Mr. White. ok is false until roles have been dealt.
func (s *Session) roleOf(playerID string) (role Role, word *string, ok bool) {
	p := s.playerByID(playerID)
	if p == nil || p.Role == "" {
		return "", nil, false
	}
	if p.Role == RoleMrWhite {
		return p.Role, nil, true
	}

	w := p.Word
	return p.Role, &w, true
}

// projectFor renders the state visible to one player. Secret roles and
// words appear only on the viewer's own entry while the game is running;
// once the game ends, every role is revealed to everyone.
func (s *Session) projectFor(viewerID string) ClientState {
	players := make([]ClientPlayer, 0, len(s.players))
	for _, p := range s.players {
		cp := ClientPlayer{
			ID:                 p.ID,
			Name:               p.Name,
			IsHost:             p.Host,
			IsAlive:            p.Alive,
			HasPlayedThisRound: p.HasPlayed,
			HasVoted:           p.VotedFor != "",
		}
		if p.ID == viewerID && s.phase != PhaseEnded {
			cp.Role = p.Role
			cp.Word = p.Word
		}
		players = append(players, cp)
	}

	state := ClientState{
		RoomCode:            s.code,
		Phase:               s.phase,
		Players:             players,
		CurrentPlayerIndex:  s.turn,
		Round:               s.round,
		EliminatedThisRound: s.eliminated,
		Winner:              s.winner,
		MrWhiteGuess:        s.guess,
	}

	if s.phase == PhaseEnded {
		state.RevealedRoles = make(map[string]RoleReveal, len(s.players))
		for _, p := range s.players {
			reveal := RoleReveal{Role: p.Role}
			if p.Role != RoleMrWhite {
				word := p.Word
				reveal.Word = &word
			}
			state.RevealedRoles[p.ID] = reveal
		}
	}

	return state
}
