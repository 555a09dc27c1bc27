package main

// Dispatcher translates wire messages into engine operations and fans
// the authoritative state back out. For every inbound message it
// resolves the sender's identity, runs the matching Session operation
// under that room's lock, and on success pushes per-viewer projections
// plus any event notifications. On failure the sender alone receives an
// error message and nothing is broadcast.
type Dispatcher struct {
	cfg      *Config
	registry *SessionRegistry
	router   *ConnectionRouter
}

func newDispatcher(cfg *Config, registry *SessionRegistry, router *ConnectionRouter) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		registry: registry,
		router:   router,
	}
}

func (d *Dispatcher) dispatch(c *Client, msg ClientMessage) {
	switch msg.Type {
	case "create-room":
		d.handleCreateRoom(c, msg)
	case "join-room":
		d.handleJoinRoom(c, msg)
	case "start-game":
		d.handleStartGame(c)
	case "end-turn":
		d.handleEndTurn(c)
	case "vote":
		d.handleVote(c, msg)
	case "mrwhite-guess":
		d.handleMrWhiteGuess(c, msg)
	case "restart-game":
		d.handleRestartGame(c)
	case "leave-room":
		d.handleLeaveRoom(c)
	default:
		d.sendError(c, "unknown message type")
	}
}

func (d *Dispatcher) sendError(c *Client, text string) {
	d.router.send(c, ErrorMessage{Type: "error", Message: text})
}

// session resolves the sender's bound room, reporting the failure to
// them directly when they have none.
func (d *Dispatcher) session(c *Client) (*Session, identity, bool) {
	id, ok := d.router.identityOf(c)
	if !ok {
		d.sendError(c, errNotInRoom.Error())
		return nil, identity{}, false
	}

	s, ok := d.registry.get(id.roomCode)
	if !ok {
		d.sendError(c, errRoomNotFound.Error())
		return nil, identity{}, false
	}

	return s, id, true
}

// broadcast sends msg to every connected player of the room. Callers
// hold s.mu; channel sends never block, so holding the lock across
// fan-out is safe.
func (d *Dispatcher) broadcast(s *Session, msg any, exclude string) {
	d.router.broadcast(s.code, s.playerIDs(), msg, exclude)
}

// broadcastState sends each connected player their own projection.
// Callers hold s.mu.
func (d *Dispatcher) broadcastState(s *Session) {
	for _, pid := range s.playerIDs() {
		d.router.sendTo(s.code, pid, GameStateMessage{Type: "game-state", State: s.projectFor(pid)})
	}
}

func (d *Dispatcher) handleCreateRoom(c *Client, msg ClientMessage) {
	if msg.PlayerName == "" {
		d.sendError(c, "player name required")
		return
	}
	if _, bound := d.router.identityOf(c); bound {
		d.sendError(c, "already in a room")
		return
	}

	code, s := d.registry.create()
	playerID := d.registry.ids.NewPlayerID()

	s.mu.Lock()
	s.addPlayer(playerID, msg.PlayerName)
	s.touch()
	state := s.projectFor(playerID)
	s.mu.Unlock()

	d.router.bind(c, code, playerID)
	d.router.send(c, RoomCreatedMessage{Type: "room-created", RoomCode: code, PlayerID: playerID})
	d.router.send(c, GameStateMessage{Type: "game-state", State: state})

	logf(d.cfg, "ROOMS: %q created room %s", msg.PlayerName, code)
}

func (d *Dispatcher) handleJoinRoom(c *Client, msg ClientMessage) {
	if msg.PlayerName == "" || msg.RoomCode == "" {
		d.sendError(c, "room code and player name required")
		return
	}
	if _, bound := d.router.identityOf(c); bound {
		d.sendError(c, "already in a room")
		return
	}

	s, ok := d.registry.get(msg.RoomCode)
	if !ok {
		d.sendError(c, errRoomNotFound.Error())
		return
	}

	playerID := d.registry.ids.NewPlayerID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseLobby {
		d.sendError(c, errGameInProgress.Error())
		return
	}

	p := s.addPlayer(playerID, msg.PlayerName)
	s.touch()

	d.router.bind(c, s.code, playerID)
	d.router.send(c, RoomJoinedMessage{Type: "room-joined", PlayerID: playerID})
	d.broadcast(s, PlayerJoinedMessage{
		Type: "player-joined",
		Player: ClientPlayer{
			ID:      p.ID,
			Name:    p.Name,
			IsHost:  p.Host,
			IsAlive: p.Alive,
		},
	}, "")
	d.broadcastState(s)

	logf(d.cfg, "ROOMS: %q joined room %s", msg.PlayerName, s.code)
}

func (d *Dispatcher) handleStartGame(c *Client) {
	s, id, ok := d.session(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	p := s.playerByID(id.playerID)
	if p == nil || !p.Host {
		d.sendError(c, errNotHost.Error())
		return
	}

	if err := s.start(); err != nil {
		d.sendError(c, err.Error())
		return
	}

	// Deal each player their secret role before the first projection.
	for _, pl := range s.players {
		role, word, assigned := s.roleOf(pl.ID)
		if assigned {
			d.router.sendTo(s.code, pl.ID, YourRoleMessage{Type: "your-role", Role: role, Word: word})
		}
	}
	d.broadcastState(s)

	logf(d.cfg, "GAMES: started in room %s with %d players", s.code, len(s.players))
}

func (d *Dispatcher) handleEndTurn(c *Client) {
	s, id, ok := d.session(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	if err := s.endTurn(id.playerID); err != nil {
		d.sendError(c, err.Error())
		return
	}

	d.broadcastState(s)

	if s.phase == PhaseVoting {
		d.broadcast(s, EventMessage{Type: "voting-started"}, "")
	}
}

func (d *Dispatcher) handleVote(c *Client, msg ClientMessage) {
	s, id, ok := d.session(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	result, err := s.vote(id.playerID, msg.TargetID)
	if err != nil {
		d.sendError(c, err.Error())
		return
	}

	d.broadcast(s, PlayerVotedMessage{Type: "player-voted", PlayerID: id.playerID}, "")
	d.broadcastState(s)

	if !result.tallied {
		return
	}

	if result.eliminated != nil {
		d.broadcast(s, PlayerEliminatedMessage{
			Type:     "player-eliminated",
			PlayerID: result.eliminated.ID,
			Role:     result.eliminated.Role,
		}, "")
	}

	switch s.phase {
	case PhaseMrWhiteGuess:
		d.broadcast(s, EventMessage{Type: "mrwhite-guessing"}, "")
	case PhaseEnded:
		d.broadcast(s, GameEndedMessage{Type: "game-ended", Winner: s.winner, MrWhiteGuess: s.guess}, "")
		logf(d.cfg, "GAMES: room %s ended, winner %s", s.code, s.winner)
	}
}

func (d *Dispatcher) handleMrWhiteGuess(c *Client, msg ClientMessage) {
	s, id, ok := d.session(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	if err := s.guessMrWhite(id.playerID, msg.Word); err != nil {
		d.sendError(c, err.Error())
		return
	}

	d.broadcastState(s)
	d.broadcast(s, GameEndedMessage{Type: "game-ended", Winner: s.winner, MrWhiteGuess: s.guess}, "")

	logf(d.cfg, "GAMES: room %s ended on guess %q, winner %s", s.code, s.guess, s.winner)
}

func (d *Dispatcher) handleRestartGame(c *Client) {
	s, id, ok := d.session(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	p := s.playerByID(id.playerID)
	if p == nil || !p.Host {
		d.sendError(c, errNotHost.Error())
		return
	}

	s.restart()

	d.broadcast(s, EventMessage{Type: "game-restarted"}, "")
	d.broadcastState(s)

	logf(d.cfg, "GAMES: room %s restarted", s.code)
}

func (d *Dispatcher) handleLeaveRoom(c *Client) {
	id, ok := d.router.unbind(c)
	if !ok {
		d.sendError(c, errNotInRoom.Error())
		return
	}

	d.removePlayerFromRoom(id)
}

// disconnect runs when a connection's read pump exits for any reason.
// Connection-level failures are an implicit leave-room.
func (d *Dispatcher) disconnect(c *Client) {
	id, bound := d.router.release(c)
	if bound {
		d.removePlayerFromRoom(id)
	}
}

// removePlayerFromRoom applies the leave path: remove the player,
// reassign host if needed, destroy the room if now empty, otherwise
// broadcast the departure and refreshed projections.
func (d *Dispatcher) removePlayerFromRoom(id identity) {
	s, ok := d.registry.get(id.roomCode)
	if !ok {
		return
	}

	s.mu.Lock()
	name := "unknown"
	if p := s.playerByID(id.playerID); p != nil {
		name = p.Name
	}
	nowEmpty := s.removePlayer(id.playerID)
	s.touch()
	if !nowEmpty {
		d.broadcast(s, PlayerLeftMessage{Type: "player-left", PlayerID: id.playerID}, "")
		d.broadcastState(s)
	}
	s.mu.Unlock()

	if nowEmpty && d.registry.destroyIfEmpty(id.roomCode) {
		logf(d.cfg, "ROOMS: room %s deleted (empty)", id.roomCode)
	}

	logf(d.cfg, "ROOMS: %q left room %s", name, id.roomCode)
}

// closeRoom force-disconnects every remaining connection of a reaped
// room. The registry has already dropped the room by the time this runs.
func (d *Dispatcher) closeRoom(s *Session) {
	s.mu.Lock()
	ids := s.playerIDs()
	code := s.code
	s.mu.Unlock()

	for _, pid := range ids {
		if c, ok := d.router.clientFor(code, pid); ok {
			_, _ = d.router.release(c)
			_ = c.conn.Close()
		}
	}

	logf(d.cfg, "ROOMS: room %s closed (idle)", code)
}
