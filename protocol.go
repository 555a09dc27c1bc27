package main

// Messages coming from clients. One JSON object per WebSocket frame;
// unused fields stay empty for the message types that don't carry them.
type ClientMessage struct {
	Type       string `json:"type"`                 // "create-room", "join-room", "start-game", "end-turn", "vote", "mrwhite-guess", "restart-game", "leave-room"
	PlayerName string `json:"playerName,omitempty"` // create-room / join-room
	RoomCode   string `json:"roomCode,omitempty"`   // join-room
	TargetID   string `json:"targetId,omitempty"`   // vote
	Word       string `json:"word,omitempty"`       // mrwhite-guess
}

// ClientPlayer is one roster entry as shown to clients. Role and Word
// are populated only on the receiving viewer's own entry while the game
// is running; everyone else's stay hidden until the reveal.
type ClientPlayer struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	IsHost             bool   `json:"isHost"`
	IsAlive            bool   `json:"isAlive"`
	HasPlayedThisRound bool   `json:"hasPlayedThisRound"`
	HasVoted           bool   `json:"hasVoted"`
	Role               Role   `json:"role,omitempty"`
	Word               string `json:"word,omitempty"`
}

// RoleReveal pairs a role with its word; Word is null for Mr. White.
type RoleReveal struct {
	Role Role    `json:"role"`
	Word *string `json:"word"`
}

// ClientState is the per-viewer projection of a room.
type ClientState struct {
	RoomCode            string                `json:"roomCode"`
	Phase               Phase                 `json:"phase"`
	Players             []ClientPlayer        `json:"players"`
	CurrentPlayerIndex  int                   `json:"currentPlayerIndex"`
	Round               int                   `json:"round"`
	EliminatedThisRound string                `json:"eliminatedThisRound,omitempty"`
	Winner              Winner                `json:"winner,omitempty"`
	MrWhiteGuess        string                `json:"mrWhiteGuess,omitempty"`
	RevealedRoles       map[string]RoleReveal `json:"revealedRoles,omitempty"`
}

type RoomCreatedMessage struct {
	Type     string `json:"type"` // "room-created"
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type RoomJoinedMessage struct {
	Type     string `json:"type"` // "room-joined"
	PlayerID string `json:"playerId"`
}

type PlayerJoinedMessage struct {
	Type   string       `json:"type"` // "player-joined"
	Player ClientPlayer `json:"player"`
}

type PlayerLeftMessage struct {
	Type     string `json:"type"` // "player-left"
	PlayerID string `json:"playerId"`
}

type GameStateMessage struct {
	Type  string      `json:"type"` // "game-state"
	State ClientState `json:"state"`
}

type YourRoleMessage struct {
	Type string  `json:"type"` // "your-role"
	Role Role    `json:"role"`
	Word *string `json:"word"`
}

type PlayerVotedMessage struct {
	Type     string `json:"type"` // "player-voted"
	PlayerID string `json:"playerId"`
}

type PlayerEliminatedMessage struct {
	Type     string `json:"type"` // "player-eliminated"
	PlayerID string `json:"playerId"`
	Role     Role   `json:"role"`
}

type GameEndedMessage struct {
	Type         string `json:"type"` // "game-ended"
	Winner       Winner `json:"winner"`
	MrWhiteGuess string `json:"mrWhiteGuess,omitempty"`
}

// EventMessage is for bare notifications: "voting-started",
// "mrwhite-guessing", "game-restarted".
type EventMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
