// Package protocol defines the JSON messages exchanged between clients
// and the room over a single duplex connection. One message per line;
// anything that fails to parse is dropped by the receiver.
package protocol

import "encoding/json"

// Client message types.
const (
	ClientJoin           = "join"
	ClientAddBot         = "addBot"
	ClientRemovePlayer   = "removePlayer"
	ClientStartGame      = "startGame"
	ClientStartNewRound  = "startNewRound"
	ClientResetGame      = "resetGame"
	ClientReturnToLobby  = "returnToLobby"
	ClientPlayCard       = "playCard"
	ClientSelectTarget   = "selectTarget"
	ClientPrinceTarget   = "princeTarget"
	ClientGuardGuess     = "guardGuess"
	ClientChancellorKeep = "chancellorKeep"
	ClientChat           = "chat"
)

// ClientMessage is the union of every client-to-server message. Only the
// fields matching the Type are meaningful.
type ClientMessage struct {
	Type           string `json:"type"`
	PlayerName     string `json:"playerName,omitempty"`
	ReconnectToken string `json:"reconnectToken,omitempty"`
	Credential     string `json:"credential,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
	PlayerID       string `json:"playerId,omitempty"`
	CardIndex      int    `json:"cardIndex"`
	TargetID       string `json:"targetId,omitempty"`
	Guess          string `json:"guess,omitempty"`
	KeepIndex      int    `json:"keepIndex"`
	Text           string `json:"text,omitempty"`
}

// ParseClient decodes a client message. A nil result means the payload
// was malformed and should be ignored.
func ParseClient(data []byte) *ClientMessage {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}
	if msg.Type == "" {
		return nil
	}
	return &msg
}

// Server message types.
const (
	ServerRoomInfo         = "roomInfo"
	ServerWelcome          = "welcome"
	ServerSnapshot         = "snapshot"
	ServerPlayerJoined     = "playerJoined"
	ServerPlayerLeft       = "playerLeft"
	ServerError            = "error"
	ServerRoomClosed       = "roomClosed"
	ServerAuthResult       = "authResult"
	ServerCardPlayed       = "cardPlayed"
	ServerPriestPeek       = "priestPeek"
	ServerBaronReveal      = "baronReveal"
	ServerGuardReveal      = "guardReveal"
	ServerPrinceDiscard    = "princeDiscard"
	ServerPlayerEliminated = "playerEliminated"
	ServerRoundOver        = "roundOver"
	ServerGameOver         = "gameOver"
	ServerChatMessage      = "chatMessage"
)

// RoomInfo is the first message on a fresh connection: the room code the
// connection landed in, shareable as a join code.
type RoomInfo struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type Welcome struct {
	Type           string `json:"type"`
	YourPlayerID   string `json:"yourPlayerId"`
	ReconnectToken string `json:"reconnectToken"`
}

type PlayerJoined struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type PlayerLeft struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type RoomClosed struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// AuthUser is the identity claim set relayed to the client on a
// successful credential verification.
type AuthUser struct {
	SubjectID  string `json:"subjectId"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"pictureUrl"`
}

type AuthResult struct {
	Type    string    `json:"type"`
	Success bool      `json:"success"`
	User    *AuthUser `json:"user,omitempty"`
}

type CardPlayed struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Card     string `json:"card"`
	Fizzled  bool   `json:"fizzled,omitempty"`
}

type PriestPeek struct {
	Type     string `json:"type"`
	TargetID string `json:"targetId"`
	Card     string `json:"card"`
}

// BaronReveal is sent to both duel participants, each seeing their own
// card against the opponent's.
type BaronReveal struct {
	Type         string `json:"type"`
	OpponentID   string `json:"opponentId"`
	YourCard     string `json:"yourCard"`
	OpponentCard string `json:"opponentCard"`
}

type GuardReveal struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	TargetID string `json:"targetId"`
	Guess    string `json:"guess"`
	Hit      bool   `json:"hit"`
}

type PrinceDiscard struct {
	Type     string `json:"type"`
	TargetID string `json:"targetId"`
	Card     string `json:"card"`
}

type PlayerEliminated struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Card     string `json:"card,omitempty"`
}

type RoundOver struct {
	Type   string       `json:"type"`
	Result *RoundResult `json:"result"`
}

// RoundResult mirrors the engine's round outcome in wire form.
type RoundResult struct {
	WinnerIDs     []string          `json:"winnerIds"`
	Reason        string            `json:"reason"`
	RevealedHands map[string]string `json:"revealedHands,omitempty"`
	SpyBonusID    string            `json:"spyBonusId,omitempty"`
}

type GameOver struct {
	Type       string `json:"type"`
	WinnerID   string `json:"winnerId"`
	WinnerName string `json:"winnerName"`
}

type ChatMessage struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Text       string `json:"text"`
}

// Snapshot is the per-recipient filtered view of the room. Other
// players' hands appear only as sizes; YourHand and ChancellorOptions
// are filled in for the recipient alone.
type Snapshot struct {
	Type              string           `json:"type"`
	Phase             string           `json:"phase"`
	Round             int              `json:"round"`
	TokensToWin       int              `json:"tokensToWin"`
	TurnPhase         string           `json:"turnPhase,omitempty"`
	CurrentPlayerID   string           `json:"currentPlayerId,omitempty"`
	HostID            string           `json:"hostId"`
	DeckCount         int              `json:"deckCount"`
	FaceUpCards       []string         `json:"faceUpCards,omitempty"`
	Players           []SnapshotPlayer `json:"players"`
	YourID            string           `json:"yourId"`
	YourHand          []string         `json:"yourHand,omitempty"`
	YourKnown         []KnownCard      `json:"yourKnown,omitempty"`
	ChancellorOptions []string         `json:"chancellorOptions,omitempty"`
	Pending           *PendingAction   `json:"pending,omitempty"`
	LastResult        *RoundResult     `json:"lastResult,omitempty"`
	WinnerID          string           `json:"winnerId,omitempty"`
}

type SnapshotPlayer struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	IsBot      bool     `json:"isBot"`
	Difficulty string   `json:"difficulty,omitempty"`
	Avatar     int      `json:"avatar"`
	Color      string   `json:"color"`
	Alive      bool     `json:"alive"`
	Protected  bool     `json:"protected"`
	Tokens     int      `json:"tokens"`
	HandSize   int      `json:"handSize"`
	Discards   []string `json:"discards"`
	Connected  bool     `json:"connected"`
}

type KnownCard struct {
	AboutID string `json:"aboutId"`
	Card    string `json:"card"`
	Source  string `json:"source"`
}

type PendingAction struct {
	Card     string `json:"card"`
	ActorID  string `json:"actorId"`
	TargetID string `json:"targetId,omitempty"`
}

// Encode marshals a server message. Marshal failures cannot happen for
// the fixed message shapes above, so the error is discarded.
func Encode(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}
