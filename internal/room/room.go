// Package room owns the authoritative state of one game room. Each room
// is a single-threaded actor: every inbound event (client message,
// disconnect, timer firing) is queued on one channel and handled one at
// a time, so game state never races and broadcasts always reflect a
// fully applied transition.
package room

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/loveletter-online/server-go/internal/auth"
	"github.com/loveletter-online/server-go/internal/game"
)

// Conn is one client connection bound to this room. Send must not block
// the caller; the websocket layer buffers writes per client.
type Conn interface {
	ID() string
	Send(data []byte)
	Close()
}

// GameRecord is handed to the Recorder when a game finishes.
type GameRecord struct {
	RoomID   string
	WinnerID string
	Players  []PlayerRecord
}

// PlayerRecord is one seat's outcome. SubjectID is the verified identity
// of the player, empty for guests and bots.
type PlayerRecord struct {
	PlayerID  string
	SubjectID string
	Name      string
	Tokens    int
	HighCard  int
	Won       bool
	IsBot     bool
}

// Recorder persists verified users and finished games. Failures are
// logged and swallowed; persistence never blocks or corrupts gameplay.
type Recorder interface {
	RecordGame(ctx context.Context, rec GameRecord) error
	UpsertUser(ctx context.Context, subjectID, email, name, pictureURL string) error
}

// IdentityVerifier turns a raw credential into verified claims, or an
// error when the credential cannot be trusted.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*auth.Claims, error)
}

// Options tunes room pacing and lifecycle timing.
type Options struct {
	BotDelayMin time.Duration // minimum bot "thinking" pause
	BotDelayMax time.Duration
	GracePeriod time.Duration // how long a dropped seat is held mid-game
}

// DefaultOptions returns the production pacing values.
func DefaultOptions() Options {
	return Options{
		BotDelayMin: 800 * time.Millisecond,
		BotDelayMax: 2 * time.Second,
		GracePeriod: 60 * time.Second,
	}
}

type eventKind int

const (
	evMessage eventKind = iota
	evDisconnect
	evBotAct
	evGraceExpire
	evAuthDone
	evShutdown
)

type event struct {
	kind     eventKind
	conn     Conn
	data     []byte
	playerID string
	gen      uint64
	claims   *auth.Claims
	authErr  error
}

type reconnectEntry struct {
	playerID       string
	disconnectedAt time.Time
}

type seatMeta struct {
	avatar         int
	color          string
	reconnectToken string
	subjectID      string

	// dropGen counts disconnects for this seat so a stale grace timer
	// from an earlier drop cannot resign a reconnected player.
	dropGen uint64
}

// Room is one table. All fields are owned by the Run goroutine; external
// callers interact only through HandleMessage/HandleDisconnect.
type Room struct {
	id      string
	logger  *zap.Logger
	opts    Options
	rng     *rand.Rand
	inbox   chan event
	done    chan struct{}
	onClose func(roomID string)

	recorder Recorder
	verifier IdentityVerifier

	state  *game.State
	hostID string

	conns        map[string]Conn           // conn id -> conn
	bindings     map[string]string         // conn id -> player id
	connByPlayer map[string]Conn
	meta         map[string]*seatMeta      // player id -> presentation/auth
	pending      map[string]reconnectEntry // reconnect token -> dropped seat

	// gen invalidates every outstanding timer when the room resets.
	gen    uint64
	closed bool
}

// New creates a room; the caller starts it with go Run.
func New(id string, opts Options, recorder Recorder, verifier IdentityVerifier, onClose func(string), logger *zap.Logger) *Room {
	return &Room{
		id:           id,
		logger:       logger.With(zap.String("room_id", id)),
		opts:         opts,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		inbox:        make(chan event, 256),
		done:         make(chan struct{}),
		onClose:      onClose,
		recorder:     recorder,
		verifier:     verifier,
		state:        game.NewLobby(),
		conns:        make(map[string]Conn),
		bindings:     make(map[string]string),
		connByPlayer: make(map[string]Conn),
		meta:         make(map[string]*seatMeta),
		pending:      make(map[string]reconnectEntry),
	}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Run processes events until the room closes. Must run on its own
// goroutine; it is the only goroutine that touches room state.
func (r *Room) Run() {
	for {
		select {
		case ev := <-r.inbox:
			r.dispatch(ev)
			if r.closed {
				return
			}
		case <-r.done:
			return
		}
	}
}

// HandleMessage queues a raw client message. Safe from any goroutine.
func (r *Room) HandleMessage(conn Conn, data []byte) {
	r.post(event{kind: evMessage, conn: conn, data: data})
}

// HandleDisconnect queues a connection drop. Safe from any goroutine.
func (r *Room) HandleDisconnect(conn Conn) {
	r.post(event{kind: evDisconnect, conn: conn})
}

func (r *Room) post(ev event) {
	select {
	case r.inbox <- ev:
	case <-r.done:
	}
}

func (r *Room) dispatch(ev event) {
	switch ev.kind {
	case evMessage:
		r.handleMessage(ev.conn, ev.data)
	case evDisconnect:
		r.handleDisconnect(ev.conn)
	case evBotAct:
		r.handleBotAct(ev.gen)
	case evGraceExpire:
		r.handleGraceExpire(ev.playerID, ev.gen)
	case evAuthDone:
		r.handleAuthDone(ev.conn, ev.claims, ev.authErr)
	case evShutdown:
		r.shutdown("server shutting down")
	}
}

// schedule posts a timer event back into the inbox after d. The event
// carries the generation it was armed under; handlers drop events from a
// previous generation.
func (r *Room) schedule(d time.Duration, ev event) {
	ev.gen = r.gen
	time.AfterFunc(d, func() { r.post(ev) })
}

// bumpGen cancels every outstanding timer wholesale: events from the old
// generation are ignored when they fire.
func (r *Room) bumpGen() {
	r.gen++
}

// shutdown broadcasts roomClosed, closes every connection, and stops the
// actor.
func (r *Room) shutdown(reason string) {
	if r.closed {
		return
	}
	r.closed = true
	r.broadcast(encodeRoomClosed(reason))
	for _, conn := range r.conns {
		conn.Close()
	}
	close(r.done)
	if r.onClose != nil {
		r.onClose(r.id)
	}
	r.logger.Info("room closed", zap.String("reason", reason))
}

func (r *Room) broadcast(data []byte) {
	for connID, conn := range r.conns {
		if _, bound := r.bindings[connID]; bound {
			conn.Send(data)
		}
	}
}

func (r *Room) sendTo(playerID string, data []byte) {
	if conn, ok := r.connByPlayer[playerID]; ok {
		conn.Send(data)
	}
}
