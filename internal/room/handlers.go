package room

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loveletter-online/server-go/internal/auth"
	"github.com/loveletter-online/server-go/internal/bot"
	"github.com/loveletter-online/server-go/internal/game"
	"github.com/loveletter-online/server-go/internal/protocol"
)

const maxChatLength = 500

var seatColors = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f1c40f", "#9b59b6", "#e67e22",
}

var botNames = []string{
	"Annette", "Odette", "Guillaume", "Tomas", "Sylvie", "Bastien",
}

func (r *Room) handleMessage(conn Conn, data []byte) {
	msg := protocol.ParseClient(data)
	if msg == nil {
		return
	}

	playerID, bound := r.bindings[conn.ID()]
	if !bound {
		if msg.Type == protocol.ClientJoin {
			r.handleJoin(conn, msg)
		}
		return
	}

	switch msg.Type {
	case protocol.ClientJoin:
		// Already seated: repeat the welcome, never a second seat.
		r.resendWelcome(conn, playerID)
	case protocol.ClientAddBot:
		r.handleAddBot(conn, playerID, msg)
	case protocol.ClientRemovePlayer:
		r.handleRemovePlayer(conn, playerID, msg)
	case protocol.ClientStartGame:
		r.handleStartGame(conn, playerID)
	case protocol.ClientStartNewRound:
		r.handleStartNewRound(conn, playerID)
	case protocol.ClientResetGame:
		r.handleResetGame(conn, playerID)
	case protocol.ClientReturnToLobby:
		r.handleReturnToLobby(conn, playerID)
	case protocol.ClientPlayCard:
		r.apply(conn, func() (*game.State, []game.Event, error) {
			return game.PlayCard(r.state, playerID, msg.CardIndex, r.rng)
		})
	case protocol.ClientSelectTarget, protocol.ClientPrinceTarget:
		r.apply(conn, func() (*game.State, []game.Event, error) {
			return game.SelectTarget(r.state, playerID, msg.TargetID, r.rng)
		})
	case protocol.ClientGuardGuess:
		guess, ok := game.ParseCard(msg.Guess)
		if !ok {
			r.sendError(conn, "unknown card name")
			return
		}
		r.apply(conn, func() (*game.State, []game.Event, error) {
			return game.GuessCard(r.state, playerID, guess, r.rng)
		})
	case protocol.ClientChancellorKeep:
		r.apply(conn, func() (*game.State, []game.Event, error) {
			return game.ChancellorKeep(r.state, playerID, msg.KeepIndex, r.rng)
		})
	case protocol.ClientChat:
		r.handleChat(playerID, msg.Text)
	}
}

func (r *Room) handleJoin(conn Conn, msg *protocol.ClientMessage) {
	// An expired or unknown token falls through to a fresh join.
	if msg.ReconnectToken != "" && r.handleReconnect(conn, msg) {
		return
	}
	if r.state.Phase != game.PhaseLobby {
		r.sendError(conn, "game already in progress")
		return
	}
	if len(r.state.Players) >= game.MaxPlayers {
		r.sendError(conn, "room is full")
		return
	}
	name := strings.TrimSpace(msg.PlayerName)
	if name == "" {
		name = "Player"
	}

	playerID := uuid.NewString()
	r.state.Players = append(r.state.Players, &game.Player{ID: playerID, Name: name})
	r.meta[playerID] = &seatMeta{
		avatar:         len(r.state.Players) - 1,
		color:          seatColors[(len(r.state.Players)-1)%len(seatColors)],
		reconnectToken: uuid.NewString(),
	}
	r.bind(conn, playerID)
	if r.hostID == "" {
		r.hostID = playerID
	}

	conn.Send(protocol.Encode(protocol.Welcome{
		Type:           protocol.ServerWelcome,
		YourPlayerID:   playerID,
		ReconnectToken: r.meta[playerID].reconnectToken,
	}))
	r.broadcast(protocol.Encode(protocol.PlayerJoined{
		Type:       protocol.ServerPlayerJoined,
		PlayerID:   playerID,
		PlayerName: name,
	}))
	r.broadcastSnapshots()
	r.logger.Info("player joined",
		zap.String("player_id", playerID), zap.String("name", name))

	if msg.Credential != "" {
		r.startAuth(conn, msg.Credential)
	}
}

// handleReconnect resumes a held seat. It reports false when the token
// does not resolve to one, in which case the caller treats the message
// as a fresh join.
func (r *Room) handleReconnect(conn Conn, msg *protocol.ClientMessage) bool {
	entry, ok := r.pending[msg.ReconnectToken]
	if !ok {
		return false
	}
	delete(r.pending, msg.ReconnectToken)
	seat := r.state.PlayerByID(entry.playerID)
	if seat == nil {
		return false
	}
	r.meta[seat.ID].dropGen++ // disarm the outstanding grace timer
	r.bind(conn, seat.ID)

	conn.Send(protocol.Encode(protocol.Welcome{
		Type:           protocol.ServerWelcome,
		YourPlayerID:   seat.ID,
		ReconnectToken: r.meta[seat.ID].reconnectToken,
	}))
	r.broadcastSnapshots()
	r.logger.Info("player reconnected", zap.String("player_id", seat.ID))
	return true
}

// resendWelcome answers a duplicate join from a seated connection with
// the original welcome and a current snapshot.
func (r *Room) resendWelcome(conn Conn, playerID string) {
	meta, ok := r.meta[playerID]
	if !ok {
		return
	}
	conn.Send(protocol.Encode(protocol.Welcome{
		Type:           protocol.ServerWelcome,
		YourPlayerID:   playerID,
		ReconnectToken: meta.reconnectToken,
	}))
	conn.Send(protocol.Encode(r.snapshotFor(playerID)))
}

func (r *Room) handleAddBot(conn Conn, playerID string, msg *protocol.ClientMessage) {
	if !r.requireHost(conn, playerID) {
		return
	}
	if r.state.Phase != game.PhaseLobby {
		r.sendError(conn, "bots can only be added in the lobby")
		return
	}
	if len(r.state.Players) >= game.MaxPlayers {
		r.sendError(conn, "room is full")
		return
	}

	botID := uuid.NewString()
	name := botNames[r.rng.Intn(len(botNames))]
	for r.nameTaken(name) {
		name = botNames[r.rng.Intn(len(botNames))] + " II"
	}
	difficulty := string(bot.ParseDifficulty(msg.Difficulty))
	r.state.Players = append(r.state.Players, &game.Player{
		ID: botID, Name: name, IsBot: true, Difficulty: difficulty,
	})
	r.meta[botID] = &seatMeta{
		avatar: len(r.state.Players) - 1,
		color:  seatColors[(len(r.state.Players)-1)%len(seatColors)],
	}
	r.broadcast(protocol.Encode(protocol.PlayerJoined{
		Type:       protocol.ServerPlayerJoined,
		PlayerID:   botID,
		PlayerName: name,
	}))
	r.broadcastSnapshots()
}

func (r *Room) handleRemovePlayer(conn Conn, playerID string, msg *protocol.ClientMessage) {
	targetID := msg.PlayerID
	if targetID == "" {
		targetID = playerID
	}
	if targetID != playerID && !r.requireHost(conn, playerID) {
		return
	}
	seat := r.state.PlayerByID(targetID)
	if seat == nil {
		r.sendError(conn, "no such player")
		return
	}
	r.removeSeat(seat)
}

// removeSeat takes a seat out of the room. In the lobby the seat vanishes;
// mid-game the seat resigns and stays visible as eliminated.
func (r *Room) removeSeat(seat *game.Player) {
	if c, ok := r.connByPlayer[seat.ID]; ok {
		r.unbind(c)
		c.Close()
	}
	for token, entry := range r.pending {
		if entry.playerID == seat.ID {
			delete(r.pending, token)
		}
	}

	if r.state.Phase == game.PhaseLobby {
		kept := r.state.Players[:0]
		for _, p := range r.state.Players {
			if p.ID != seat.ID {
				kept = append(kept, p)
			}
		}
		r.state.Players = kept
		delete(r.meta, seat.ID)
	} else if r.state.Phase == game.PhasePlaying {
		next, events, err := game.Resign(r.state, seat.ID, r.rng)
		if err == nil {
			r.advance(next, events)
		}
	}

	r.broadcast(protocol.Encode(protocol.PlayerLeft{
		Type:       protocol.ServerPlayerLeft,
		PlayerID:   seat.ID,
		PlayerName: seat.Name,
	}))
	if seat.ID == r.hostID {
		r.transferHost()
	}
	if r.closed {
		return
	}
	r.broadcastSnapshots()
	r.closeIfAbandoned()
}

func (r *Room) handleStartGame(conn Conn, playerID string) {
	if !r.requireHost(conn, playerID) {
		return
	}
	r.apply(conn, func() (*game.State, []game.Event, error) {
		return game.StartGame(r.state, r.rng)
	})
}

func (r *Room) handleStartNewRound(conn Conn, playerID string) {
	if !r.requireHost(conn, playerID) {
		return
	}
	r.apply(conn, func() (*game.State, []game.Event, error) {
		return game.StartNextRound(r.state, r.rng)
	})
}

func (r *Room) handleResetGame(conn Conn, playerID string) {
	if !r.requireHost(conn, playerID) {
		return
	}
	r.bumpGen()
	r.state = game.ToLobby(r.state, true)
	r.broadcastSnapshots()
}

func (r *Room) handleReturnToLobby(conn Conn, playerID string) {
	if !r.requireHost(conn, playerID) {
		return
	}
	r.bumpGen()
	r.state = game.ToLobby(r.state, false)
	r.broadcastSnapshots()
}

func (r *Room) handleChat(playerID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if len(text) > maxChatLength {
		text = text[:maxChatLength]
	}
	seat := r.state.PlayerByID(playerID)
	if seat == nil {
		return
	}
	r.broadcast(protocol.Encode(protocol.ChatMessage{
		Type:       protocol.ServerChatMessage,
		PlayerID:   playerID,
		PlayerName: seat.Name,
		Text:       text,
	}))
}

// apply runs one engine transition. Rejections go back to the sender
// only; successes advance the room.
func (r *Room) apply(conn Conn, fn func() (*game.State, []game.Event, error)) {
	next, events, err := fn()
	if err != nil {
		r.sendError(conn, err.Error())
		return
	}
	r.advance(next, events)
}

// advance installs a new state, fans out events and snapshots, and keeps
// the game moving (bot turns, game recording).
func (r *Room) advance(next *game.State, events []game.Event) {
	wasOver := r.state.Phase == game.PhaseGameOver
	r.state = next
	r.bumpGen()
	r.dispatchEvents(events)
	r.broadcastSnapshots()

	if r.state.Phase == game.PhaseGameOver && !wasOver {
		r.recordGame()
	}
	r.scheduleBotTurn()
	if r.state.Phase == game.PhaseRoundEnd && r.allBotsOrEmpty() {
		// Nobody left to press the button.
		r.shutdown("no players remaining")
	}
}

// scheduleBotTurn arms a thinking-delay timer when the machine is waiting
// on a bot seat.
func (r *Room) scheduleBotTurn() {
	if r.state.Phase != game.PhasePlaying {
		return
	}
	actor := r.actingPlayer()
	if actor == nil || !actor.IsBot {
		return
	}
	delay := r.opts.BotDelayMin
	if span := r.opts.BotDelayMax - r.opts.BotDelayMin; span > 0 {
		delay += time.Duration(r.rng.Int63n(int64(span)))
	}
	r.schedule(delay, event{kind: evBotAct})
}

func (r *Room) handleBotAct(gen uint64) {
	if gen != r.gen || r.state.Phase != game.PhasePlaying {
		return
	}
	actor := r.actingPlayer()
	if actor == nil || !actor.IsBot {
		return
	}
	idx := -1
	for i, p := range r.state.Players {
		if p.ID == actor.ID {
			idx = i
		}
	}
	d := bot.Decide(r.state, idx, bot.Difficulty(actor.Difficulty), r.rng)

	var (
		next   *game.State
		events []game.Event
		err    error
	)
	switch r.state.Turn {
	case game.TurnChoosing:
		next, events, err = game.PlayCard(r.state, actor.ID, d.CardIndex, r.rng)
	case game.TurnSelectingTarget:
		next, events, err = game.SelectTarget(r.state, actor.ID, d.TargetID, r.rng)
	case game.TurnGuardGuessing:
		next, events, err = game.GuessCard(r.state, actor.ID, d.Guess, r.rng)
	case game.TurnChancellorPick:
		next, events, err = game.ChancellorKeep(r.state, actor.ID, d.ChancellorKeep, r.rng)
	default:
		return
	}
	if err != nil {
		// A bot producing an illegal move is a bug worth logging loudly.
		r.logger.Error("bot move rejected",
			zap.String("bot_id", actor.ID),
			zap.String("turn", string(r.state.Turn)),
			zap.Error(err))
		return
	}
	r.advance(next, events)
}

// actingPlayer is the seat the turn machine is waiting on.
func (r *Room) actingPlayer() *game.Player {
	if r.state.Pending != nil {
		return r.state.PlayerByID(r.state.Pending.ActorID)
	}
	return r.state.CurrentPlayer()
}

func (r *Room) handleDisconnect(conn Conn) {
	playerID, bound := r.bindings[conn.ID()]
	r.unbind(conn)
	if !bound {
		return
	}
	seat := r.state.PlayerByID(playerID)
	if seat == nil {
		return
	}

	if r.state.Phase == game.PhaseLobby {
		r.removeSeat(seat)
		return
	}

	// Mid-game: hold the seat for the grace period.
	meta := r.meta[playerID]
	meta.dropGen++
	r.pending[meta.reconnectToken] = reconnectEntry{
		playerID:       playerID,
		disconnectedAt: time.Now(),
	}
	dropGen := meta.dropGen
	time.AfterFunc(r.opts.GracePeriod, func() {
		r.post(event{kind: evGraceExpire, playerID: playerID, gen: dropGen})
	})
	r.broadcastSnapshots()
	r.logger.Info("player disconnected, grace period started",
		zap.String("player_id", playerID),
		zap.Duration("grace", r.opts.GracePeriod))
}

func (r *Room) handleGraceExpire(playerID string, dropGen uint64) {
	meta, ok := r.meta[playerID]
	if !ok || meta.dropGen != dropGen {
		return
	}
	if _, connected := r.connByPlayer[playerID]; connected {
		return
	}
	seat := r.state.PlayerByID(playerID)
	if seat == nil {
		return
	}
	r.logger.Info("grace period expired", zap.String("player_id", playerID))
	r.removeSeat(seat)
}

func (r *Room) startAuth(conn Conn, credential string) {
	if r.verifier == nil {
		conn.Send(protocol.Encode(protocol.AuthResult{Type: protocol.ServerAuthResult}))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		claims, err := r.verifier.Verify(ctx, credential)
		r.post(event{kind: evAuthDone, conn: conn, claims: claims, authErr: err})
	}()
}

func (r *Room) handleAuthDone(conn Conn, claims *auth.Claims, err error) {
	playerID, bound := r.bindings[conn.ID()]
	if !bound {
		return
	}
	if err != nil {
		r.logger.Warn("credential verification failed", zap.Error(err))
		conn.Send(protocol.Encode(protocol.AuthResult{Type: protocol.ServerAuthResult}))
		return
	}
	r.meta[playerID].subjectID = claims.SubjectID
	if r.recorder != nil {
		logger := r.logger
		recorder := r.recorder
		c := *claims
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := recorder.UpsertUser(ctx, c.SubjectID, c.Email, c.Name, c.PictureURL); err != nil {
				logger.Warn("failed to upsert user", zap.Error(err))
			}
		}()
	}
	conn.Send(protocol.Encode(protocol.AuthResult{
		Type:    protocol.ServerAuthResult,
		Success: true,
		User: &protocol.AuthUser{
			SubjectID:  claims.SubjectID,
			Email:      claims.Email,
			Name:       claims.Name,
			PictureURL: claims.PictureURL,
		},
	}))
	r.logger.Info("player authenticated",
		zap.String("player_id", playerID), zap.String("subject", claims.SubjectID))
}

func (r *Room) recordGame() {
	if r.recorder == nil {
		return
	}
	rec := GameRecord{RoomID: r.id, WinnerID: r.state.WinnerID}
	for _, p := range r.state.Players {
		pr := PlayerRecord{
			PlayerID: p.ID,
			Name:     p.Name,
			Tokens:   p.Tokens,
			Won:      p.ID == r.state.WinnerID,
			IsBot:    p.IsBot,
		}
		if meta, ok := r.meta[p.ID]; ok {
			pr.SubjectID = meta.subjectID
		}
		if r.state.LastResult != nil {
			if c, ok := r.state.LastResult.RevealedHands[p.ID]; ok {
				pr.HighCard = c.Value()
			}
		}
		rec.Players = append(rec.Players, pr)
	}
	logger := r.logger
	recorder := r.recorder
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := recorder.RecordGame(ctx, rec); err != nil {
			logger.Warn("failed to record game", zap.Error(err))
		}
	}()
}

func (r *Room) bind(conn Conn, playerID string) {
	r.conns[conn.ID()] = conn
	r.bindings[conn.ID()] = playerID
	r.connByPlayer[playerID] = conn
}

func (r *Room) unbind(conn Conn) {
	if playerID, ok := r.bindings[conn.ID()]; ok {
		if r.connByPlayer[playerID] == conn {
			delete(r.connByPlayer, playerID)
		}
	}
	delete(r.bindings, conn.ID())
	delete(r.conns, conn.ID())
}

func (r *Room) requireHost(conn Conn, playerID string) bool {
	if playerID != r.hostID {
		r.sendError(conn, "only the host can do that")
		return false
	}
	return true
}

// transferHost promotes the next human seat. A room with no human seats
// left closes.
func (r *Room) transferHost() {
	r.hostID = ""
	for _, p := range r.state.Players {
		if !p.IsBot {
			r.hostID = p.ID
			r.logger.Info("host transferred", zap.String("player_id", p.ID))
			return
		}
	}
	r.shutdown("no players remaining")
}

// closeIfAbandoned shuts the room when no human is connected and none is
// within a reconnect grace period.
func (r *Room) closeIfAbandoned() {
	if r.closed {
		return
	}
	for _, p := range r.state.Players {
		if p.IsBot {
			continue
		}
		if _, connected := r.connByPlayer[p.ID]; connected {
			return
		}
	}
	if len(r.pending) > 0 {
		return
	}
	r.shutdown("no players remaining")
}

func (r *Room) allBotsOrEmpty() bool {
	for _, p := range r.state.Players {
		if !p.IsBot {
			return false
		}
	}
	return true
}

func (r *Room) nameTaken(name string) bool {
	for _, p := range r.state.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (r *Room) sendError(conn Conn, message string) {
	conn.Send(protocol.Encode(protocol.Error{Type: protocol.ServerError, Message: message}))
}
