package room

import (
	"github.com/loveletter-online/server-go/internal/game"
	"github.com/loveletter-online/server-go/internal/protocol"
)

// broadcastSnapshots sends every seated, connected player their own
// filtered view of the room. Each viewer gets a different message: only
// their own hand, knowledge, and Chancellor options are included.
func (r *Room) broadcastSnapshots() {
	for playerID, conn := range r.connByPlayer {
		conn.Send(protocol.Encode(r.snapshotFor(playerID)))
	}
}

func (r *Room) snapshotFor(viewerID string) *protocol.Snapshot {
	s := r.state
	snap := &protocol.Snapshot{
		Type:        protocol.ServerSnapshot,
		Phase:       string(s.Phase),
		Round:       s.Round,
		TokensToWin: s.TokensToWin,
		HostID:      r.hostID,
		DeckCount:   len(s.Deck),
		YourID:      viewerID,
		WinnerID:    s.WinnerID,
	}
	if s.Phase == game.PhasePlaying {
		snap.TurnPhase = string(s.Turn)
		if cur := s.CurrentPlayer(); cur != nil {
			snap.CurrentPlayerID = cur.ID
		}
		for _, c := range s.FaceUp {
			snap.FaceUpCards = append(snap.FaceUpCards, c.String())
		}
	}
	if s.Pending != nil {
		snap.Pending = &protocol.PendingAction{
			Card:     s.Pending.Card.String(),
			ActorID:  s.Pending.ActorID,
			TargetID: s.Pending.TargetID,
		}
	}
	if s.LastResult != nil {
		snap.LastResult = wireRoundResult(s.LastResult)
	}

	for _, p := range s.Players {
		sp := protocol.SnapshotPlayer{
			ID:         p.ID,
			Name:       p.Name,
			IsBot:      p.IsBot,
			Difficulty: p.Difficulty,
			Alive:      p.Alive,
			Protected:  p.Protected,
			Tokens:     p.Tokens,
			HandSize:   len(p.Hand),
			Connected:  p.IsBot,
		}
		if meta, ok := r.meta[p.ID]; ok {
			sp.Avatar = meta.avatar
			sp.Color = meta.color
		}
		if _, connected := r.connByPlayer[p.ID]; connected {
			sp.Connected = true
		}
		for _, c := range p.Discards {
			sp.Discards = append(sp.Discards, c.String())
		}
		snap.Players = append(snap.Players, sp)

		if p.ID == viewerID {
			for _, c := range p.Hand {
				snap.YourHand = append(snap.YourHand, c.String())
			}
			for _, k := range p.Known {
				snap.YourKnown = append(snap.YourKnown, protocol.KnownCard{
					AboutID: k.AboutID,
					Card:    k.Card.String(),
					Source:  string(k.Source),
				})
			}
			if s.Pending != nil && s.Pending.ActorID == viewerID && s.Turn == game.TurnChancellorPick {
				for _, c := range game.ChancellorOptions(s, viewerID) {
					snap.ChancellorOptions = append(snap.ChancellorOptions, c.String())
				}
			}
		}
	}
	return snap
}

// dispatchEvents converts engine events to wire messages, honoring each
// event's visibility set. King swaps and Chancellor draws carry no
// message of their own; the follow-up snapshot shows the new hand.
func (r *Room) dispatchEvents(events []game.Event) {
	for _, ev := range events {
		switch ev.Type {
		case game.EventCardPlayed:
			r.deliver(ev.Only, protocol.Encode(protocol.CardPlayed{
				Type:     protocol.ServerCardPlayed,
				PlayerID: ev.ActorID,
				Card:     ev.Card.String(),
				Fizzled:  ev.Fizzled,
			}))
		case game.EventPriestPeek:
			r.deliver(ev.Only, protocol.Encode(protocol.PriestPeek{
				Type:     protocol.ServerPriestPeek,
				TargetID: ev.TargetID,
				Card:     ev.Card.String(),
			}))
		case game.EventBaronReveal:
			// Personalized: each duelist sees their own card as "yours".
			r.sendTo(ev.ActorID, protocol.Encode(protocol.BaronReveal{
				Type:         protocol.ServerBaronReveal,
				OpponentID:   ev.TargetID,
				YourCard:     ev.Card.String(),
				OpponentCard: ev.Card2.String(),
			}))
			r.sendTo(ev.TargetID, protocol.Encode(protocol.BaronReveal{
				Type:         protocol.ServerBaronReveal,
				OpponentID:   ev.ActorID,
				YourCard:     ev.Card2.String(),
				OpponentCard: ev.Card.String(),
			}))
		case game.EventGuardReveal:
			r.deliver(ev.Only, protocol.Encode(protocol.GuardReveal{
				Type:     protocol.ServerGuardReveal,
				PlayerID: ev.ActorID,
				TargetID: ev.TargetID,
				Guess:    ev.Guess.String(),
				Hit:      ev.Hit,
			}))
		case game.EventPrinceDiscard:
			r.deliver(ev.Only, protocol.Encode(protocol.PrinceDiscard{
				Type:     protocol.ServerPrinceDiscard,
				TargetID: ev.TargetID,
				Card:     ev.Card.String(),
			}))
		case game.EventEliminated:
			msg := protocol.PlayerEliminated{
				Type:     protocol.ServerPlayerEliminated,
				PlayerID: ev.TargetID,
			}
			if ev.HasCard {
				msg.Card = ev.Card.String()
			}
			r.deliver(ev.Only, protocol.Encode(msg))
		case game.EventRoundOver:
			r.deliver(ev.Only, protocol.Encode(protocol.RoundOver{
				Type:   protocol.ServerRoundOver,
				Result: wireRoundResult(ev.Result),
			}))
		case game.EventGameOver:
			name := ""
			if p := r.state.PlayerByID(ev.WinnerID); p != nil {
				name = p.Name
			}
			r.deliver(ev.Only, protocol.Encode(protocol.GameOver{
				Type:       protocol.ServerGameOver,
				WinnerID:   ev.WinnerID,
				WinnerName: name,
			}))
		}
	}
}

// deliver broadcasts when only is nil, otherwise sends to the named
// players alone.
func (r *Room) deliver(only []string, data []byte) {
	if only == nil {
		r.broadcast(data)
		return
	}
	for _, playerID := range only {
		r.sendTo(playerID, data)
	}
}

func wireRoundResult(res *game.RoundResult) *protocol.RoundResult {
	out := &protocol.RoundResult{
		WinnerIDs:  append([]string(nil), res.WinnerIDs...),
		Reason:     string(res.Reason),
		SpyBonusID: res.SpyBonusID,
	}
	if len(res.RevealedHands) > 0 {
		out.RevealedHands = make(map[string]string, len(res.RevealedHands))
		for id, c := range res.RevealedHands {
			out.RevealedHands[id] = c.String()
		}
	}
	return out
}

func encodeRoomClosed(reason string) []byte {
	return protocol.Encode(protocol.RoomClosed{
		Type:   protocol.ServerRoomClosed,
		Reason: reason,
	})
}
