package game

import (
	"errors"
	"math/rand"
)

// Expected rejections. The room maps these to targeted error messages;
// anything else is a bug.
var (
	ErrWrongPhase      = errors.New("operation not valid in current phase")
	ErrNotYourTurn     = errors.New("not the acting player")
	ErrNeedMorePlayers = errors.New("at least 2 players required")
	ErrBadCardIndex    = errors.New("card index out of range")
	ErrCountessForced  = errors.New("countess must be played")
	ErrIllegalTarget   = errors.New("illegal target")
	ErrIllegalGuess    = errors.New("illegal guess")
	ErrBadKeepIndex    = errors.New("keep index out of range")
)

// StartGame moves a lobby into its first round. The player list must be
// final; tokensToWin is derived from the player count once, here.
func StartGame(s *State, rng *rand.Rand) (*State, []Event, error) {
	if s.Phase != PhaseLobby {
		return nil, nil, ErrWrongPhase
	}
	if len(s.Players) < MinPlayers {
		return nil, nil, ErrNeedMorePlayers
	}
	next := s.Clone()
	next.TokensToWin = TokensToWin(len(next.Players))
	next.Round = 0
	next.WinnerID = ""
	for _, p := range next.Players {
		p.Tokens = 0
	}
	var events []Event
	startRound(next, rng, 0, &events)
	return next, events, nil
}

// StartNextRound deals the next round after a roundEnd. The first listed
// winner of the previous round leads.
func StartNextRound(s *State, rng *rand.Rand) (*State, []Event, error) {
	if s.Phase != PhaseRoundEnd {
		return nil, nil, ErrWrongPhase
	}
	next := s.Clone()
	starter := next.Current
	if next.LastResult != nil && len(next.LastResult.WinnerIDs) > 0 {
		for i, p := range next.Players {
			if p.ID == next.LastResult.WinnerIDs[0] {
				starter = i
				break
			}
		}
	}
	var events []Event
	startRound(next, rng, starter, &events)
	return next, events, nil
}

// ToLobby abandons the current game and returns to the lobby. With
// resetTokens it also wipes the score, making the next start a fresh game.
func ToLobby(s *State, resetTokens bool) *State {
	next := s.Clone()
	next.Phase = PhaseLobby
	next.Round = 0
	next.Deck = nil
	next.SetAside = nil
	next.FaceUp = nil
	next.ChancellorDrawn = nil
	next.Pending = nil
	next.LastResult = nil
	next.WinnerID = ""
	for _, p := range next.Players {
		p.Hand = nil
		p.Discards = nil
		p.Known = nil
		p.Alive = false
		p.Protected = false
		p.PlayedSpy = false
		if resetTokens {
			p.Tokens = 0
		}
	}
	return next
}

// Resign removes a seat from the running round: the player is eliminated
// where they stand, and if the turn machine was waiting on them it moves
// on. Resigning an already-dead or unknown seat is a no-op.
func Resign(s *State, playerID string, rng *rand.Rand) (*State, []Event, error) {
	if s.Phase != PhasePlaying {
		return nil, nil, ErrWrongPhase
	}
	p := s.PlayerByID(playerID)
	if p == nil || !p.Alive {
		return s, nil, nil
	}
	next := s.Clone()
	p = next.PlayerByID(playerID)
	var events []Event
	eliminate(next, p, &events)
	waitingOnPlayer := (next.CurrentPlayer() != nil && next.CurrentPlayer().ID == playerID) ||
		(next.Pending != nil && next.Pending.ActorID == playerID)
	if waitingOnPlayer || next.AliveCount() <= 1 {
		finishTurn(next, rng, &events)
	}
	return next, events, nil
}

// startRound deals a fresh round in place on an already-cloned state.
func startRound(s *State, rng *rand.Rand, starter int, events *[]Event) {
	for _, p := range s.Players {
		p.Hand = nil
		p.Discards = nil
		p.Known = nil
		p.Alive = true
		p.Protected = false
		p.PlayedSpy = false
	}
	s.Deck = NewDeck()
	ShuffleCards(rng, s.Deck)
	s.SetAside = []Card{s.drawOne()}
	s.FaceUp = nil
	if len(s.Players) == 2 {
		for i := 0; i < 3; i++ {
			s.FaceUp = append(s.FaceUp, s.drawOne())
		}
	}
	for _, p := range s.Players {
		p.Hand = append(p.Hand, s.drawOne())
	}
	s.Round++
	s.Phase = PhasePlaying
	s.LastResult = nil
	s.ChancellorDrawn = nil
	s.Pending = nil
	s.Current = starter
	beginTurn(s)
}

// drawOne pops the top (back) of the deck. Callers check emptiness.
func (s *State) drawOne() Card {
	c := s.Deck[len(s.Deck)-1]
	s.Deck = s.Deck[:len(s.Deck)-1]
	return c
}

// beginTurn clears the acting player's protection and draws their second
// card. A turn never begins on an empty deck; if it somehow does, the
// draw is skipped rather than panicking.
func beginTurn(s *State) {
	p := s.CurrentPlayer()
	p.Protected = false
	if len(s.Deck) > 0 {
		p.Hand = append(p.Hand, s.drawOne())
	}
	s.Turn = TurnChoosing
}

// PlayCard discards the chosen card face-up and advances the turn machine
// according to the card's target class.
func PlayCard(s *State, actorID string, cardIndex int, rng *rand.Rand) (*State, []Event, error) {
	if s.Phase != PhasePlaying || s.Turn != TurnChoosing {
		return nil, nil, ErrWrongPhase
	}
	actor := s.CurrentPlayer()
	if actor == nil || actor.ID != actorID {
		return nil, nil, ErrNotYourTurn
	}
	if cardIndex < 0 || cardIndex >= len(actor.Hand) {
		return nil, nil, ErrBadCardIndex
	}
	if !containsInt(PlayableCardIndices(s, s.Current), cardIndex) {
		return nil, nil, ErrCountessForced
	}

	next := s.Clone()
	actor = next.CurrentPlayer()
	card := actor.Hand[cardIndex]
	actor.Hand = append(actor.Hand[:cardIndex], actor.Hand[cardIndex+1:]...)
	actor.Discards = append(actor.Discards, card)
	if card == Spy {
		actor.PlayedSpy = true
	}
	next.forgetCard(actor.ID, card)

	played := Event{Type: EventCardPlayed, ActorID: actor.ID, Card: card}
	var events []Event

	switch card {
	case Handmaid:
		actor.Protected = true
		events = append(events, played)
		finishTurn(next, rng, &events)
	case Princess:
		events = append(events, played)
		eliminate(next, actor, &events)
		finishTurn(next, rng, &events)
	case Spy, Countess:
		events = append(events, played)
		finishTurn(next, rng, &events)
	case Chancellor:
		events = append(events, played)
		for i := 0; i < 2 && len(next.Deck) > 0; i++ {
			next.ChancellorDrawn = append(next.ChancellorDrawn, next.drawOne())
		}
		if len(next.ChancellorDrawn) == 0 {
			finishTurn(next, rng, &events)
		} else {
			next.Turn = TurnChancellorPick
			next.Pending = &Pending{Card: card, ActorID: actor.ID}
			events = append(events, Event{
				Type:    EventChancellorDraw,
				Only:    []string{actor.ID},
				ActorID: actor.ID,
			})
		}
	case Prince:
		targets := ValidTargets(next, card, actor.ID)
		othersOnly := false
		for _, id := range targets {
			if id != actor.ID {
				othersOnly = true
			}
		}
		events = append(events, played)
		if !othersOnly {
			// Everyone else protected or gone: the Prince is forced onto
			// its own player without a selection step.
			resolvePrince(next, actor, actor, &events)
			finishTurn(next, rng, &events)
		} else {
			next.Turn = TurnSelectingTarget
			next.Pending = &Pending{Card: card, ActorID: actor.ID}
		}
	default: // Guard, Priest, Baron, King
		targets := ValidTargets(next, card, actor.ID)
		if len(targets) == 0 {
			played.Fizzled = true
			events = append(events, played)
			finishTurn(next, rng, &events)
		} else {
			events = append(events, played)
			next.Turn = TurnSelectingTarget
			next.Pending = &Pending{Card: card, ActorID: actor.ID}
		}
	}
	return next, events, nil
}

// SelectTarget supplies the target for a pending card. Guards still need
// a guess afterwards; everything else resolves here.
func SelectTarget(s *State, actorID, targetID string, rng *rand.Rand) (*State, []Event, error) {
	if s.Phase != PhasePlaying || s.Turn != TurnSelectingTarget || s.Pending == nil {
		return nil, nil, ErrWrongPhase
	}
	if s.Pending.ActorID != actorID {
		return nil, nil, ErrNotYourTurn
	}
	if !containsString(ValidTargets(s, s.Pending.Card, actorID), targetID) {
		return nil, nil, ErrIllegalTarget
	}

	next := s.Clone()
	next.Pending.TargetID = targetID
	actor := next.PlayerByID(actorID)
	target := next.PlayerByID(targetID)
	var events []Event

	switch next.Pending.Card {
	case Guard:
		next.Turn = TurnGuardGuessing
		return next, events, nil
	case Priest:
		actor.learn(target.ID, target.Hand[0], SourcePriest)
		events = append(events, Event{
			Type:     EventPriestPeek,
			Only:     []string{actor.ID},
			ActorID:  actor.ID,
			TargetID: target.ID,
			Card:     target.Hand[0],
		})
	case Baron:
		resolveBaron(next, actor, target, &events)
	case Prince:
		resolvePrince(next, actor, target, &events)
	case King:
		resolveKing(next, actor, target, &events)
	}
	finishTurn(next, rng, &events)
	return next, events, nil
}

// GuessCard resolves a Guard with a named-kind guess. Guessing Guard
// itself is always illegal.
func GuessCard(s *State, actorID string, guess Card, rng *rand.Rand) (*State, []Event, error) {
	if s.Phase != PhasePlaying || s.Turn != TurnGuardGuessing || s.Pending == nil {
		return nil, nil, ErrWrongPhase
	}
	if s.Pending.ActorID != actorID {
		return nil, nil, ErrNotYourTurn
	}
	if guess == Guard || guess < Spy || guess > Princess {
		return nil, nil, ErrIllegalGuess
	}

	next := s.Clone()
	actor := next.PlayerByID(actorID)
	target := next.PlayerByID(next.Pending.TargetID)
	hit := target != nil && target.Alive && len(target.Hand) > 0 && target.Hand[0] == guess
	var events []Event
	events = append(events, Event{
		Type:     EventGuardReveal,
		ActorID:  actor.ID,
		TargetID: next.Pending.TargetID,
		Guess:    guess,
		Hit:      hit,
	})
	if hit {
		eliminate(next, target, &events)
	}
	finishTurn(next, rng, &events)
	return next, events, nil
}

// ChancellorKeep picks which of the option set the actor retains; the
// remainder go to the bottom of the deck in randomized order.
func ChancellorKeep(s *State, actorID string, keepIndex int, rng *rand.Rand) (*State, []Event, error) {
	if s.Phase != PhasePlaying || s.Turn != TurnChancellorPick || s.Pending == nil {
		return nil, nil, ErrWrongPhase
	}
	if s.Pending.ActorID != actorID {
		return nil, nil, ErrNotYourTurn
	}
	options := ChancellorOptions(s, actorID)
	if keepIndex < 0 || keepIndex >= len(options) {
		return nil, nil, ErrBadKeepIndex
	}

	next := s.Clone()
	actor := next.PlayerByID(actorID)
	options = ChancellorOptions(next, actorID)
	kept := options[keepIndex]
	returned := make([]Card, 0, len(options)-1)
	for i, c := range options {
		if i != keepIndex {
			returned = append(returned, c)
		}
	}
	ShuffleCards(rng, returned)
	// Bottom of the deck is the front of the slice.
	next.Deck = append(returned, next.Deck...)
	actor.Hand = []Card{kept}
	next.ChancellorDrawn = nil
	next.forgetHand(actor.ID)

	var events []Event
	finishTurn(next, rng, &events)
	return next, events, nil
}

// ChancellorOptions is the option set a pending Chancellor exposes to its
// actor: current hand followed by the drawn cards.
func ChancellorOptions(s *State, actorID string) []Card {
	p := s.PlayerByID(actorID)
	if p == nil {
		return nil
	}
	return append(append([]Card(nil), p.Hand...), s.ChancellorDrawn...)
}

func resolveBaron(s *State, actor, target *Player, events *[]Event) {
	actorCard, targetCard := actor.Hand[0], target.Hand[0]
	actor.learn(target.ID, targetCard, SourceBaron)
	target.learn(actor.ID, actorCard, SourceBaron)
	*events = append(*events, Event{
		Type:     EventBaronReveal,
		Only:     []string{actor.ID, target.ID},
		ActorID:  actor.ID,
		TargetID: target.ID,
		Card:     actorCard,
		Card2:    targetCard,
	})
	switch {
	case actorCard < targetCard:
		eliminate(s, actor, events)
	case targetCard < actorCard:
		eliminate(s, target, events)
	}
}

func resolvePrince(s *State, actor, target *Player, events *[]Event) {
	discarded := target.Hand[0]
	target.Hand = target.Hand[:0]
	target.Discards = append(target.Discards, discarded)
	if discarded == Spy {
		target.PlayedSpy = true
	}
	s.forgetHand(target.ID)
	*events = append(*events, Event{
		Type:     EventPrinceDiscard,
		ActorID:  actor.ID,
		TargetID: target.ID,
		Card:     discarded,
	})
	if discarded == Princess {
		eliminate(s, target, events)
		return
	}
	if len(s.Deck) > 0 {
		target.Hand = append(target.Hand, s.drawOne())
	} else if len(s.SetAside) > 0 {
		target.Hand = append(target.Hand, s.SetAside[0])
		s.SetAside = nil
	}
}

func resolveKing(s *State, actor, target *Player, events *[]Event) {
	actorCard, targetCard := actor.Hand[0], target.Hand[0]
	actor.Hand[0], target.Hand[0] = targetCard, actorCard
	s.forgetHand(actor.ID)
	s.forgetHand(target.ID)
	actor.learn(target.ID, actorCard, SourceKing)
	target.learn(actor.ID, targetCard, SourceKing)
	*events = append(*events,
		Event{Type: EventKingSwap, Only: []string{actor.ID}, ActorID: actor.ID, TargetID: target.ID, Card: targetCard},
		Event{Type: EventKingSwap, Only: []string{target.ID}, ActorID: actor.ID, TargetID: target.ID, Card: actorCard},
	)
}

// eliminate removes a player from the round, revealing any remaining hand
// card face-up. A Spy discarded this way still counts for the bonus.
func eliminate(s *State, p *Player, events *[]Event) {
	p.Alive = false
	ev := Event{Type: EventEliminated, TargetID: p.ID}
	if len(p.Hand) > 0 {
		revealed := p.Hand[0]
		p.Hand = p.Hand[:0]
		p.Discards = append(p.Discards, revealed)
		if revealed == Spy {
			p.PlayedSpy = true
		}
		ev.Card = revealed
		ev.HasCard = true
	}
	s.forgetHand(p.ID)
	*events = append(*events, ev)
}

// finishTurn clears the pending action and either ends the round or hands
// the turn to the next alive seat.
func finishTurn(s *State, rng *rand.Rand, events *[]Event) {
	s.Pending = nil
	if len(s.ChancellorDrawn) > 0 {
		// A pick that never completed (actor eliminated mid-choice):
		// the drawn cards go back under the deck so none are lost.
		returned := s.ChancellorDrawn
		ShuffleCards(rng, returned)
		s.Deck = append(returned, s.Deck...)
	}
	s.ChancellorDrawn = nil
	if s.AliveCount() <= 1 {
		endRound(s, events)
		return
	}
	if len(s.Deck) == 0 {
		endRound(s, events)
		return
	}
	s.Current = s.nextAliveFrom(s.Current)
	beginTurn(s)
}

// endRound resolves the winner(s), awards tokens including the strict spy
// bonus, and checks the game-end threshold.
func endRound(s *State, events *[]Event) {
	result := &RoundResult{}
	if s.AliveCount() <= 1 {
		result.Reason = ReasonLastStanding
		for _, p := range s.Players {
			if p.Alive {
				result.WinnerIDs = []string{p.ID}
			}
		}
	} else {
		result.RevealedHands = make(map[string]Card)
		best := -1
		for _, p := range s.Players {
			if !p.Alive || len(p.Hand) == 0 {
				continue
			}
			result.RevealedHands[p.ID] = p.Hand[0]
			if p.Hand[0].Value() > best {
				best = p.Hand[0].Value()
			}
		}
		var tied []*Player
		for _, p := range s.Players {
			if p.Alive && len(p.Hand) > 0 && p.Hand[0].Value() == best {
				tied = append(tied, p)
			}
		}
		if len(tied) == 1 {
			result.Reason = ReasonHighestCard
			result.WinnerIDs = []string{tied[0].ID}
		} else {
			result.Reason = ReasonTiebreak
			bestSum := -1
			for _, p := range tied {
				if sum := discardSum(p); sum > bestSum {
					bestSum = sum
				}
			}
			// Players still tied after the discard-sum comparison all win
			// the round.
			for _, p := range tied {
				if discardSum(p) == bestSum {
					result.WinnerIDs = append(result.WinnerIDs, p.ID)
				}
			}
		}
	}

	for _, id := range result.WinnerIDs {
		s.PlayerByID(id).Tokens++
	}

	var spies []*Player
	for _, p := range s.Players {
		if p.Alive && p.PlayedSpy {
			spies = append(spies, p)
		}
	}
	if len(spies) == 1 {
		spies[0].Tokens++
		result.SpyBonusID = spies[0].ID
	}

	s.LastResult = result
	s.Phase = PhaseRoundEnd
	*events = append(*events, Event{Type: EventRoundOver, Result: result})

	// Highest token count wins if several players cross the threshold in
	// the same round; seat order breaks a residual tie.
	var winner *Player
	for _, p := range s.Players {
		if p.Tokens >= s.TokensToWin && (winner == nil || p.Tokens > winner.Tokens) {
			winner = p
		}
	}
	if winner != nil {
		s.Phase = PhaseGameOver
		s.WinnerID = winner.ID
		*events = append(*events, Event{Type: EventGameOver, WinnerID: winner.ID})
	}
}

func discardSum(p *Player) int {
	sum := 0
	for _, c := range p.Discards {
		sum += c.Value()
	}
	return sum
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
