package game

// ValidTargets returns the ids a card may legally target for the given
// actor: alive, unprotected players other than the actor, plus the actor
// themselves for any-player cards. Cards that take no target return nil.
func ValidTargets(s *State, card Card, actorID string) []string {
	var targets []string
	switch card.Targeting() {
	case TargetNone:
		return nil
	case TargetAnyPlayer:
		targets = append(targets, actorID)
		fallthrough
	case TargetOtherPlayer, TargetGuess:
		for _, p := range s.Players {
			if p.ID == actorID || !p.Alive || p.Protected {
				continue
			}
			targets = append(targets, p.ID)
		}
	}
	return targets
}

// PlayableCardIndices returns the hand indices the seat may legally play.
// Holding Countess together with King or Prince forces the Countess.
func PlayableCardIndices(s *State, actorIndex int) []int {
	if actorIndex < 0 || actorIndex >= len(s.Players) {
		return nil
	}
	hand := s.Players[actorIndex].Hand
	hasCountess, hasRoyal := false, false
	for _, c := range hand {
		switch c {
		case Countess:
			hasCountess = true
		case King, Prince:
			hasRoyal = true
		}
	}
	indices := make([]int, 0, len(hand))
	for i, c := range hand {
		if hasCountess && hasRoyal && c != Countess {
			continue
		}
		indices = append(indices, i)
	}
	return indices
}

// IsRoundOver reports whether the current round has been decided.
func IsRoundOver(s *State) bool {
	return s.Phase == PhaseRoundEnd || s.Phase == PhaseGameOver
}

// GameWinner returns the id of the player who reached the token
// threshold, or "" while the game is still running.
func GameWinner(s *State) string {
	return s.WinnerID
}
